package domain

// Command is an inbound connection event waiting to be applied by the hub.
type Command interface {
	ConnectionID() string
}

// JoinCommand attaches a username to a live connection. A repeated join on
// the same connection is treated as an independent event, not gated by prior
// state: it overwrites the username and re-announces.
type JoinCommand struct {
	Connection string
	Username   string
}

func (c JoinCommand) ConnectionID() string { return c.Connection }

// SendMessageCommand carries one user message. The sender is taken from the
// payload, not from presence state, so a connection may send before joining.
type SendMessageCommand struct {
	Connection string
	Text       string
	Sender     string
}

func (c SendMessageCommand) ConnectionID() string { return c.Connection }

// DisconnectCommand is the transport-level close. It produces a leave
// announcement only if the connection had joined.
type DisconnectCommand struct {
	Connection string
}

func (c DisconnectCommand) ConnectionID() string { return c.Connection }
