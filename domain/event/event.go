package event

import (
	"chat-relay/domain"
)

// Outbound is an event the hub delivers to connected clients. Name is the
// wire event name, Body the payload serialized into the envelope.
type Outbound interface {
	Name() string
	Body() any
}

// HistoryLoaded replays the retained backlog. Unicast to the joining
// connection only, never broadcast.
type HistoryLoaded struct {
	Messages []domain.Message
}

func (HistoryLoaded) Name() string { return "load_history" }
func (e HistoryLoaded) Body() any  { return e.Messages }

// UserListUpdated carries the de-duplicated presence snapshot.
type UserListUpdated struct {
	Users []string
}

func (UserListUpdated) Name() string { return "update_users" }
func (e UserListUpdated) Body() any  { return e.Users }

// SystemMessagePosted announces a join or leave. The payload is the full
// Message object, same shape as MessageReceived.
type SystemMessagePosted struct {
	Message domain.Message
}

func (SystemMessagePosted) Name() string { return "system_message" }
func (e SystemMessagePosted) Body() any  { return e.Message }

// MessageReceived carries one user message to every connection.
type MessageReceived struct {
	Message domain.Message
}

func (MessageReceived) Name() string { return "receive_message" }
func (e MessageReceived) Body() any  { return e.Message }
