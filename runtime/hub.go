// Package runtime hosts the relay's single-writer event loop. It routes
// connection events, mints canonical message records, and fans the resulting
// events out to every live connection.
package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/presence"
	"chat-relay/repositories"
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Ensure *Hub implements the contract.Worker interface at compile time.
var _ contract.Worker = (*Hub)(nil)

// Hub serializes every state-changing chat event through one worker loop.
// All history and presence mutation happens on that loop, which is what
// keeps timestamps non-decreasing and the presence set consistent without
// locks around domain state. Only persistence escapes the loop, as detached
// background work that may land out of submission order.
type Hub struct {
	log            *slog.Logger
	registry       *presence.Registry
	history        repositories.HistoryStore
	commands       chan domain.Command
	persistTimeout time.Duration
	now            func() time.Time
}

func NewHub(log *slog.Logger, registry *presence.Registry, history repositories.HistoryStore,
	bufferSize int, persistTimeout time.Duration) *Hub {
	return &Hub{
		log:            log,
		registry:       registry,
		history:        history,
		commands:       make(chan domain.Command, bufferSize),
		persistTimeout: persistTimeout,
		now:            time.Now,
	}
}

// Dispatch submits a command to the loop. It blocks when the queue is full
// rather than dropping: a lost disconnect would leak presence state.
func (h *Hub) Dispatch(ctx context.Context, cmd domain.Command) error {
	select {
	case h.commands <- cmd:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run is the single consumer of the command queue. It must not run twice.
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.log.Debug("Stopping hub loop")
			return ctx.Err()
		case cmd, ok := <-h.commands:
			if !ok {
				return nil
			}
			h.apply(ctx, cmd)
		}
	}
}

func (h *Hub) apply(ctx context.Context, cmd domain.Command) {
	switch c := cmd.(type) {
	case domain.JoinCommand:
		h.handleJoin(ctx, c)
	case domain.SendMessageCommand:
		h.handleSend(ctx, c)
	case domain.DisconnectCommand:
		h.handleDisconnect(ctx, c)
	default:
		h.log.Debug(fmt.Sprintf("Unhandled command type %T", cmd))
	}
}

// handleJoin replies with the backlog (unicast), then broadcasts the updated
// presence set before the join announcement. Tests pin that order.
func (h *Hub) handleJoin(ctx context.Context, c domain.JoinCommand) {
	if !h.registry.Join(c.Connection, c.Username) {
		h.log.Debug("Join for unknown connection", "connection", c.Connection)
		return
	}

	if sink, ok := h.registry.Sink(c.Connection); ok {
		h.deliver(ctx, sink, event.HistoryLoaded{Messages: h.history.Messages()})
	}
	h.broadcast(ctx, event.UserListUpdated{Users: h.registry.CurrentUsers()})

	announcement := domain.NewJoinAnnouncement(c.Username, h.now().UTC())
	h.append(&announcement)
	h.broadcast(ctx, event.SystemMessagePosted{Message: announcement})
}

func (h *Hub) handleSend(ctx context.Context, c domain.SendMessageCommand) {
	msg := domain.NewUserMessage(c.Text, c.Sender, h.now().UTC())
	h.append(&msg)
	h.broadcast(ctx, event.MessageReceived{Message: msg})
}

// handleDisconnect is a silent no-op for a connection that never joined.
func (h *Hub) handleDisconnect(ctx context.Context, c domain.DisconnectCommand) {
	username, joined := h.registry.Disconnect(c.Connection)
	if !joined {
		return
	}

	h.broadcast(ctx, event.UserListUpdated{Users: h.registry.CurrentUsers()})

	announcement := domain.NewLeaveAnnouncement(username, h.now().UTC())
	h.append(&announcement)
	h.broadcast(ctx, event.SystemMessagePosted{Message: announcement})
}

// append writes to the retained window and spawns the backend sync. Both
// failure modes are logged and swallowed: the broadcast proceeds regardless,
// availability wins over durability here.
func (h *Hub) append(m *domain.Message) {
	if err := h.history.Append(m); err != nil {
		h.log.Warn("History append failed", "id", m.ID, "error", err)
	}
	h.persist()
}

// persist spawns one detached task per append. The timeout guarantees a hung
// backend can never stall the loop or pile up goroutines forever.
func (h *Hub) persist() {
	ctx, cancel := context.WithTimeout(context.Background(), h.persistTimeout)
	go func() {
		defer cancel()
		if err := h.history.Persist(ctx); err != nil {
			h.log.Warn("History persistence failed", "error", err)
		}
	}()
}

func (h *Hub) broadcast(ctx context.Context, e event.Outbound) {
	for _, sink := range h.registry.Sinks() {
		h.deliver(ctx, sink, e)
	}
}

func (h *Hub) deliver(ctx context.Context, sink contract.EventSink, e event.Outbound) {
	if err := sink.Consume(ctx, e); err != nil {
		h.log.Debug("Dropped outbound event", "event", e.Name(), "error", err)
	}
}
