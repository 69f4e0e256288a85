//go:generate go run go.uber.org/mock/mockgen -source=history.go -destination=../mocks/mock_history.go -package=mocks
package repositories

import (
	"chat-relay/domain"
	"context"
	"sync"
)

// HistoryStore is the bounded append-only log of chat events.
//
// Load runs once at startup and hydrates the retained window from the
// backend, oldest first. Append adds one message, enforcing the bound by
// evicting the oldest entry; a backend that owns message identity writes it
// back into the message. Persist synchronizes the backend and is called
// fire-and-forget by the hub: a failure is logged by the caller and must
// never reach the broadcast path. Messages returns a copy of the current
// retained window for replay to a joining connection.
type HistoryStore interface {
	Load(ctx context.Context) ([]domain.Message, error)
	Append(m *domain.Message) error
	Persist(ctx context.Context) error
	Messages() []domain.Message
}

// window is the in-memory retained view every backend shares. It carries its
// own lock because Persist snapshots it from a background goroutine while
// the hub keeps appending.
type window struct {
	mu    sync.Mutex
	limit int
	items []domain.Message
}

func newWindow(limit int) *window {
	return &window{limit: limit}
}

func (w *window) append(m domain.Message) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.items = append(w.items, m)
	if len(w.items) > w.limit {
		w.items = w.items[1:]
	}
}

// seed replaces the window content with a loaded backlog, keeping only the
// most recent entries when the backlog exceeds the bound.
func (w *window) seed(messages []domain.Message) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(messages) > w.limit {
		messages = messages[len(messages)-w.limit:]
	}
	w.items = append([]domain.Message(nil), messages...)
}

// snapshot never returns nil so an empty backlog serializes as [] on the wire.
func (w *window) snapshot() []domain.Message {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]domain.Message, len(w.items))
	copy(out, w.items)
	return out
}
