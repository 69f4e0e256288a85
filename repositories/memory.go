package repositories

import (
	"chat-relay/domain"
	"context"
)

// VolatileHistory keeps the retained window in process memory only. Losing
// the backlog on restart is the expected behavior of this backend, not a
// defect.
type VolatileHistory struct {
	window *window
}

func NewVolatileHistory(limit int) *VolatileHistory {
	return &VolatileHistory{window: newWindow(limit)}
}

func (h *VolatileHistory) Load(_ context.Context) ([]domain.Message, error) {
	return nil, nil
}

func (h *VolatileHistory) Append(m *domain.Message) error {
	h.window.append(*m)
	return nil
}

func (h *VolatileHistory) Persist(_ context.Context) error {
	return nil
}

func (h *VolatileHistory) Messages() []domain.Message {
	return h.window.snapshot()
}
