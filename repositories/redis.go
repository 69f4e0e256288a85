package repositories

import (
	"chat-relay/domain"
	"context"
	"encoding/json"
	"fmt"

	radix "github.com/mediocregopher/radix/v3"

	errs "chat-relay/errors"
)

// SnapshotHistory mirrors the retained window into a single Redis key,
// overwritten wholesale on every persist. The window stays authoritative:
// Redis being down degrades durability, never availability.
type SnapshotHistory struct {
	window *window
	client radix.Client
	key    string
}

func NewSnapshotHistory(client radix.Client, key string, limit int) *SnapshotHistory {
	return &SnapshotHistory{
		window: newWindow(limit),
		client: client,
		key:    key,
	}
}

// Load fetches the blob once at startup. A missing key means a fresh room
// and yields an empty backlog without error.
func (h *SnapshotHistory) Load(_ context.Context) ([]domain.Message, error) {
	var blob []byte
	if err := h.client.Do(radix.Cmd(&blob, "GET", h.key)); err != nil {
		return nil, fmt.Errorf("fetching history blob %q: %w", h.key, err)
	}
	if len(blob) == 0 {
		return nil, nil
	}
	var messages []domain.Message
	if err := json.Unmarshal(blob, &messages); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrHistoryCorrupted, err)
	}
	h.window.seed(messages)
	return h.window.snapshot(), nil
}

func (h *SnapshotHistory) Append(m *domain.Message) error {
	h.window.append(*m)
	return nil
}

// Persist serializes the whole window and SETs it. Runs on the hub's
// fire-and-forget path, concurrent with later appends; a burst may reach
// Redis out of submission order, which the snapshot shape tolerates since
// the last write always carries the full window.
func (h *SnapshotHistory) Persist(_ context.Context) error {
	blob, err := json.Marshal(h.window.snapshot())
	if err != nil {
		return fmt.Errorf("serializing history blob: %w", err)
	}
	return h.client.Do(radix.FlatCmd(nil, "SET", h.key, blob))
}

func (h *SnapshotHistory) Messages() []domain.Message {
	return h.window.snapshot()
}
