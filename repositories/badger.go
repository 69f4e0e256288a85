package repositories

import (
	"chat-relay/domain"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/dgraph-io/badger/v4"
)

const (
	recordPrefix = "msg:"
	sequenceKey  = "seq:message"
	// reverse scans seek here first: '9' sorts above every padded timestamp
	reverseSeekSuffix = "9999999999999999999"
)

// DurableHistory writes one BadgerDB record per message. The key is
// "msg:{timestamp_padded}:{id}": 19-digit zero padding makes lexicographic
// order chronological, and the id suffix disambiguates two messages landing
// on the same nanosecond.
//
// Identity is assigned by the store, from a Badger sequence, and copied back
// into the message before it is broadcast. When the sequence fails the
// message keeps its locally minted id so delivery is never gated by storage.
type DurableHistory struct {
	window    *window
	db        *badger.DB
	seq       *badger.Sequence
	log       *slog.Logger
	loadLimit int

	mu      sync.Mutex
	pending []domain.Message
}

func NewDurableHistory(db *badger.DB, log *slog.Logger, limit, loadLimit int) (*DurableHistory, error) {
	seq, err := db.GetSequence([]byte(sequenceKey), 64)
	if err != nil {
		return nil, fmt.Errorf("acquiring message sequence: %w", err)
	}
	return &DurableHistory{
		window:    newWindow(limit),
		db:        db,
		seq:       seq,
		log:       log,
		loadLimit: loadLimit,
	}, nil
}

// Close releases the unconsumed part of the sequence band.
func (h *DurableHistory) Close() error {
	return h.seq.Release()
}

// Load retrieves the most recent records with a reverse prefix scan, then
// reverses them back to chronological order before seeding the window.
func (h *DurableHistory) Load(_ context.Context) ([]domain.Message, error) {
	var raw [][]byte
	err := h.db.View(func(txn *badger.Txn) error {
		prefix := []byte(recordPrefix)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		seekKey := append([]byte(recordPrefix), reverseSeekSuffix...)
		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			if len(raw) == h.loadLimit {
				h.log.Debug(fmt.Sprintf("Load limit of %d records reached", h.loadLimit))
				break
			}
			err := it.Item().Value(func(value []byte) error {
				raw = append(raw, append([]byte(nil), value...))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning history records: %w", err)
	}

	messages := make([]domain.Message, 0, len(raw))
	for i := len(raw) - 1; i >= 0; i-- {
		var m domain.Message
		if err := json.Unmarshal(raw[i], &m); err != nil {
			return nil, fmt.Errorf("decoding history record: %w", err)
		}
		messages = append(messages, m)
	}
	h.window.seed(messages)
	return h.window.snapshot(), nil
}

// Append assigns the store identity and queues the record for the next
// Persist call. The in-memory window is updated unconditionally.
func (h *DurableHistory) Append(m *domain.Message) error {
	next, err := h.seq.Next()
	if err == nil {
		m.ID = strconv.FormatUint(next, 10)
	} else {
		h.log.Warn("Sequence unavailable, keeping local message id", "id", m.ID, "error", err)
	}

	h.window.append(*m)

	h.mu.Lock()
	h.pending = append(h.pending, *m)
	h.mu.Unlock()
	return nil
}

// Persist drains the pending queue into Badger. Records that fail to write
// are dropped, not retried: the broadcast already happened and the window
// still holds them for replay.
func (h *DurableHistory) Persist(ctx context.Context) error {
	h.mu.Lock()
	batch := h.pending
	h.pending = nil
	h.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	return h.db.Update(func(txn *badger.Txn) error {
		for _, m := range batch {
			value, err := json.Marshal(m)
			if err != nil {
				return err
			}
			key := fmt.Sprintf("%s%019d:%s", recordPrefix, m.Timestamp.UnixNano(), m.ID)
			if err := txn.Set([]byte(key), value); err != nil {
				return err
			}
		}
		return nil
	})
}

func (h *DurableHistory) Messages() []domain.Message {
	return h.window.snapshot()
}
