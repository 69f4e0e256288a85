package repositories

import (
	"chat-relay/domain"
	"context"
	"fmt"
	"testing"
	"time"

	radix "github.com/mediocregopher/radix/v3"
	"github.com/stretchr/testify/require"

	errs "chat-relay/errors"
)

// stubRedis answers GET and SET against an in-process map, enough to
// exercise the snapshot backend without a live server.
func stubRedis(store map[string]string) radix.Client {
	return radix.Stub("tcp", "127.0.0.1:6379", func(args []string) interface{} {
		switch args[0] {
		case "GET":
			blob, ok := store[args[1]]
			if !ok {
				return nil
			}
			return blob
		case "SET":
			store[args[1]] = args[2]
			return "OK"
		default:
			return fmt.Errorf("unexpected command %v", args)
		}
	})
}

func Test_Snapshot_Missing_Key_Means_Fresh_Room(t *testing.T) {
	req := require.New(t)
	history := NewSnapshotHistory(stubRedis(map[string]string{}), "chat:history", 100)

	backlog, err := history.Load(context.Background())

	req.NoError(err)
	req.Empty(backlog)
	req.Empty(history.Messages())
}

func Test_Snapshot_Persist_And_Reload(t *testing.T) {
	req := require.New(t)
	store := map[string]string{}
	history := NewSnapshotHistory(stubRedis(store), "chat:history", 100)

	// Given three messages appended and persisted
	at := time.Now().UTC()
	texts := []string{"first", "second", "third"}
	for i, text := range texts {
		m := domain.NewUserMessage(text, "alice", at.Add(time.Duration(i)*time.Minute))
		req.NoError(history.Append(&m))
	}
	req.NoError(history.Persist(context.Background()))

	// When a fresh backend hydrates from the same key
	reloaded := NewSnapshotHistory(stubRedis(store), "chat:history", 100)
	backlog, err := reloaded.Load(context.Background())
	req.NoError(err)

	// Then the backlog comes back chronological, oldest first
	req.Len(backlog, len(texts))
	for i, text := range texts {
		req.Equal(text, backlog[i].Text)
	}
	req.Equal(backlog, reloaded.Messages())
}

func Test_Snapshot_Persist_Writes_The_Bounded_Window_Only(t *testing.T) {
	req := require.New(t)
	store := map[string]string{}
	history := NewSnapshotHistory(stubRedis(store), "chat:history", 3)

	at := time.Now().UTC()
	for i := 0; i < 5; i++ {
		m := domain.NewUserMessage(fmt.Sprintf("msg-%d", i), "bob", at.Add(time.Duration(i)*time.Second))
		req.NoError(history.Append(&m))
	}
	req.NoError(history.Persist(context.Background()))

	reloaded := NewSnapshotHistory(stubRedis(store), "chat:history", 3)
	backlog, err := reloaded.Load(context.Background())
	req.NoError(err)

	// Only the retained window reached Redis, evicted entries are gone
	req.Len(backlog, 3)
	req.Equal("msg-2", backlog[0].Text)
	req.Equal("msg-4", backlog[2].Text)
}

func Test_Snapshot_Corrupted_Blob_Is_Reported(t *testing.T) {
	req := require.New(t)
	store := map[string]string{"chat:history": "{not json"}
	history := NewSnapshotHistory(stubRedis(store), "chat:history", 100)

	_, err := history.Load(context.Background())

	req.ErrorIs(err, errs.ErrHistoryCorrupted)
	req.Empty(history.Messages())
}
