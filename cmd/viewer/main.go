// Command viewer dumps the retained history of a Badger-backed relay as a
// table, for inspection while the server runs.
package main

import (
	"chat-relay/domain"
	"encoding/json"
	"log"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/olekukonko/tablewriter"
)

// Keys under this prefix sort chronologically, so a forward scan needs no
// ordering pass. Kept local to leave the viewer independent of the server.
const recordPrefix = "msg:"

type Config struct {
	BadgerFilepath string `envconfig:"BADGER_FILEPATH" default:"data/history"`
}

func main() {
	_ = godotenv.Load()
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		log.Fatalf("Config error: %v", err)
	}

	// Read-only mode; BypassLockGuard allows opening while the relay holds
	// the lock.
	opts := badger.DefaultOptions(config.BadgerFilepath).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(opts)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	messages, err := readMessages(db)
	if err != nil {
		log.Fatalf("Failed to read history: %v", err)
	}

	color.Cyan.Printf("%d retained messages in %s\n", len(messages), config.BadgerFilepath)

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "Timestamp", "Sender", "Text", "System"})
	for _, m := range messages {
		system := ""
		if m.IsSystem {
			system = "yes"
		}
		table.Append([]string{
			m.ID,
			m.Timestamp.Format(time.RFC3339),
			m.Sender,
			m.Text,
			system,
		})
	}
	table.Render()
}

func readMessages(db *badger.DB) ([]domain.Message, error) {
	var messages []domain.Message
	err := db.View(func(txn *badger.Txn) error {
		prefix := []byte(recordPrefix)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(value []byte) error {
				var m domain.Message
				if err := json.Unmarshal(value, &m); err != nil {
					return err
				}
				messages = append(messages, m)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return messages, err
}
