// Package domain contains core concepts of the chat relay.
// Messages are immutable once minted; timestamps are always
// server-assigned, never taken from a client.
package domain

import (
	"fmt"
	"strconv"
	"time"
)

// SystemSender is the reserved sender name for join/leave announcements.
const SystemSender = "System"

// Message represents one chat event, user-sent or synthetic.
type Message struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Sender    string    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
	IsSystem  bool      `json:"isSystem"`
}

// LocalID derives a creation-time identity for history backends that do not
// assign their own. Nanosecond precision keeps ids unique within the retained
// window as long as appends go through a single writer.
func LocalID(at time.Time) string {
	return strconv.FormatInt(at.UnixNano(), 10)
}

func NewUserMessage(text, sender string, at time.Time) Message {
	return Message{
		ID:        LocalID(at),
		Text:      text,
		Sender:    sender,
		Timestamp: at,
	}
}

func NewJoinAnnouncement(username string, at time.Time) Message {
	return newAnnouncement(fmt.Sprintf("%s joined the chat", username), at)
}

func NewLeaveAnnouncement(username string, at time.Time) Message {
	return newAnnouncement(fmt.Sprintf("%s left the chat", username), at)
}

func newAnnouncement(text string, at time.Time) Message {
	return Message{
		ID:        LocalID(at),
		Text:      text,
		Sender:    SystemSender,
		Timestamp: at,
		IsSystem:  true,
	}
}
