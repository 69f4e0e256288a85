package gateway

import (
	"chat-relay/domain/event"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Inbound event names. Outbound names come from each event.Outbound itself.
const (
	EventJoin        = "join"
	EventSendMessage = "send_message"
)

var validate = validator.New()

// Envelope frames every websocket exchange in both directions as
// {"event": ..., "payload": ...}.
type Envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// SendMessagePayload is the inbound body of a send_message event. The sender
// travels in the payload, matching the browser client, and is not checked
// against presence state. Text is relayed verbatim, empty included.
type SendMessagePayload struct {
	Text   string `json:"text"`
	Sender string `json:"sender" validate:"required"`
}

// decodeJoin reads the join payload, a bare JSON string username.
func decodeJoin(payload json.RawMessage) (string, error) {
	var username string
	if err := json.Unmarshal(payload, &username); err != nil {
		return "", fmt.Errorf("join payload: %w", err)
	}
	if err := validate.Var(username, "required"); err != nil {
		return "", fmt.Errorf("join payload: %w", err)
	}
	return username, nil
}

func decodeSendMessage(payload json.RawMessage) (SendMessagePayload, error) {
	var body SendMessagePayload
	if err := json.Unmarshal(payload, &body); err != nil {
		return SendMessagePayload{}, fmt.Errorf("send_message payload: %w", err)
	}
	if err := validate.Struct(body); err != nil {
		return SendMessagePayload{}, fmt.Errorf("send_message payload: %w", err)
	}
	return body, nil
}

// encode frames an outbound event for the wire.
func encode(e event.Outbound) ([]byte, error) {
	payload, err := json.Marshal(e.Body())
	if err != nil {
		return nil, fmt.Errorf("encoding %s payload: %w", e.Name(), err)
	}
	return json.Marshal(Envelope{Event: e.Name(), Payload: payload})
}
