package gateway_test

import (
	"chat-relay/domain"
	"chat-relay/gateway"
	"chat-relay/presence"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"context"
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func startRelay(t *testing.T) *httptest.Server {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	log := slog.Default()
	registry := presence.NewRegistry()
	hub := runtime.NewHub(log, registry, repositories.NewVolatileHistory(100), 64, time.Second)
	go func() { _ = hub.Run(ctx) }()

	gw := gateway.New(ctx, hub, registry, log, 64)
	server := httptest.NewServer(gw.Handler())
	t.Cleanup(server.Close)
	return server
}

func dialRelay(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, eventName string, payload any) {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	frame, err := json.Marshal(gateway.Envelope{Event: eventName, Payload: raw})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, frame))
}

func readEvent(t *testing.T, conn *websocket.Conn) gateway.Envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, frame, err := conn.ReadMessage()
	require.NoError(t, err)
	var envelope gateway.Envelope
	require.NoError(t, json.Unmarshal(frame, &envelope))
	return envelope
}

func readNamed(t *testing.T, conn *websocket.Conn, eventName string) gateway.Envelope {
	t.Helper()
	envelope := readEvent(t, conn)
	require.Equal(t, eventName, envelope.Event)
	return envelope
}

func Test_Join_Over_Websocket(t *testing.T) {
	req := require.New(t)
	server := startRelay(t)
	conn := dialRelay(t, server)

	// When the client joins
	send(t, conn, gateway.EventJoin, "alice")

	// Then it receives the backlog, the presence set, and the announcement
	history := readNamed(t, conn, "load_history")
	req.JSONEq(`[]`, string(history.Payload))

	users := readNamed(t, conn, "update_users")
	var names []string
	req.NoError(json.Unmarshal(users.Payload, &names))
	req.Equal([]string{"alice"}, names)

	announcement := readNamed(t, conn, "system_message")
	var msg domain.Message
	req.NoError(json.Unmarshal(announcement.Payload, &msg))
	req.Equal("alice joined the chat", msg.Text)
	req.Equal(domain.SystemSender, msg.Sender)
	req.True(msg.IsSystem)
}

func Test_Message_Reaches_Every_Connection(t *testing.T) {
	req := require.New(t)
	server := startRelay(t)

	alice := dialRelay(t, server)

	send(t, alice, gateway.EventJoin, "alice")
	readNamed(t, alice, "load_history")
	readNamed(t, alice, "update_users")
	readNamed(t, alice, "system_message")

	bob := dialRelay(t, server)
	send(t, bob, gateway.EventJoin, "bob")
	readNamed(t, bob, "load_history")
	readNamed(t, bob, "update_users")
	readNamed(t, bob, "system_message")

	// alice observes bob's arrival
	readNamed(t, alice, "update_users")
	readNamed(t, alice, "system_message")

	// When bob sends a message
	send(t, bob, gateway.EventSendMessage, gateway.SendMessagePayload{Text: "hi all", Sender: "bob"})

	// Then both connections receive it, bob included
	for _, conn := range []*websocket.Conn{alice, bob} {
		received := readNamed(t, conn, "receive_message")
		var msg domain.Message
		req.NoError(json.Unmarshal(received.Payload, &msg))
		req.Equal("hi all", msg.Text)
		req.Equal("bob", msg.Sender)
		req.False(msg.IsSystem)
	}
}

func Test_Backlog_Replay_On_Late_Join(t *testing.T) {
	req := require.New(t)
	server := startRelay(t)

	alice := dialRelay(t, server)
	send(t, alice, gateway.EventJoin, "alice")
	readNamed(t, alice, "load_history")
	readNamed(t, alice, "update_users")
	readNamed(t, alice, "system_message")

	send(t, alice, gateway.EventSendMessage, gateway.SendMessagePayload{Text: "first!", Sender: "alice"})
	readNamed(t, alice, "receive_message")

	// When bob joins after the fact
	bob := dialRelay(t, server)
	send(t, bob, gateway.EventJoin, "bob")

	// Then his replay holds alice's announcement and message, in order
	history := readNamed(t, bob, "load_history")
	var backlog []domain.Message
	req.NoError(json.Unmarshal(history.Payload, &backlog))
	req.Len(backlog, 2)
	req.Equal("alice joined the chat", backlog[0].Text)
	req.Equal("first!", backlog[1].Text)
	req.False(backlog[1].Timestamp.Before(backlog[0].Timestamp))
}

func Test_Leave_Announced_On_Transport_Close(t *testing.T) {
	req := require.New(t)
	server := startRelay(t)

	alice := dialRelay(t, server)
	bob := dialRelay(t, server)

	send(t, alice, gateway.EventJoin, "alice")
	readNamed(t, alice, "load_history")
	readNamed(t, alice, "update_users")
	readNamed(t, alice, "system_message")

	send(t, bob, gateway.EventJoin, "bob")
	readNamed(t, alice, "update_users")
	readNamed(t, alice, "system_message")

	// When bob's transport drops
	req.NoError(bob.Close())

	// Then alice sees the presence update before the leave announcement
	users := readNamed(t, alice, "update_users")
	var names []string
	req.NoError(json.Unmarshal(users.Payload, &names))
	req.Equal([]string{"alice"}, names)

	announcement := readNamed(t, alice, "system_message")
	var msg domain.Message
	req.NoError(json.Unmarshal(announcement.Payload, &msg))
	req.Equal("bob left the chat", msg.Text)
}

func Test_Close_Before_Join_Produces_No_Events(t *testing.T) {
	req := require.New(t)
	server := startRelay(t)

	alice := dialRelay(t, server)
	send(t, alice, gateway.EventJoin, "alice")
	readNamed(t, alice, "load_history")
	readNamed(t, alice, "update_users")
	readNamed(t, alice, "system_message")

	// When an anonymous connection opens and closes
	ghost := dialRelay(t, server)
	req.NoError(ghost.Close())

	// Then alice sees nothing but her own later message
	send(t, alice, gateway.EventSendMessage, gateway.SendMessagePayload{Text: "still here", Sender: "alice"})
	received := readNamed(t, alice, "receive_message")

	var msg domain.Message
	req.NoError(json.Unmarshal(received.Payload, &msg))
	req.Equal("still here", msg.Text)
}

func Test_Malformed_Frames_Are_Skipped(t *testing.T) {
	req := require.New(t)
	server := startRelay(t)

	conn := dialRelay(t, server)
	req.NoError(conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	send(t, conn, "unknown_event", "whatever")
	send(t, conn, gateway.EventSendMessage, map[string]string{"text": "no sender"})

	// The connection stays usable after every rejected frame
	send(t, conn, gateway.EventJoin, "alice")
	readNamed(t, conn, "load_history")
}
