package gateway

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	errs "chat-relay/errors"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Ensure *Client satisfies the sink contract the hub delivers through.
var _ contract.EventSink = (*Client)(nil)

// Client is the middleman between one websocket connection and the hub. The
// read pump turns frames into commands; the write pump drains the buffered
// send channel. No read limit is set: message length is deliberately
// unbounded, matching the relay's observable behavior.
type Client struct {
	id      string
	gateway *Gateway
	conn    *websocket.Conn
	send    chan []byte
	log     *slog.Logger
}

func newClient(id string, gateway *Gateway, conn *websocket.Conn) *Client {
	return &Client{
		id:      id,
		gateway: gateway,
		conn:    conn,
		send:    make(chan []byte, gateway.sendBuffer),
		log:     gateway.log.With("connection", id),
	}
}

// Consume queues one outbound event without blocking the hub loop. A full
// buffer means the client stopped draining: the connection is torn down so
// its session leaves presence instead of lingering with gaps in its view.
func (c *Client) Consume(_ context.Context, e event.Outbound) error {
	frame, err := encode(e)
	if err != nil {
		return err
	}
	select {
	case c.send <- frame:
		return nil
	default:
		_ = c.conn.Close()
		return fmt.Errorf("%w: closing slow connection, dropping %s", errs.ErrSendBufferFull, e.Name())
	}
}

func (c *Client) readPump() {
	defer func() {
		c.disconnect()
		_ = c.conn.Close()
	}()

	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Warn("Unexpected close", "error", err)
			}
			return
		}
		c.handleFrame(frame)
	}
}

// handleFrame decodes one inbound envelope and dispatches the matching
// command. Malformed frames are logged and skipped, never fatal.
func (c *Client) handleFrame(frame []byte) {
	var envelope Envelope
	if err := json.Unmarshal(frame, &envelope); err != nil {
		c.log.Debug("Invalid frame", "error", err)
		return
	}

	switch envelope.Event {
	case EventJoin:
		username, err := decodeJoin(envelope.Payload)
		if err != nil {
			c.log.Debug("Rejected join", "error", err)
			return
		}
		c.dispatch(domain.JoinCommand{Connection: c.id, Username: username})
	case EventSendMessage:
		body, err := decodeSendMessage(envelope.Payload)
		if err != nil {
			c.log.Debug("Rejected message", "error", err)
			return
		}
		c.dispatch(domain.SendMessageCommand{Connection: c.id, Text: body.Text, Sender: body.Sender})
	default:
		c.log.Debug(fmt.Sprintf("%v : %q", errs.ErrUnknownEvent, envelope.Event))
	}
}

func (c *Client) dispatch(cmd domain.Command) {
	if err := c.gateway.hub.Dispatch(c.gateway.ctx, cmd); err != nil {
		c.log.Debug("Dispatch failed", "error", err)
	}
}

func (c *Client) disconnect() {
	c.dispatch(domain.DisconnectCommand{Connection: c.id})
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.log.Debug("Write failed", "error", err)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.gateway.ctx.Done():
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			)
			return
		}
	}
}
