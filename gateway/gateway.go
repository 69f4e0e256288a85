// Package gateway is the websocket transport adapter. It accepts inbound
// connections, frames events, and hands everything state-changing to the hub.
package gateway

import (
	"chat-relay/presence"
	"chat-relay/runtime"
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type Gateway struct {
	// ctx bounds every connection's dispatching to the server lifetime, so
	// pumps cannot block on a hub that already stopped.
	ctx        context.Context
	hub        *runtime.Hub
	registry   *presence.Registry
	log        *slog.Logger
	upgrader   websocket.Upgrader
	sendBuffer int
}

func New(ctx context.Context, hub *runtime.Hub, registry *presence.Registry,
	log *slog.Logger, sendBuffer int) *Gateway {
	return &Gateway{
		ctx:      ctx,
		hub:      hub,
		registry: registry,
		log:      log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Same open-origin policy as the page the relay serves alongside
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		sendBuffer: sendBuffer,
	}
}

func (g *Gateway) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", g.ServeWS)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

// ServeWS upgrades one request and registers the connection anonymous. The
// connection only becomes visible to other users once a join event arrives.
func (g *Gateway) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.log.Warn("Upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	client := newClient(uuid.NewString(), g, conn)
	g.registry.Connect(client.id, client)
	g.log.Info("Client connected", "connection", client.id, "remote", r.RemoteAddr)

	go client.writePump()
	go client.readPump()
}
