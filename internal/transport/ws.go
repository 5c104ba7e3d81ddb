// Package transport upgrades HTTP requests to WebSocket connections and
// hands each one off to a new session.
package transport

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/adityasinghania3802/pub-sub-plivo/internal/connhub"
	"github.com/adityasinghania3802/pub-sub-plivo/internal/session"
	"github.com/adityasinghania3802/pub-sub-plivo/pkg/broker"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Clients are expected to be other services or test tooling on the
	// same deployment, not arbitrary browser origins; this is not a
	// browser-facing API.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Registry is the subset of *broker.Registry a session drives.
type Registry interface {
	Subscribe(handle, name, clientID string, sink broker.Sink, lastN int) error
	Unsubscribe(handle, name string) error
	Publish(name string, payload broker.Envelope) (uint64, error)
	HandleDisconnect(handle string)
}

// Handler upgrades /ws requests and runs one session per connection.
type Handler struct {
	reg Registry
	hub *connhub.Hub
	log zerolog.Logger
}

func NewHandler(reg Registry, hub *connhub.Hub, log zerolog.Logger) *Handler {
	return &Handler{reg: reg, hub: hub, log: log.With().Str("component", "transport").Logger()}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	handle := uuid.NewString()
	sess := session.New(handle, conn, h.reg, h.hub, h.log)
	sess.Run(r.Context())
}
