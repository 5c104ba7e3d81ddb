// Package connhub tracks every currently connected session, independent of
// topic membership, so the heartbeat can broadcast to all of them. This is
// deliberately separate from the broker registry's topic subscriber tables:
// a connection belongs here the instant it is accepted and regardless of
// whether it has subscribed to anything.
package connhub

import "sync"

// Sink is the narrow interface the hub needs to reach a session: just
// enough to push a broadcast info envelope.
type Sink interface {
	SendInfo(msg string) error
}

// Hub is a registry of live connections keyed by connection handle.
type Hub struct {
	mu    sync.Mutex
	conns map[string]Sink
}

func New() *Hub {
	return &Hub{conns: make(map[string]Sink)}
}

// Add registers handle as live. Re-adding the same handle replaces its sink.
func (h *Hub) Add(handle string, sink Sink) {
	h.mu.Lock()
	h.conns[handle] = sink
	h.mu.Unlock()
}

// Remove deregisters handle. A no-op if handle is unknown.
func (h *Hub) Remove(handle string) {
	h.mu.Lock()
	delete(h.conns, handle)
	h.mu.Unlock()
}

// Broadcast sends msg as an info envelope to every currently connected
// session. Best-effort: send failures are ignored.
func (h *Hub) Broadcast(msg string) {
	h.mu.Lock()
	sinks := make([]Sink, 0, len(h.conns))
	for _, s := range h.conns {
		sinks = append(sinks, s)
	}
	h.mu.Unlock()

	for _, s := range sinks {
		_ = s.SendInfo(msg)
	}
}

// Count reports how many connections are currently live.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}
