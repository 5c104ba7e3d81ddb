// Package heartbeat broadcasts a periodic liveness info envelope to every
// connected session.
package heartbeat

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/adityasinghania3802/pub-sub-plivo/internal/connhub"
)

// Heartbeat ticks on a fixed interval and broadcasts {msg: "ping"} through
// hub. A single timer is shared across all connections; missed ticks (a
// slow broadcast) do not queue up, since time.Ticker only ever holds one
// pending tick.
type Heartbeat struct {
	interval time.Duration
	hub      *connhub.Hub
	log      zerolog.Logger

	stopOnce sync.Once
	stop     chan struct{}
}

func New(interval time.Duration, hub *connhub.Hub, log zerolog.Logger) *Heartbeat {
	return &Heartbeat{
		interval: interval,
		hub:      hub,
		log:      log.With().Str("component", "heartbeat").Logger(),
		stop:     make(chan struct{}),
	}
}

// Run blocks, ticking until ctx is done or Stop is called. It never ticks
// again once either fires.
func (h *Heartbeat) Run(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	h.log.Debug().Dur("interval", h.interval).Msg("heartbeat started")
	for {
		select {
		case <-ctx.Done():
			return
		case <-h.stop:
			return
		case <-ticker.C:
			h.hub.Broadcast("ping")
		}
	}
}

// Stop ends the heartbeat loop. Safe to call more than once.
func (h *Heartbeat) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
}
