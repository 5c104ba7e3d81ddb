// Package server wires the broker registry, connection hub, heartbeat, and
// HTTP surface into one process, and owns its graceful shutdown sequence.
package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/adityasinghania3802/pub-sub-plivo/internal/config"
	"github.com/adityasinghania3802/pub-sub-plivo/internal/connhub"
	"github.com/adityasinghania3802/pub-sub-plivo/internal/heartbeat"
	"github.com/adityasinghania3802/pub-sub-plivo/internal/httpapi"
	"github.com/adityasinghania3802/pub-sub-plivo/internal/transport"
	"github.com/adityasinghania3802/pub-sub-plivo/pkg/broker"
)

// Server owns every long-lived component of one pubsubd process.
type Server struct {
	cfg  config.Config
	log  zerolog.Logger
	reg  *broker.Registry
	hub  *connhub.Hub
	hb   *heartbeat.Heartbeat
	http *http.Server
}

func New(cfg config.Config, log zerolog.Logger) *Server {
	reg := broker.NewRegistry(cfg.Bus.RingBufferSize, cfg.Bus.SubscriberQueueSize)
	hub := connhub.New()
	hb := heartbeat.New(cfg.HeartbeatIntervalDuration(), hub, log)

	wsHandler := transport.NewHandler(reg, hub, log)
	api := httpapi.New(reg, wsHandler, log)

	return &Server{
		cfg: cfg,
		log: log,
		reg: reg,
		hub: hub,
		hb:  hb,
		http: &http.Server{
			Addr:    cfg.Server.ListenAddr,
			Handler: api.Router(),
		},
	}
}

// Run starts the heartbeat and HTTP listener and blocks until ctx is
// cancelled, then performs graceful shutdown: stop heartbeats, stop
// accepting new HTTP work, refuse new broker operations, and best-effort
// close every session subscribed to at least one topic. Sessions with no
// subscription are left open until the process exits.
func (s *Server) Run(ctx context.Context) error {
	hbCtx, stopHB := context.WithCancel(context.Background())
	defer stopHB()
	go s.hb.Run(hbCtx)

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.cfg.Server.ListenAddr).Msg("pubsubd listening")
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	s.log.Info().Msg("shutdown signal received")
	s.hb.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout())
	defer cancel()

	if err := s.http.Shutdown(shutdownCtx); err != nil {
		s.log.Warn().Err(err).Msg("http shutdown incomplete")
	}
	s.reg.Stop()

	s.log.Info().Msg("pubsubd stopped")
	return nil
}
