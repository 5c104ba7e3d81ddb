// Package session implements the per-connection envelope-processing actor
// (component E): a single-threaded consumer of inbound envelopes that
// translates them into broker calls and serializes outbound envelopes back
// onto the transport.
package session

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/adityasinghania3802/pub-sub-plivo/internal/connhub"
	"github.com/adityasinghania3802/pub-sub-plivo/internal/protocol"
	"github.com/adityasinghania3802/pub-sub-plivo/pkg/broker"
)

// Conn is the minimal transport surface a session needs. *websocket.Conn
// satisfies it directly.
type Conn interface {
	ReadJSON(v any) error
	WriteJSON(v any) error
	Close() error
}

// Registry is the subset of *broker.Registry a session drives.
type Registry interface {
	Subscribe(handle, name, clientID string, sink broker.Sink, lastN int) error
	Unsubscribe(handle, name string) error
	Publish(name string, payload broker.Envelope) (uint64, error)
	HandleDisconnect(handle string)
}

// Session binds one transport connection to the broker. Outbound writes
// are serialized through writeMu because the broker drains multiple
// topics' subscriber queues concurrently (one worker goroutine per topic
// membership) and gorilla's Conn supports only one concurrent writer.
type Session struct {
	handle string
	conn   Conn
	reg    Registry
	hub    *connhub.Hub
	log    zerolog.Logger

	writeMu   sync.Mutex
	closeOnce sync.Once
}

// New builds a session for an already-upgraded connection. handle must be
// unique for the life of the connection; it is the key the broker uses for
// this connection's subscriber records across every topic.
func New(handle string, conn Conn, reg Registry, hub *connhub.Hub, log zerolog.Logger) *Session {
	return &Session{
		handle: handle,
		conn:   conn,
		reg:    reg,
		hub:    hub,
		log:    log.With().Str("conn", handle).Logger(),
	}
}

// Run reads inbound envelopes until the connection errors, closes, or ctx
// is done. It always cleans up the connection's subscriptions on return.
func (s *Session) Run(ctx context.Context) {
	s.hub.Add(s.handle, s)
	defer func() {
		s.hub.Remove(s.handle)
		s.reg.HandleDisconnect(s.handle)
		s.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		var in protocol.Inbound
		if err := s.conn.ReadJSON(&in); err != nil {
			return
		}
		s.handleInbound(in)
	}
}

func (s *Session) handleInbound(in protocol.Inbound) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Interface("panic", r).Str("type", in.Type).Msg("session: recovered from panic handling envelope")
			_ = s.send(protocol.Error(in.RequestID, protocol.CodeInternal, "internal error"))
		}
	}()

	switch in.Type {
	case "subscribe":
		s.handleSubscribe(in)
	case "unsubscribe":
		s.handleUnsubscribe(in)
	case "publish":
		s.handlePublish(in)
	case "ping":
		_ = s.send(protocol.Pong(in.RequestID))
	default:
		_ = s.send(protocol.Error(in.RequestID, protocol.CodeBadRequest, "unknown envelope type"))
	}
}

func (s *Session) handleSubscribe(in protocol.Inbound) {
	if err := s.reg.Subscribe(s.handle, in.Topic, in.ClientID, s, in.LastN); err != nil {
		s.sendBrokerError(in.RequestID, err)
		return
	}
	_ = s.send(protocol.Ack(in.RequestID, in.Topic))
}

func (s *Session) handleUnsubscribe(in protocol.Inbound) {
	if err := s.reg.Unsubscribe(s.handle, in.Topic); err != nil {
		s.sendBrokerError(in.RequestID, err)
		return
	}
	_ = s.send(protocol.Ack(in.RequestID, in.Topic))
}

func (s *Session) handlePublish(in protocol.Inbound) {
	if in.Message == nil {
		_ = s.send(protocol.Error(in.RequestID, protocol.CodeBadRequest, "message is required"))
		return
	}
	if _, err := s.reg.Publish(in.Topic, broker.Envelope{ID: in.Message.ID, Payload: in.Message.Payload}); err != nil {
		s.sendBrokerError(in.RequestID, err)
		return
	}
	_ = s.send(protocol.Ack(in.RequestID, in.Topic))
}

func (s *Session) sendBrokerError(requestID string, err error) {
	if errors.Is(err, broker.ErrTopicNotFound) {
		_ = s.send(protocol.Error(requestID, protocol.CodeTopicNotFound, err.Error()))
		return
	}
	_ = s.send(protocol.Error(requestID, protocol.CodeInternal, err.Error()))
}

// SendEvent implements broker.Sink: it is called from the broker's
// per-topic subscriber worker, possibly concurrently across topics.
func (s *Session) SendEvent(topic string, env broker.Envelope) error {
	return s.send(protocol.Event(topic, protocol.Message{ID: env.ID, Payload: env.Payload}))
}

// SendInfo implements broker.Sink and connhub.Sink.
func (s *Session) SendInfo(msg string) error {
	return s.send(protocol.Info(msg))
}

// Close implements broker.Sink.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		_ = s.conn.Close()
	})
}

func (s *Session) send(out protocol.Outbound) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteJSON(out)
}
