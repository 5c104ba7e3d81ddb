package broker

import (
	"sync"
	"time"
)

// Registry is the broker: the sole owner of topic records, and the only
// thing that sees both the topic map and the connection-to-topic fan-out.
// A single mutex guards the topic map and every topic record reachable
// through it — spec.md §9 rules out a per-topic locking hierarchy on top of
// the registry's own lock, so topic.go's methods take no lock of their own
// and instead assume the caller (always a Registry method below) holds mu
// for the full duration of the check-and-mutate. Each exported operation is
// therefore atomic with respect to the registry: no other operation can
// observe, or race into, an intermediate state.
type Registry struct {
	mu        sync.Mutex
	topics    map[string]*topic
	ringSize  int
	queueSize int
	startedAt time.Time
	closed    bool
}

// NewRegistry builds an empty registry. ringSize is the per-topic replay
// capacity; queueSize is the per-subscriber outbound queue capacity.
func NewRegistry(ringSize, queueSize int) *Registry {
	return &Registry{
		topics:    make(map[string]*topic),
		ringSize:  ringSize,
		queueSize: queueSize,
		startedAt: time.Now(),
	}
}

// CreateTopic inserts a new topic record. The caller is responsible for
// name validation; CreateTopic only enforces uniqueness.
func (r *Registry) CreateTopic(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	if _, ok := r.topics[name]; ok {
		return ErrTopicExists
	}
	r.topics[name] = newTopic(name, r.ringSize, &r.mu)
	return nil
}

// DeleteTopic removes name from the registry so that new operations
// immediately see it as absent, then notifies and closes every subscriber
// that was on the topic at the moment of deletion. The removal from
// r.topics and the draining of the topic's subscriber table happen under
// one lock acquisition, so no Subscribe/Publish racing in from another
// goroutine can observe or act on the topic in between.
func (r *Registry) DeleteTopic(name string) error {
	r.mu.Lock()
	t, ok := r.topics[name]
	if !ok {
		r.mu.Unlock()
		return ErrTopicNotFound
	}
	delete(r.topics, name)
	sinks := t.drainAllForDelete()
	r.mu.Unlock()

	for _, sink := range sinks {
		_ = sink.SendInfo("topic_deleted")
		sink.Close()
	}
	return nil
}

// Subscribe installs (or replaces) handle as a subscriber of name. If the
// topic is absent, ErrTopicNotFound is returned and no state changes. A
// positive lastN replays up to that many recent payloads to this subscriber
// only, through the normal enqueue+drain path. The existence check and the
// subscriber installation happen under one lock acquisition, so a
// concurrent DeleteTopic can never remove the topic in between.
func (r *Registry) Subscribe(handle, name, clientID string, sink Sink, lastN int) error {
	r.mu.Lock()
	t, ok := r.topics[name]
	if !ok {
		r.mu.Unlock()
		return ErrTopicNotFound
	}
	t.addSubscriber(handle, clientID, sink, r.queueSize)
	replayed := t.replayTo(handle, lastN)
	r.mu.Unlock()

	if replayed != nil {
		ringDoorbell(replayed.doorbell)
	}
	return nil
}

// Unsubscribe removes handle from name's subscriber table if present.
// Idempotent: repeat calls after removal still succeed.
func (r *Registry) Unsubscribe(handle, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.topics[name]
	if !ok {
		return ErrTopicNotFound
	}
	t.removeSubscriber(handle)
	return nil
}

// Publish appends payload to name's replay ring and fans it out to every
// current subscriber. Returns the topic's messages counter after this
// publish. Publishing to an absent topic mutates nothing. The existence
// check and the enqueue pass happen under one lock acquisition; only the
// (non-blocking) doorbell rings happen after it is released.
func (r *Registry) Publish(name string, payload Envelope) (uint64, error) {
	r.mu.Lock()
	t, ok := r.topics[name]
	if !ok {
		r.mu.Unlock()
		return 0, ErrTopicNotFound
	}
	msgCount, woken := t.publish(payload)
	r.mu.Unlock()

	for _, sub := range woken {
		ringDoorbell(sub.doorbell)
	}
	return msgCount, nil
}

// HandleDisconnect removes handle from every topic's subscriber table. No
// notice is sent.
func (r *Registry) HandleDisconnect(handle string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.topics {
		t.removeSubscriber(handle)
	}
}

// Health returns the uptime/topics/subscribers snapshot for GET /health. A
// connection subscribed to k topics is counted k times.
func (r *Registry) Health() HealthSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	subs := 0
	for _, t := range r.topics {
		subs += t.subscriberCount()
	}
	return HealthSnapshot{
		UptimeSec:   int64(time.Since(r.startedAt).Seconds()),
		Topics:      len(r.topics),
		Subscribers: subs,
	}
}

// ListTopics returns an arbitrarily-ordered summary of every topic.
func (r *Registry) ListTopics() []TopicSummary {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]TopicSummary, 0, len(r.topics))
	for name, t := range r.topics {
		out = append(out, TopicSummary{Name: name, Subscribers: t.subscriberCount()})
	}
	return out
}

// Stats returns the per-topic counter snapshot for GET /stats.
func (r *Registry) Stats() map[string]TopicStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]TopicStats, len(r.topics))
	for name, t := range r.topics {
		out[name] = t.stats()
	}
	return out
}

// Stop refuses further operations and best-effort closes every session
// that holds at least one subscription, without sending a notice (unlike
// DeleteTopic). Sessions with no subscription are not closed here. Heartbeats are
// stopped by the caller before Stop is invoked.
func (r *Registry) Stop() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	topics := r.topics
	r.topics = make(map[string]*topic)
	sinks := make([]Sink, 0)
	for _, t := range topics {
		sinks = append(sinks, t.drainAllForDelete()...)
	}
	r.mu.Unlock()

	for _, sink := range sinks {
		sink.Close()
	}
}
