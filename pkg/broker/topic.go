package broker

import "sync"

// drainBatch bounds how many queued deliveries a subscriber worker hands to
// the transport per wake — large backlogs are drained over several passes
// rather than in one long blocking sweep.
const drainBatch = 100

// subscriberRecord is the binding between a connection handle and one topic:
// its outbound queue, its sink back to the session, and the worker that
// drains the queue to the transport.
type subscriberRecord struct {
	handle   string
	clientID string
	queue    *outboundQueue
	sink     Sink
	doorbell chan struct{}
	done     chan struct{}
}

// topic is one named multicast channel: a replay ring plus a subscriber
// table keyed by connection handle (not client id — see design notes).
//
// topic carries no lock of its own. spec.md §9 rules out a per-topic
// locking hierarchy on top of the registry's lock, so every field here is
// protected by the single *sync.Mutex the owning Registry shares with it
// (mu). Every method below except runSubscriberWorker assumes the caller
// already holds mu for the duration of the call — exactly the registry
// operation that is reading or mutating this topic. runSubscriberWorker
// runs on its own goroutine with nothing else holding the lock, so it
// acquires mu itself around each access.
type topic struct {
	name string

	mu        *sync.Mutex
	subs      map[string]*subscriberRecord
	ring      *replayRing
	messages  uint64
	delivered uint64
	dropped   uint64
}

func newTopic(name string, ringCap int, mu *sync.Mutex) *topic {
	return &topic{
		name: name,
		mu:   mu,
		subs: make(map[string]*subscriberRecord),
		ring: newReplayRing(ringCap),
	}
}

// addSubscriber installs (or, for an already-subscribed handle, silently
// replaces) the subscriber record and starts its drain worker. Caller must
// hold mu.
func (t *topic) addSubscriber(handle, clientID string, sink Sink, queueCap int) {
	if old, ok := t.subs[handle]; ok {
		close(old.done)
	}
	sub := &subscriberRecord{
		handle:   handle,
		clientID: clientID,
		queue:    newOutboundQueue(queueCap),
		sink:     sink,
		doorbell: make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	t.subs[handle] = sub

	go t.runSubscriberWorker(sub)
}

// removeSubscriber deletes the subscriber record for handle, if present,
// and stops its worker. Reports whether an entry was removed. Caller must
// hold mu.
func (t *topic) removeSubscriber(handle string) bool {
	sub, ok := t.subs[handle]
	if ok {
		delete(t.subs, handle)
		close(sub.done)
	}
	return ok
}

// publish appends payload to the replay ring and enqueues it onto every
// current subscriber's outbound queue in one pass (the "single logical
// step" required by the atomicity contract), then wakes each subscriber's
// worker to drain and deliver asynchronously. Returns the topic's messages
// counter after this publish. Caller must hold mu for the enqueue pass;
// the doorbell rings happen after the caller has released it (see
// Registry.Publish).
func (t *topic) publish(payload Envelope) (uint64, []*subscriberRecord) {
	t.messages++
	t.ring.append(payload)
	msgCount := t.messages

	woken := make([]*subscriberRecord, 0, len(t.subs))
	for _, sub := range t.subs {
		dropped := sub.queue.push(Delivery{Topic: t.name, Payload: payload})
		t.dropped += uint64(dropped)
		woken = append(woken, sub)
	}
	return msgCount, woken
}

// replayTo pushes the last n ring payloads onto handle's own queue through
// the same enqueue path publish uses, so replay overflow is accounted
// against the topic's drop counter like any other delivery. A falsy n
// (<= 0) triggers no replay. Caller must hold mu; the returned subscriber
// record (nil if handle is unknown or nothing was replayed) should have its
// doorbell rung after the caller releases mu.
func (t *topic) replayTo(handle string, n int) *subscriberRecord {
	if n <= 0 {
		return nil
	}
	sub, ok := t.subs[handle]
	if !ok {
		return nil
	}
	envs := t.ring.last(n)
	for _, e := range envs {
		dropped := sub.queue.push(Delivery{Topic: t.name, Payload: e})
		t.dropped += uint64(dropped)
	}
	if len(envs) == 0 {
		return nil
	}
	return sub
}

// runSubscriberWorker is the sole drainer of sub.queue: it blocks on the
// doorbell, then drains and delivers in batches of up to drainBatch until
// the queue empties, then waits again. This is the only place a subscriber's
// transport write (the one real suspension point) can block, and it never
// blocks any other subscriber or the registry, since it only holds mu for
// the brief drain/counter-update sections, not across the transport write.
func (t *topic) runSubscriberWorker(sub *subscriberRecord) {
	for {
		select {
		case <-sub.done:
			return
		case <-sub.doorbell:
		}

		for {
			t.mu.Lock()
			batch := sub.queue.drain(drainBatch)
			t.mu.Unlock()
			if len(batch) == 0 {
				break
			}

			delivered := 0
			for _, d := range batch {
				if err := sub.sink.SendEvent(d.Topic, d.Payload); err == nil {
					delivered++
				}
			}
			if delivered > 0 {
				t.mu.Lock()
				t.delivered += uint64(delivered)
				t.mu.Unlock()
			}
		}
	}
}

// drainAllForDelete detaches every subscriber (stopping its worker) and
// returns their sinks so the caller can notify and close each connection
// after releasing mu. Caller must hold mu.
func (t *topic) drainAllForDelete() []Sink {
	sinks := make([]Sink, 0, len(t.subs))
	for _, sub := range t.subs {
		sinks = append(sinks, sub.sink)
		close(sub.done)
	}
	t.subs = make(map[string]*subscriberRecord)
	return sinks
}

// subscriberCount reports the current subscriber count. Caller must hold mu.
func (t *topic) subscriberCount() int {
	return len(t.subs)
}

// stats snapshots the topic's counters. Caller must hold mu.
func (t *topic) stats() TopicStats {
	return TopicStats{
		Messages:    t.messages,
		Subscribers: len(t.subs),
		Delivered:   t.delivered,
		Dropped:     t.dropped,
	}
}

// ringDoorbell signals ch without blocking: if a wake is already pending the
// send is dropped, since one pending wake is enough to make the worker drain
// the full queue on its next pass.
func ringDoorbell(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
