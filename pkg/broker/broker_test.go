package broker

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeSink is an in-memory Sink used to observe what the broker delivers
// without a real transport.
type fakeSink struct {
	mu      sync.Mutex
	events  []Delivery
	infos   []string
	closed  bool
	blockOn chan struct{} // if set, SendEvent waits to receive before recording
}

func newFakeSink() *fakeSink { return &fakeSink{} }

func (f *fakeSink) SendEvent(topic string, env Envelope) error {
	if f.blockOn != nil {
		<-f.blockOn
	}
	f.mu.Lock()
	f.events = append(f.events, Delivery{Topic: topic, Payload: env})
	f.mu.Unlock()
	return nil
}

func (f *fakeSink) SendInfo(msg string) error {
	f.mu.Lock()
	f.infos = append(f.infos, msg)
	f.mu.Unlock()
	return nil
}

func (f *fakeSink) Close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
}

func (f *fakeSink) snapshotEvents() []Delivery {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Delivery, len(f.events))
	copy(out, f.events)
	return out
}

func (f *fakeSink) snapshotInfos() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.infos))
	copy(out, f.infos)
	return out
}

func (f *fakeSink) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func waitUntil(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	require.True(t, cond(), "condition not met within %s", timeout)
}

// S1 — fan-out: two subscribers each receive three publishes in order.
func TestPublishFanOutPreservesOrder(t *testing.T) {
	reg := NewRegistry(100, 512)
	t.Cleanup(reg.Stop)
	require.NoError(t, reg.CreateTopic("e2e"))

	a, b := newFakeSink(), newFakeSink()
	require.NoError(t, reg.Subscribe("connA", "e2e", "clientA", a, 0))
	require.NoError(t, reg.Subscribe("connB", "e2e", "clientB", b, 0))

	for i, id := range []string{"m0", "m1", "m2"} {
		_, err := reg.Publish("e2e", Envelope{ID: id, Payload: map[string]int{"seq": i}})
		require.NoError(t, err)
	}

	waitUntil(t, 500*time.Millisecond, func() bool { return len(a.snapshotEvents()) == 3 })
	waitUntil(t, 500*time.Millisecond, func() bool { return len(b.snapshotEvents()) == 3 })

	for _, sink := range []*fakeSink{a, b} {
		events := sink.snapshotEvents()
		require.Len(t, events, 3)
		assert.Equal(t, []string{"m0", "m1", "m2"}, []string{events[0].Payload.ID, events[1].Payload.ID, events[2].Payload.ID})
	}
}

// S2 — replay: a late joiner with last_n:2 receives only the most recent two.
func TestSubscribeReplayDeliversLastN(t *testing.T) {
	reg := NewRegistry(100, 512)
	t.Cleanup(reg.Stop)
	require.NoError(t, reg.CreateTopic("e2e"))

	for _, id := range []string{"m0", "m1", "m2"} {
		_, err := reg.Publish("e2e", Envelope{ID: id})
		require.NoError(t, err)
	}

	c := newFakeSink()
	require.NoError(t, reg.Subscribe("connC", "e2e", "clientC", c, 2))

	waitUntil(t, 300*time.Millisecond, func() bool { return len(c.snapshotEvents()) == 2 })
	events := c.snapshotEvents()
	assert.Equal(t, []string{"m1", "m2"}, []string{events[0].Payload.ID, events[1].Payload.ID})
}

// S3 — isolation: a subscriber of one topic never sees another topic's publishes.
func TestPublishIsolatedToItsTopic(t *testing.T) {
	reg := NewRegistry(100, 512)
	t.Cleanup(reg.Stop)
	require.NoError(t, reg.CreateTopic("e2e"))
	require.NoError(t, reg.CreateTopic("e2e2"))

	i := newFakeSink()
	require.NoError(t, reg.Subscribe("connI", "e2e2", "clientI", i, 0))

	_, err := reg.Publish("e2e", Envelope{ID: "m0"})
	require.NoError(t, err)

	time.Sleep(200 * time.Millisecond)
	assert.Empty(t, i.snapshotEvents())
}

// S4 — missing topic: publish to an absent topic errors and mutates nothing.
func TestPublishToMissingTopicErrors(t *testing.T) {
	reg := NewRegistry(100, 512)
	t.Cleanup(reg.Stop)

	_, err := reg.Publish("missing", Envelope{ID: "m0"})
	assert.ErrorIs(t, err, ErrTopicNotFound)
	assert.Empty(t, reg.Stats())
}

// S5 — delete propagates: subscribers get an info envelope and are closed.
func TestDeleteTopicNotifiesAndClosesSubscribers(t *testing.T) {
	reg := NewRegistry(100, 512)
	t.Cleanup(reg.Stop)
	require.NoError(t, reg.CreateTopic("e2e"))

	d := newFakeSink()
	require.NoError(t, reg.Subscribe("connD", "e2e", "clientD", d, 0))

	require.NoError(t, reg.DeleteTopic("e2e"))

	assert.Equal(t, []string{"topic_deleted"}, d.snapshotInfos())
	assert.True(t, d.isClosed())

	err := reg.Subscribe("connD", "e2e", "clientD", d, 0)
	assert.ErrorIs(t, err, ErrTopicNotFound)
}

// S6 — backpressure: a saturated slow consumer drops, and the books balance.
func TestPublishBackpressureAccounting(t *testing.T) {
	reg := NewRegistry(100, 512)
	t.Cleanup(reg.Stop)
	require.NoError(t, reg.CreateTopic("bp"))

	s := newFakeSink()
	s.blockOn = make(chan struct{})
	require.NoError(t, reg.Subscribe("connS", "bp", "clientS", s, 0))

	const total = 1200
	for i := 0; i < total; i++ {
		_, err := reg.Publish("bp", Envelope{ID: string(rune(i))})
		require.NoError(t, err)
	}

	// Let the worker's one in-flight SendEvent proceed, then drain the rest.
	close(s.blockOn)
	waitUntil(t, time.Second, func() bool {
		stats := reg.Stats()["bp"]
		return stats.Delivered+stats.Dropped == total
	})

	stats := reg.Stats()["bp"]
	assert.Equal(t, uint64(total), stats.Messages)
	assert.Greater(t, stats.Dropped, uint64(0))
	assert.Equal(t, uint64(total), stats.Delivered+stats.Dropped)
}

// Invariant: subscriber table round-trips through subscribe/unsubscribe.
func TestSubscribeUnsubscribeRoundTrips(t *testing.T) {
	reg := NewRegistry(100, 512)
	t.Cleanup(reg.Stop)
	require.NoError(t, reg.CreateTopic("t"))

	before := reg.ListTopics()[0].Subscribers
	require.NoError(t, reg.Subscribe("conn1", "t", "c1", newFakeSink(), 0))
	require.NoError(t, reg.Unsubscribe("conn1", "t"))
	after := reg.ListTopics()[0].Subscribers

	assert.Equal(t, before, after)
}

// Idempotence: repeated unsubscribe calls both succeed.
func TestUnsubscribeIsIdempotent(t *testing.T) {
	reg := NewRegistry(100, 512)
	t.Cleanup(reg.Stop)
	require.NoError(t, reg.CreateTopic("t"))
	require.NoError(t, reg.Subscribe("conn1", "t", "c1", newFakeSink(), 0))

	require.NoError(t, reg.Unsubscribe("conn1", "t"))
	require.NoError(t, reg.Unsubscribe("conn1", "t"))
}

func TestCreateTopicConflict(t *testing.T) {
	reg := NewRegistry(100, 512)
	t.Cleanup(reg.Stop)
	require.NoError(t, reg.CreateTopic("t"))
	err := reg.CreateTopic("t")
	assert.True(t, errors.Is(err, ErrTopicExists))
}

func TestHandleDisconnectRemovesFromAllTopics(t *testing.T) {
	reg := NewRegistry(100, 512)
	t.Cleanup(reg.Stop)
	require.NoError(t, reg.CreateTopic("t1"))
	require.NoError(t, reg.CreateTopic("t2"))
	require.NoError(t, reg.Subscribe("conn1", "t1", "c1", newFakeSink(), 0))
	require.NoError(t, reg.Subscribe("conn1", "t2", "c1", newFakeSink(), 0))

	reg.HandleDisconnect("conn1")

	for _, ts := range reg.ListTopics() {
		assert.Equal(t, 0, ts.Subscribers)
	}
}

func TestResubscribeReplacesSilently(t *testing.T) {
	reg := NewRegistry(100, 512)
	t.Cleanup(reg.Stop)
	require.NoError(t, reg.CreateTopic("t"))

	first := newFakeSink()
	second := newFakeSink()
	require.NoError(t, reg.Subscribe("conn1", "t", "c1", first, 0))
	require.NoError(t, reg.Subscribe("conn1", "t", "c1", second, 0))

	_, err := reg.Publish("t", Envelope{ID: "m0"})
	require.NoError(t, err)

	waitUntil(t, 300*time.Millisecond, func() bool { return len(second.snapshotEvents()) == 1 })
	assert.Empty(t, first.snapshotEvents())
	assert.Equal(t, 1, reg.ListTopics()[0].Subscribers)
}
