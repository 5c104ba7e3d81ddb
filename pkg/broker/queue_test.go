package broker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutboundQueueFIFO(t *testing.T) {
	q := newOutboundQueue(4)
	for i := 0; i < 4; i++ {
		dropped := q.push(Delivery{Topic: "t", Payload: Envelope{ID: string(rune('a' + i))}})
		require.Equal(t, 0, dropped)
	}
	require.Equal(t, 4, q.size())

	out := q.drain(10)
	require.Len(t, out, 4)
	for i, d := range out {
		assert.Equal(t, string(rune('a'+i)), d.Payload.ID)
	}
	assert.Equal(t, 0, q.size())
}

func TestOutboundQueueDropOldest(t *testing.T) {
	q := newOutboundQueue(2)
	q.push(Delivery{Payload: Envelope{ID: "1"}})
	q.push(Delivery{Payload: Envelope{ID: "2"}})

	dropped := q.push(Delivery{Payload: Envelope{ID: "3"}})
	require.Equal(t, 1, dropped)
	require.Equal(t, 2, q.size())

	out := q.drain(2)
	require.Len(t, out, 2)
	assert.Equal(t, "2", out[0].Payload.ID)
	assert.Equal(t, "3", out[1].Payload.ID)
}

func TestOutboundQueueZeroCapacityAlwaysDrops(t *testing.T) {
	q := newOutboundQueue(0)
	dropped := q.push(Delivery{Payload: Envelope{ID: "x"}})
	assert.Equal(t, 1, dropped)
	assert.Equal(t, 0, q.size())
	assert.Empty(t, q.drain(10))
}

func TestOutboundQueueDrainRespectsMax(t *testing.T) {
	q := newOutboundQueue(10)
	for i := 0; i < 10; i++ {
		q.push(Delivery{Payload: Envelope{ID: string(rune('a' + i))}})
	}
	first := q.drain(3)
	require.Len(t, first, 3)
	assert.Equal(t, 7, q.size())

	rest := q.drain(100)
	require.Len(t, rest, 7)
	assert.Equal(t, 0, q.size())
}

func TestOutboundQueueWrapsAroundBuffer(t *testing.T) {
	q := newOutboundQueue(3)
	q.push(Delivery{Payload: Envelope{ID: "1"}})
	q.push(Delivery{Payload: Envelope{ID: "2"}})
	q.drain(1) // head now at index 1, count 1
	q.push(Delivery{Payload: Envelope{ID: "3"}})
	q.push(Delivery{Payload: Envelope{ID: "4"}}) // wraps into index 0

	out := q.drain(10)
	require.Len(t, out, 3)
	assert.Equal(t, []string{"2", "3", "4"}, []string{out[0].Payload.ID, out[1].Payload.ID, out[2].Payload.ID})
}
