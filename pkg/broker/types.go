package broker

// Envelope is the caller-supplied payload unit: an opaque id plus an
// arbitrary structured payload passed through unchanged.
type Envelope struct {
	ID      string
	Payload any
}

// Delivery pairs a payload with the topic it was published to, the unit
// that moves through a subscriber's outbound queue.
type Delivery struct {
	Topic   string
	Payload Envelope
}

// Sink is the narrow, non-owning handle the broker uses to push drained
// deliveries and lifecycle notices out to a subscriber's session. It never
// exposes the underlying connection, only the ability to emit outbound
// envelopes and request a close.
type Sink interface {
	// SendEvent hands one fanned-out publish to the session's transport.
	SendEvent(topic string, env Envelope) error
	// SendInfo emits a broadcast-style info envelope (e.g. "topic_deleted").
	SendInfo(msg string) error
	// Close best-effort terminates the underlying connection.
	Close()
}

// TopicStats is the per-topic counter snapshot exposed by GET /stats.
type TopicStats struct {
	Messages    uint64 `json:"messages"`
	Subscribers int    `json:"subscribers"`
	Delivered   uint64 `json:"delivered"`
	Dropped     uint64 `json:"dropped"`
}

// TopicSummary is one entry of the GET /topics listing.
type TopicSummary struct {
	Name        string `json:"name"`
	Subscribers int    `json:"subscribers"`
}

// HealthSnapshot is the GET /health body.
type HealthSnapshot struct {
	UptimeSec   int64 `json:"uptime_sec"`
	Topics      int   `json:"topics"`
	Subscribers int   `json:"subscribers"`
}
