// Package broker implements an in-memory publish/subscribe bus: a topic
// registry, a bounded per-subscriber outbound queue with drop-oldest
// backpressure, and a fixed-capacity per-topic replay ring for late
// joiners.
package broker
