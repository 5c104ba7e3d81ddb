package broker

import "errors"

var (
	// ErrTopicExists is returned by CreateTopic when name is already registered.
	ErrTopicExists = errors.New("broker: topic already exists")
	// ErrTopicNotFound is returned by Subscribe, Unsubscribe and Publish when
	// the named topic is absent from the registry.
	ErrTopicNotFound = errors.New("broker: topic not found")
	// ErrClosed is returned by CreateTopic after Stop. Stop also empties the
	// topic map, so Subscribe, Unsubscribe, Publish and DeleteTopic called
	// after it return ErrTopicNotFound.
	ErrClosed = errors.New("broker: closed")
)
