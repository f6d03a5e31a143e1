// Package queue is the event bus between the ingestion pipeline and the rest
// of the process. Ingest completion, task failure and cache refresh events
// are published as JSON payloads on named subjects; the main process
// subscribes and reacts (an ingest completion triggers a cache refresh).
package queue

import "context"

// Publisher publishes messages to a queue.
type Publisher interface {
	// Publish publishes a message to a subject/topic.
	Publish(ctx context.Context, subject string, data []byte) error

	// Close closes the connection.
	Close() error
}

// Subscriber subscribes to messages from a queue.
type Subscriber interface {
	// Subscribe subscribes to a subject/topic with a handler.
	Subscribe(subject string, handler MessageHandler) error

	// Unsubscribe unsubscribes from a subject/topic.
	Unsubscribe(subject string) error

	// Close closes the connection.
	Close() error
}

// MessageHandler handles incoming messages.
type MessageHandler func(data []byte) error

// Queue combines Publisher and Subscriber interfaces.
type Queue interface {
	Publisher
	Subscriber
}
