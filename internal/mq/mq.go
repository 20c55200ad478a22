// Package mq provides a broker-agnostic publish/consume layer over RabbitMQ
// or Google Cloud Pub/Sub. The queue notifier publishes outbound mail through
// it and the worker command drains it.
package mq

import "context"

// Message is a broker-agnostic payload.
type Message struct {
	ID      string
	Body    []byte
	Headers map[string]string
}

// ConsumeFunc processes one message. Returning an error nacks the message so
// the broker can redeliver it.
type ConsumeFunc func(ctx context.Context, msg Message) error

// Broker abstracts the underlying queueing system.
type Broker interface {
	// Publish sends a message to the named queue and returns its id.
	Publish(ctx context.Context, queue string, body []byte, headers map[string]string) (string, error)

	// Consume blocks delivering messages from the named queue to fn until
	// the context is cancelled.
	Consume(ctx context.Context, queue string, fn ConsumeFunc) error

	Close() error
}
