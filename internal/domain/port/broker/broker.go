// Package broker defines the inbound messaging port. Implementations wrap
// transport messages with lifecycle control so the consumer use case can
// acknowledge, redeliver, or dead-letter independently of the transport.
package broker

import (
	"context"
	"time"
)

// Message is one inbound command or event fetched from the broker. Name
// identifies the message kind for dispatch; Payload is the raw JSON body.
//
// Exactly one of Ack, Redeliver, or MoveToDLQ must be called per message.
// The offset is only committed by these calls, so a crash before any of
// them leads to redelivery and at-least-once processing.
type Message interface {
	Name() string
	Payload() []byte
	// DeliveryCount returns how many times this message has already been
	// redelivered. Zero on first delivery.
	DeliveryCount() int
	// Ack acknowledges successful processing and commits the offset.
	Ack(ctx context.Context) error
	// Redeliver republishes the message to the source topic with an
	// incremented delivery count, then acknowledges the original. The
	// delay is advisory; implementations may republish immediately.
	Redeliver(ctx context.Context, delay time.Duration) error
	// MoveToDLQ publishes the message to the dead letter topic with the
	// processing error attached, then acknowledges the original.
	MoveToDLQ(ctx context.Context, processingError error) error
}

// MessageBroker consumes inbound messages from the transport.
type MessageBroker interface {
	// Consume runs the fetch loop until ctx is cancelled, invoking
	// consumeFunc once per message. Lifecycle calls are the
	// responsibility of consumeFunc.
	Consume(ctx context.Context, consumeFunc func(ctx context.Context, msg Message) error) error
	Close() error
}
