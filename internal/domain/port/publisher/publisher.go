package publisher

import (
	"context"

	"github.com/chadland/notification-service/internal/domain"
)

// EventPublisher pushes outgoing domain events to external services once
// per collected event, after the producing transaction has committed.
// Publish failures are logged by the caller and never roll back the
// already-committed transaction, so downstream consumers must tolerate
// at-least-once delivery.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event) error
	Close() error
}
