// Package publishevents pushes outgoing domain events to external services
// after the producing transaction has committed.
package publishevents

import (
	"context"

	"github.com/chadland/notification-service/internal/domain"
	"github.com/chadland/notification-service/internal/domain/port/publisher"
	"github.com/chadland/notification-service/internal/domain/port/repository"
	"github.com/chadland/notification-service/internal/observability/metrics"
	"github.com/chadland/notification-service/pkg/logger"
	"go.uber.org/zap"
)

// Handler publishes any event it is subscribed to. A publish failure is
// logged and surfaced to the bus, which isolates it: the transaction that
// produced the event is already committed and is never rolled back, so
// downstream consumers must tolerate at-least-once delivery.
type Handler struct {
	publisher publisher.EventPublisher
}

func NewHandler(pub publisher.EventPublisher) *Handler {
	return &Handler{publisher: pub}
}

func (h *Handler) Handle(ctx context.Context, _ repository.UnitOfWork, evt domain.Event) error {
	if err := h.publisher.Publish(ctx, evt); err != nil {
		metrics.EventsPublished.WithLabelValues(evt.EventName(), "false").Inc()
		logger.L().Error("Failed to publish domain event",
			zap.String("event", evt.EventName()),
			zap.String("traceID", logger.TraceIDFromContext(ctx)),
			zap.Error(err),
		)
		return err
	}
	metrics.EventsPublished.WithLabelValues(evt.EventName(), "true").Inc()
	logger.L().Info("Published domain event",
		zap.String("event", evt.EventName()),
		zap.String("traceID", logger.TraceIDFromContext(ctx)),
	)
	return nil
}
