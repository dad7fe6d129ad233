// Package queueconsumer drives the inbound message loop: it decodes each
// broker message, runs the full dispatch cascade through the message bus,
// and settles the message afterwards. A message is only acknowledged once
// the cascade has committed, giving at-least-once processing.
package queueconsumer

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/chadland/notification-service/internal/app/bus"
	"github.com/chadland/notification-service/internal/domain/port/broker"
	"github.com/chadland/notification-service/internal/observability/metrics"
	"github.com/chadland/notification-service/internal/observability/tracing"
	"github.com/chadland/notification-service/pkg/backoff"
	"github.com/chadland/notification-service/pkg/logger"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const defaultMaxRedeliveries = 3

type QueueConsumerUseCase struct {
	messageBroker    broker.MessageBroker
	messageBus       *bus.MessageBus
	maxRedeliveries  int
	backoffBaseDelay time.Duration
}

func NewQueueConsumerUseCase(
	messageBroker broker.MessageBroker,
	messageBus *bus.MessageBus,
	maxRedeliveries int,
	backoffBaseDelay time.Duration,
) *QueueConsumerUseCase {
	if maxRedeliveries <= 0 {
		logger.L().Warn("Invalid maxRedeliveries provided, defaulting",
			zap.Int("providedMaxRedeliveries", maxRedeliveries),
			zap.Int("defaultMaxRedeliveries", defaultMaxRedeliveries),
		)
		maxRedeliveries = defaultMaxRedeliveries
	}
	return &QueueConsumerUseCase{
		messageBroker:    messageBroker,
		messageBus:       messageBus,
		maxRedeliveries:  maxRedeliveries,
		backoffBaseDelay: backoffBaseDelay,
	}
}

// Execute runs the consumption loop until ctx is cancelled.
func (u *QueueConsumerUseCase) Execute(ctx context.Context) error {
	logger.L().Info("QueueConsumerUseCase starting consumption...")
	return u.messageBroker.Consume(ctx, u.processMessage)
}

// processMessage handles one inbound message end to end. Messages are
// processed sequentially: the cascade owns a transaction and the offset
// must not advance past a message whose cascade has not committed.
func (u *QueueConsumerUseCase) processMessage(ctx context.Context, msg broker.Message) (err error) {
	traceID := logger.TraceIDFromContext(ctx)

	defer func() {
		if r := recover(); r != nil {
			logger.L().Error("CRITICAL: Panic recovered while processing message",
				zap.Any("panicValue", r),
				zap.String("stacktrace", string(debug.Stack())),
				zap.String("messageName", msg.Name()),
				zap.String("traceID", traceID),
			)
			panicErr := fmt.Errorf("panic recovered: %v", r)
			if dlqErr := msg.MoveToDLQ(context.Background(), panicErr); dlqErr != nil {
				logger.L().Error("Failed to move message to DLQ after panic",
					zap.String("messageName", msg.Name()),
					zap.String("traceID", traceID),
					zap.Error(dlqErr),
				)
				err = dlqErr
			}
		}
	}()

	ctx, span := tracing.Tracer.Start(ctx, "QueueConsumer.processMessage", trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()

	startTime := time.Now()
	deliveryCount := msg.DeliveryCount()

	logger.L().Info("Processing message",
		zap.String("messageName", msg.Name()),
		zap.Int("deliveryCount", deliveryCount),
		zap.Int("maxRedeliveries", u.maxRedeliveries),
		zap.String("traceID", traceID),
	)

	decoded, decodeErr := bus.DecodeMessage(msg.Name(), msg.Payload())
	if decodeErr != nil {
		// A message that cannot be decoded will never succeed; dead-letter
		// instead of burning redeliveries.
		logger.L().Error("Undecodable message, moving to DLQ",
			zap.String("messageName", msg.Name()),
			zap.String("traceID", traceID),
			zap.Error(decodeErr),
		)
		return msg.MoveToDLQ(ctx, decodeErr)
	}

	handleErr := u.messageBus.Handle(ctx, decoded)
	metrics.ObserveCascade(msg.Name(), startTime)

	if handleErr != nil {
		return u.settleFailure(ctx, msg, handleErr, deliveryCount)
	}

	if ackErr := msg.Ack(ctx); ackErr != nil {
		// The cascade committed but the offset did not. The message will
		// come back; handlers are idempotent, so this is redundant work,
		// not corruption.
		logger.L().Error("Error acknowledging message after successful cascade",
			zap.String("messageName", msg.Name()),
			zap.String("traceID", traceID),
			zap.Error(ackErr),
		)
		return ackErr
	}
	return nil
}

// settleFailure redelivers a failed message while budget remains, then
// dead-letters it.
func (u *QueueConsumerUseCase) settleFailure(ctx context.Context, msg broker.Message, handleErr error, deliveryCount int) error {
	traceID := logger.TraceIDFromContext(ctx)

	logger.L().Error("Error processing message",
		zap.String("messageName", msg.Name()),
		zap.Int("deliveryCount", deliveryCount),
		zap.Int("maxRedeliveries", u.maxRedeliveries),
		zap.String("traceID", traceID),
		zap.Error(handleErr),
	)

	if deliveryCount < u.maxRedeliveries {
		delay := backoff.CalculateRetryDelay(deliveryCount+1, u.backoffBaseDelay)
		logger.L().Info("Scheduling redelivery",
			zap.String("messageName", msg.Name()),
			zap.Int("nextDeliveryCount", deliveryCount+1),
			zap.Duration("backoffDelay", delay),
			zap.String("traceID", traceID),
		)
		if redeliverErr := msg.Redeliver(ctx, delay); redeliverErr != nil {
			logger.L().Error("Failed to schedule redelivery, moving to DLQ",
				zap.String("messageName", msg.Name()),
				zap.String("traceID", traceID),
				zap.Error(redeliverErr),
				zap.NamedError("originalError", handleErr),
			)
			return msg.MoveToDLQ(ctx, fmt.Errorf("redelivery failed: %w; original error: %w", redeliverErr, handleErr))
		}
		return nil
	}

	logger.L().Warn("Max redeliveries reached, moving message to DLQ",
		zap.String("messageName", msg.Name()),
		zap.Int("maxRedeliveries", u.maxRedeliveries),
		zap.String("traceID", traceID),
		zap.Error(handleErr),
	)
	return msg.MoveToDLQ(ctx, fmt.Errorf("max redeliveries (%d) reached; final error: %w", u.maxRedeliveries, handleErr))
}
