package broker

import (
	"context"
	"fmt"
	"time"

	"github.com/chadland/notification-service/internal/observability/metrics"
	"github.com/chadland/notification-service/pkg/logger"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
)

// KafkaMessage wraps a kafka-go message and implements broker.Message.
type KafkaMessage struct {
	broker   *KafkaBroker
	kafkaMsg kafka.Message
	name     string
}

func (m *KafkaMessage) Name() string {
	return m.name
}

func (m *KafkaMessage) Payload() []byte {
	return m.kafkaMsg.Value
}

func (m *KafkaMessage) DeliveryCount() int {
	return getDeliveryCount(m.kafkaMsg.Headers)
}

// Ack commits the offset for the current message.
func (m *KafkaMessage) Ack(ctx context.Context) error {
	traceID := logger.TraceIDFromContext(ctx)
	logger.L().Debug("Acknowledging Kafka message (committing offset)",
		zap.Int64("offset", m.kafkaMsg.Offset),
		zap.String("topic", m.kafkaMsg.Topic),
		zap.String("messageName", m.name),
		zap.String("traceID", traceID),
	)
	err := m.broker.reader.CommitMessages(ctx, m.kafkaMsg)
	if err != nil {
		logger.L().Error("Failed to commit Kafka message offset",
			zap.Int64("offset", m.kafkaMsg.Offset),
			zap.String("topic", m.kafkaMsg.Topic),
			zap.String("messageName", m.name),
			zap.String("traceID", traceID),
			zap.Error(err),
		)
	}
	return err
}

// Redeliver republishes the message to the command topic with an
// incremented delivery count, then acknowledges the original. The message
// is republished immediately; the delay parameter is advisory only.
func (m *KafkaMessage) Redeliver(ctx context.Context, delay time.Duration) error {
	traceID := logger.TraceIDFromContext(ctx)
	nextDeliveryCount := m.DeliveryCount() + 1

	logger.L().Info("Preparing message for redelivery",
		zap.Int64("offset", m.kafkaMsg.Offset),
		zap.String("topic", m.kafkaMsg.Topic),
		zap.String("messageName", m.name),
		zap.Int("nextDeliveryCount", nextDeliveryCount),
		zap.Duration("requestedDelay", delay),
		zap.String("traceID", traceID),
	)

	newHeaders := setDeliveryCount(m.kafkaMsg.Headers, nextDeliveryCount)

	propagator := propagation.TraceContext{}
	propagator.Inject(ctx, otelHeaderCarrier{headers: &newHeaders})

	redeliveryMsg := kafka.Message{
		Topic:   m.kafkaMsg.Topic,
		Key:     m.kafkaMsg.Key,
		Value:   m.kafkaMsg.Value,
		Headers: newHeaders,
		Time:    time.Now(),
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := m.broker.writer.WriteMessages(ctxTimeout, redeliveryMsg); err != nil {
		logger.L().Error("Failed to publish redelivery message",
			zap.String("messageName", m.name),
			zap.String("traceID", traceID),
			zap.Error(err),
		)
		return fmt.Errorf("publishing redelivery message: %w", err)
	}

	metrics.MessagesRedelivered.WithLabelValues(m.name).Inc()

	if err := m.Ack(ctx); err != nil {
		return fmt.Errorf("acking original message after redelivery: %w", err)
	}
	return nil
}

// MoveToDLQ publishes the message to the configured DLQ topic with the
// processing error and final delivery count on the headers, then
// acknowledges the original. Without a DLQ topic the message is discarded.
func (m *KafkaMessage) MoveToDLQ(ctx context.Context, processingError error) error {
	traceID := logger.TraceIDFromContext(ctx)

	if m.broker.dlqTopic == "" {
		logger.L().Warn("DLQ topic not configured. Discarding message.",
			zap.String("messageName", m.name),
			zap.String("traceID", traceID),
			zap.Error(processingError),
		)
		metrics.MessagesDLQ.WithLabelValues(m.name).Inc()
		return m.Ack(ctx)
	}

	logger.L().Warn("Moving message to DLQ",
		zap.String("messageName", m.name),
		zap.String("dlqTopic", m.broker.dlqTopic),
		zap.Int("deliveryCount", m.DeliveryCount()),
		zap.String("traceID", traceID),
		zap.Error(processingError),
	)

	dlqHeaders := make([]kafka.Header, 0, len(m.kafkaMsg.Headers)+2)
	dlqHeaders = append(dlqHeaders, m.kafkaMsg.Headers...)
	dlqHeaders = append(dlqHeaders, kafka.Header{Key: dlqReasonHeader, Value: []byte(processingError.Error())})
	dlqHeaders = setDeliveryCount(dlqHeaders, m.DeliveryCount())

	propagator := propagation.TraceContext{}
	propagator.Inject(ctx, otelHeaderCarrier{headers: &dlqHeaders})

	dlqMsg := kafka.Message{
		Topic:   m.broker.dlqTopic,
		Key:     m.kafkaMsg.Key,
		Value:   m.kafkaMsg.Value,
		Headers: dlqHeaders,
		Time:    time.Now(),
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := m.broker.writer.WriteMessages(ctxTimeout, dlqMsg); err != nil {
		logger.L().Error("Failed to publish message to DLQ",
			zap.String("messageName", m.name),
			zap.String("dlqTopic", m.broker.dlqTopic),
			zap.String("traceID", traceID),
			zap.Error(err),
		)
		return fmt.Errorf("publishing message to DLQ: %w", err)
	}

	metrics.MessagesDLQ.WithLabelValues(m.name).Inc()

	if err := m.Ack(ctx); err != nil {
		return fmt.Errorf("acking original message after DLQ: %w", err)
	}
	return nil
}
