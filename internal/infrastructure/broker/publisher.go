package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/chadland/notification-service/configs"
	"github.com/chadland/notification-service/internal/domain"
	"github.com/chadland/notification-service/internal/domain/port/publisher"
	"github.com/chadland/notification-service/pkg/logger"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
)

// KafkaEventPublisher publishes domain events to the event topic so other
// services can consume them. The event name travels on a header, the event
// body as a JSON payload.
type KafkaEventPublisher struct {
	writer *kafka.Writer
	topic  string
}

func NewKafkaEventPublisher(brokers []string) (*KafkaEventPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers cannot be empty")
	}
	topic := configs.GetConfig().KafkaEventTopic
	if topic == "" {
		return nil, fmt.Errorf("KAFKA_EVENT_TOPIC must be set")
	}

	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		Async:        false,
	}

	return &KafkaEventPublisher{writer: w, topic: topic}, nil
}

func (p *KafkaEventPublisher) Publish(ctx context.Context, event domain.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshalling event %q: %w", event.EventName(), err)
	}

	headers := []kafka.Header{
		{Key: messageNameHeader, Value: []byte(event.EventName())},
	}
	propagator := propagation.TraceContext{}
	propagator.Inject(ctx, otelHeaderCarrier{headers: &headers})

	msg := kafka.Message{
		Key:     []byte(event.EventName()),
		Value:   payload,
		Headers: headers,
		Time:    time.Now(),
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := p.writer.WriteMessages(ctxTimeout, msg); err != nil {
		return fmt.Errorf("publishing event %q: %w", event.EventName(), err)
	}

	logger.L().Debug("Published domain event",
		zap.String("event", event.EventName()),
		zap.String("topic", p.topic),
		zap.String("traceID", logger.TraceIDFromContext(ctx)),
	)
	return nil
}

func (p *KafkaEventPublisher) Close() error {
	return p.writer.Close()
}

var _ publisher.EventPublisher = (*KafkaEventPublisher)(nil)
