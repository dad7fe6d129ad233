// Package broker implements the inbound and outbound messaging ports on
// Kafka with segmentio/kafka-go. The consumer uses manual offset commits
// so acknowledgement only happens after the full processing cascade.
package broker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chadland/notification-service/configs"
	"github.com/chadland/notification-service/internal/domain/port/broker"
	"github.com/chadland/notification-service/internal/observability/metrics"
	"github.com/chadland/notification-service/pkg/logger"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
)

// KafkaBroker implements broker.MessageBroker on a Kafka command topic.
type KafkaBroker struct {
	writer   *kafka.Writer
	reader   *kafka.Reader
	topic    string
	groupID  string
	dlqTopic string
	mu       sync.Mutex
}

// Config holds the connection settings for the KafkaBroker.
type Config struct {
	Brokers []string
}

// NewKafkaBroker creates the reader on the command topic and a shared
// writer used for redeliveries and DLQ publishes.
func NewKafkaBroker(cfg Config) (*KafkaBroker, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers cannot be empty")
	}

	appConfig := configs.GetConfig()
	topic := appConfig.KafkaCommandTopic
	groupID := appConfig.KafkaGroupID
	dlqTopic := appConfig.KafkaDLQTopic

	if topic == "" {
		return nil, fmt.Errorf("KAFKA_COMMAND_TOPIC must be set")
	}
	if groupID == "" {
		return nil, fmt.Errorf("KAFKA_GROUP_ID must be set")
	}
	if dlqTopic == "" {
		logger.L().Warn("KAFKA_DLQ_TOPIC is not set. Messages exceeding redelivery limits will be discarded.")
	}

	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		Async:        false,
	}

	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       10e3, // 10KB
		MaxBytes:       10e6, // 10MB
		CommitInterval: 0,    // Disable auto-commit, we commit manually
	})

	logger.L().Info("Kafka broker initialized",
		zap.String("topic", topic),
		zap.String("groupID", groupID),
		zap.String("dlqTopic", dlqTopic),
		zap.Strings("brokers", cfg.Brokers),
	)

	return &KafkaBroker{
		writer:   w,
		reader:   r,
		topic:    topic,
		groupID:  groupID,
		dlqTopic: dlqTopic,
	}, nil
}

// Consume fetches messages from the command topic and passes them to
// consumeFunc with trace context extracted from the headers.
func (kb *KafkaBroker) Consume(
	ctx context.Context,
	consumeFunc func(ctx context.Context, msg broker.Message) error,
) error {
	logger.L().Info("Starting Kafka consumer loop",
		zap.String("topic", kb.topic),
		zap.String("groupID", kb.groupID),
	)

	for {
		message, err := kb.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				logger.L().Info("Context cancelled, stopping consumer loop",
					zap.String("topic", kb.topic),
					zap.String("groupID", kb.groupID),
				)
				return nil
			}
			logger.L().Error("Error fetching message from Kafka, continuing loop",
				zap.String("topic", kb.topic),
				zap.String("groupID", kb.groupID),
				zap.Error(err),
			)
			time.Sleep(1 * time.Second)
			continue
		}

		name := headerValue(message.Headers, messageNameHeader)
		appMsg := &KafkaMessage{
			broker:   kb,
			kafkaMsg: message,
			name:     name,
		}

		if name == "" {
			logger.L().Error("Message without a name header, moving to DLQ",
				zap.String("topic", message.Topic),
				zap.Int64("offset", message.Offset),
			)
			if dlqErr := appMsg.MoveToDLQ(ctx, errors.New("missing "+messageNameHeader+" header")); dlqErr != nil {
				logger.L().Error("Failed to move unnamed message to DLQ. Message may be reprocessed.",
					zap.Int64("offset", message.Offset),
					zap.String("topic", message.Topic),
					zap.Error(dlqErr),
				)
			}
			continue
		}

		metrics.MessagesReceived.WithLabelValues(name).Inc()

		headersCarrier := otelHeaderCarrier{headers: &message.Headers}
		propagator := propagation.TraceContext{}
		processingCtx := propagator.Extract(ctx, headersCarrier)

		if processingErr := consumeFunc(processingCtx, appMsg); processingErr != nil {
			logger.L().Error("Error returned by consumeFunc. Offset may not be committed, expect redelivery.",
				zap.Int64("offset", message.Offset),
				zap.String("topic", message.Topic),
				zap.String("messageName", name),
				zap.Error(processingErr),
			)
		}

		if ctx.Err() != nil {
			logger.L().Info("Context cancelled during processing, stopping consumer loop",
				zap.String("topic", kb.topic),
				zap.String("groupID", kb.groupID),
			)
			return nil
		}
	}
}

// Close cleans up the Kafka reader and writer.
func (kb *KafkaBroker) Close() error {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	var readerErr, writerErr error

	if kb.reader != nil {
		if readerErr = kb.reader.Close(); readerErr != nil {
			logger.L().Error("Error closing Kafka reader", zap.Error(readerErr))
		}
	}
	if kb.writer != nil {
		if writerErr = kb.writer.Close(); writerErr != nil {
			logger.L().Error("Error closing Kafka writer", zap.Error(writerErr))
		}
	}
	if readerErr != nil || writerErr != nil {
		return fmt.Errorf("closing kafka resources (reader: %v, writer: %v)", readerErr, writerErr)
	}
	logger.L().Info("Kafka resources closed.")
	return nil
}

var _ broker.MessageBroker = (*KafkaBroker)(nil)
