package broker

import (
	"strconv"

	"github.com/chadland/notification-service/pkg/logger"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Header keys carried on every message.
const (
	// messageNameHeader names the command or event the payload encodes.
	messageNameHeader = "x-message-name"
	// deliveryCountHeader tracks broker-level redeliveries.
	deliveryCountHeader = "x-delivery-count"
	dlqReasonHeader     = "x-dlq-reason"
)

func headerValue(headers []kafka.Header, key string) string {
	for _, h := range headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

// getDeliveryCount extracts the redelivery count from message headers,
// treating a missing or malformed header as a first delivery.
func getDeliveryCount(headers []kafka.Header) int {
	raw := headerValue(headers, deliveryCountHeader)
	if raw == "" {
		return 0
	}
	count, err := strconv.Atoi(raw)
	if err != nil {
		logger.L().Warn("Invalid delivery count header value",
			zap.String("headerKey", deliveryCountHeader),
			zap.String("headerValue", raw),
			zap.Error(err),
		)
		return 0
	}
	return count
}

// setDeliveryCount returns a header slice with the delivery count header
// added or replaced, keeping all other headers.
func setDeliveryCount(headers []kafka.Header, count int) []kafka.Header {
	value := []byte(strconv.Itoa(count))
	newHeaders := make([]kafka.Header, 0, len(headers)+1)
	found := false
	for _, h := range headers {
		if h.Key == deliveryCountHeader {
			newHeaders = append(newHeaders, kafka.Header{Key: deliveryCountHeader, Value: value})
			found = true
		} else {
			newHeaders = append(newHeaders, h)
		}
	}
	if !found {
		newHeaders = append(newHeaders, kafka.Header{Key: deliveryCountHeader, Value: value})
	}
	return newHeaders
}

// otelHeaderCarrier adapts kafka-go headers to OpenTelemetry's
// TextMapCarrier so trace context survives the broker hop.
type otelHeaderCarrier struct {
	headers *[]kafka.Header
}

func (c otelHeaderCarrier) Get(key string) string {
	return headerValue(*c.headers, key)
}

func (c otelHeaderCarrier) Set(key, value string) {
	for i, h := range *c.headers {
		if h.Key == key {
			(*c.headers)[i].Value = []byte(value)
			return
		}
	}
	*c.headers = append(*c.headers, kafka.Header{Key: key, Value: []byte(value)})
}

func (c otelHeaderCarrier) Keys() []string {
	keys := make([]string, 0, len(*c.headers))
	for _, h := range *c.headers {
		keys = append(keys, h.Key)
	}
	return keys
}
