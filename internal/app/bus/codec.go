package bus

import (
	"encoding/json"
	"fmt"

	"github.com/chadland/notification-service/internal/domain"
)

// DecodeMessage turns an inbound broker payload into the concrete command
// or event named by the message header. Unknown names are a permanent
// failure; the caller should dead-letter rather than redeliver.
func DecodeMessage(name string, payload []byte) (Message, error) {
	var (
		msg Message
		err error
	)
	switch name {
	case domain.SendNotificationName:
		msg, err = decodeInto[domain.SendNotification](payload)
	case domain.RetryNotificationName:
		msg, err = decodeInto[domain.RetryNotification](payload)
	case domain.CreateNotificationPreferencesName:
		msg, err = decodeInto[domain.CreateNotificationPreferences](payload)
	case domain.UpdateNotificationPreferencesName:
		msg, err = decodeInto[domain.UpdateNotificationPreferences](payload)
	case domain.UserRegistered{}.EventName():
		msg, err = decodeInto[domain.UserRegistered](payload)
	case domain.UserEmailVerificationRequested{}.EventName():
		msg, err = decodeInto[domain.UserEmailVerificationRequested](payload)
	case domain.PasswordResetRequested{}.EventName():
		msg, err = decodeInto[domain.PasswordResetRequested](payload)
	default:
		return nil, fmt.Errorf("unknown message name %q", name)
	}
	if err != nil {
		return nil, fmt.Errorf("decoding message %q: %w", name, err)
	}
	return msg, nil
}

func decodeInto[T any](payload []byte) (T, error) {
	var value T
	err := json.Unmarshal(payload, &value)
	return value, err
}
