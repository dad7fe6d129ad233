package domain

import (
	"time"

	"github.com/google/uuid"
)

// sourceService identifies this service in outgoing event envelopes.
const sourceService = "notification"

// Event is an immutable record of something that happened to an aggregate.
// Events drive further processing inside a cascade and, for outgoing event
// types, publication to external services.
type Event interface {
	EventName() string
}

// EventMeta carries the envelope fields shared by every event.
type EventMeta struct {
	EventID       string    `json:"event_id"`
	SourceService string    `json:"source_service"`
	OccurredAt    time.Time `json:"timestamp"`
}

// NewEventMeta stamps a fresh event id and timestamp.
func NewEventMeta() EventMeta {
	return EventMeta{
		EventID:       uuid.New().String(),
		SourceService: sourceService,
		OccurredAt:    time.Now().UTC(),
	}
}

// --- Outgoing events (published to external services) ---

// NotificationSent is emitted when a delivery attempt succeeds.
type NotificationSent struct {
	EventMeta
	NotificationID   string `json:"notification_id"`
	UserID           string `json:"userid"`
	NotificationType string `json:"notification_type"`
}

func (NotificationSent) EventName() string { return "notification.sent" }

// NotificationFailed is emitted once per failed delivery attempt. RetryCount
// is the attempt counter at the time of the failure, so a request that
// exhausts three retries produces events with counts 0, 1 and 2.
type NotificationFailed struct {
	EventMeta
	NotificationID   string `json:"notification_id"`
	UserID           string `json:"userid"`
	NotificationType string `json:"notification_type"`
	ErrorMessage     string `json:"error_message"`
	RetryCount       int    `json:"retry_count"`
}

func (NotificationFailed) EventName() string { return "notification.failed" }

// NotificationPreferencesCreated is emitted when a user's preferences
// aggregate is created.
type NotificationPreferencesCreated struct {
	EventMeta
	UserID            string          `json:"userid"`
	NotificationEmail string          `json:"notification_email"`
	Preferences       map[string]bool `json:"preferences"`
}

func (NotificationPreferencesCreated) EventName() string {
	return "notification.preferences_created"
}

// NotificationPreferencesUpdated is emitted when a user's preferences change.
type NotificationPreferencesUpdated struct {
	EventMeta
	UserID            string          `json:"userid"`
	NotificationEmail string          `json:"notification_email"`
	Preferences       map[string]bool `json:"preferences"`
}

func (NotificationPreferencesUpdated) EventName() string {
	return "notification.preferences_updated"
}

// --- Incoming events (consumed from other services) ---

// UserRegistered arrives when a new user registers; it triggers creation of
// default notification preferences.
type UserRegistered struct {
	EventMeta
	UserID   string `json:"userid"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

func (UserRegistered) EventName() string { return "user.registered" }

// UserEmailVerificationRequested arrives when the user service needs an
// email verification message delivered.
type UserEmailVerificationRequested struct {
	EventMeta
	UserID      string `json:"userid"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	VerifyToken string `json:"verify_token"`
}

func (UserEmailVerificationRequested) EventName() string {
	return "user.email_verification_requested"
}

// PasswordResetRequested arrives when a user asks for a password reset link.
type PasswordResetRequested struct {
	EventMeta
	UserID     string `json:"userid"`
	Email      string `json:"email"`
	ResetToken string `json:"reset_token"`
}

func (PasswordResetRequested) EventName() string {
	return "user.password_reset_requested"
}
