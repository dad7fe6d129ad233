package domain

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
)

var hex32Pattern = regexp.MustCompile(`^[0-9a-f]{32}$`)

// UserID identifies the notification recipient's account in the external
// user service. It is always 32 lowercase hex characters.
type UserID string

// NewUserID validates and constructs a UserID. Invalid input never leaves
// this constructor, so a UserID held anywhere in the system is well-formed.
func NewUserID(raw string) (UserID, error) {
	if !hex32Pattern.MatchString(raw) {
		return "", fmt.Errorf("%w: %q", ErrInvalidUserID, raw)
	}
	return UserID(raw), nil
}

func (id UserID) String() string {
	return string(id)
}

// NotificationID is the unique key of a delivery attempt record,
// 32 lowercase hex characters.
type NotificationID string

// NewNotificationID validates and constructs a NotificationID.
func NewNotificationID(raw string) (NotificationID, error) {
	if !hex32Pattern.MatchString(raw) {
		return "", fmt.Errorf("%w: %q", ErrInvalidNotificationID, raw)
	}
	return NotificationID(raw), nil
}

func (id NotificationID) String() string {
	return string(id)
}

// NotificationEmail wraps a syntactically valid email address.
type NotificationEmail string

// NewNotificationEmail validates and constructs a NotificationEmail.
// Display names ("Jane <jane@example.com>") are rejected; only the bare
// address form is accepted.
func NewNotificationEmail(raw string) (NotificationEmail, error) {
	addr, err := mail.ParseAddress(raw)
	if err != nil || addr.Address != raw {
		return "", fmt.Errorf("%w: %q", ErrInvalidEmail, raw)
	}
	return NotificationEmail(raw), nil
}

func (e NotificationEmail) String() string {
	return string(e)
}

// NotificationType is the closed enumeration of notification categories.
// Extending it requires a new constant plus a matching preference flag.
type NotificationType string

const (
	TypeEmailVerification NotificationType = "email_verification"
	TypePasswordReset     NotificationType = "password_reset"
	TypeWelcome           NotificationType = "welcome"
	TypeSecurityAlert     NotificationType = "security_alert"
	TypeMarketing         NotificationType = "marketing"
)

// AllNotificationTypes returns every enum variant in declaration order.
func AllNotificationTypes() []NotificationType {
	return []NotificationType{
		TypeEmailVerification,
		TypePasswordReset,
		TypeWelcome,
		TypeSecurityAlert,
		TypeMarketing,
	}
}

// ParseNotificationType validates a raw string against the enumeration.
func ParseNotificationType(raw string) (NotificationType, error) {
	nt := NotificationType(strings.ToLower(raw))
	for _, known := range AllNotificationTypes() {
		if nt == known {
			return nt, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownNotificationType, raw)
}

func (t NotificationType) String() string {
	return string(t)
}

// NotificationStatus is the lifecycle state of a NotificationRequest.
// StatusSent is terminal; StatusFailed is terminal only once retries are
// exhausted, otherwise it is re-enterable by the retry policy.
type NotificationStatus string

const (
	StatusPending NotificationStatus = "pending"
	StatusSent    NotificationStatus = "sent"
	StatusFailed  NotificationStatus = "failed"
)

func (s NotificationStatus) String() string {
	return string(s)
}

// ParseNotificationStatus validates a raw status string, e.g. when
// rehydrating an aggregate from storage.
func ParseNotificationStatus(raw string) (NotificationStatus, error) {
	switch s := NotificationStatus(raw); s {
	case StatusPending, StatusSent, StatusFailed:
		return s, nil
	default:
		return "", fmt.Errorf("unknown notification status: %q", raw)
	}
}

// PreferenceSettings holds one explicit boolean flag per NotificationType.
// There is no implicit defaulting inside the aggregate: every variant has a
// concrete value from the moment the settings are constructed.
type PreferenceSettings struct {
	EmailVerification bool `json:"email_verification"`
	PasswordReset     bool `json:"password_reset"`
	Welcome           bool `json:"welcome"`
	SecurityAlert     bool `json:"security_alert"`
	Marketing         bool `json:"marketing"`
}

// NewPreferenceSettings builds settings from a per-type flag map. Types
// absent from the map default to enabled, which happens exactly once, here
// at the construction boundary.
func NewPreferenceSettings(flags map[string]bool) PreferenceSettings {
	get := func(t NotificationType) bool {
		if v, ok := flags[t.String()]; ok {
			return v
		}
		return true
	}
	return PreferenceSettings{
		EmailVerification: get(TypeEmailVerification),
		PasswordReset:     get(TypePasswordReset),
		Welcome:           get(TypeWelcome),
		SecurityAlert:     get(TypeSecurityAlert),
		Marketing:         get(TypeMarketing),
	}
}

// Enabled reports whether the given notification type is switched on.
func (s PreferenceSettings) Enabled(t NotificationType) bool {
	switch t {
	case TypeEmailVerification:
		return s.EmailVerification
	case TypePasswordReset:
		return s.PasswordReset
	case TypeWelcome:
		return s.Welcome
	case TypeSecurityAlert:
		return s.SecurityAlert
	case TypeMarketing:
		return s.Marketing
	default:
		return false
	}
}

// Merge returns a copy of the settings with the given partial flag map
// applied on top. Types absent from the map keep their current value.
func (s PreferenceSettings) Merge(flags map[string]bool) PreferenceSettings {
	merged := s
	if v, ok := flags[TypeEmailVerification.String()]; ok {
		merged.EmailVerification = v
	}
	if v, ok := flags[TypePasswordReset.String()]; ok {
		merged.PasswordReset = v
	}
	if v, ok := flags[TypeWelcome.String()]; ok {
		merged.Welcome = v
	}
	if v, ok := flags[TypeSecurityAlert.String()]; ok {
		merged.SecurityAlert = v
	}
	if v, ok := flags[TypeMarketing.String()]; ok {
		merged.Marketing = v
	}
	return merged
}

// ToMap converts the settings to a per-type flag map for event payloads.
func (s PreferenceSettings) ToMap() map[string]bool {
	return map[string]bool{
		TypeEmailVerification.String(): s.EmailVerification,
		TypePasswordReset.String():     s.PasswordReset,
		TypeWelcome.String():           s.Welcome,
		TypeSecurityAlert.String():     s.SecurityAlert,
		TypeMarketing.String():         s.Marketing,
	}
}
