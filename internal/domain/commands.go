package domain

// Command is a request to perform exactly one unit of business work. The
// message bus dispatches each command to exactly one registered handler.
type Command interface {
	CommandName() string
}

// Dispatch names for the closed set of commands. The handler table is
// validated at startup against this list.
const (
	CreateNotificationPreferencesName = "create_notification_preferences"
	UpdateNotificationPreferencesName = "update_notification_preferences"
	SendNotificationName              = "send_notification"
	RetryNotificationName             = "retry_notification"
)

// CreateNotificationPreferences creates the initial preferences aggregate
// for a user. Preferences absent from the flag map default to enabled.
type CreateNotificationPreferences struct {
	UserID            string          `json:"userid"`
	NotificationEmail string          `json:"notification_email"`
	Preferences       map[string]bool `json:"preferences"`
}

func (CreateNotificationPreferences) CommandName() string {
	return CreateNotificationPreferencesName
}

// UpdateNotificationPreferences applies a partial flag update to existing
// preferences. Flags absent from the map keep their current value. A
// non-empty NotificationEmail also replaces the stored address.
type UpdateNotificationPreferences struct {
	UserID            string          `json:"userid"`
	NotificationEmail string          `json:"notification_email"`
	Preferences       map[string]bool `json:"preferences"`
}

func (UpdateNotificationPreferences) CommandName() string {
	return UpdateNotificationPreferencesName
}

// SendNotification requests delivery of one notification. NotificationID is
// supplied by the caller so that broker redelivery of the same command is
// idempotent.
type SendNotification struct {
	NotificationID   string            `json:"notification_id"`
	UserID           string            `json:"userid"`
	NotificationType string            `json:"notification_type"`
	RecipientEmail   string            `json:"recipient_email"`
	Subject          string            `json:"subject"`
	Content          string            `json:"content"`
	TemplateVars     map[string]string `json:"template_vars"`
}

func (SendNotification) CommandName() string { return SendNotificationName }

// RetryNotification re-drives delivery of a previously failed notification
// that still has retry budget left.
type RetryNotification struct {
	NotificationID string `json:"notification_id"`
}

func (RetryNotification) CommandName() string { return RetryNotificationName }
