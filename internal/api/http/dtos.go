package http

// SendNotificationRequest is the inbound payload for the send endpoint.
// NotificationID is optional; one is generated when absent so direct API
// callers do not have to mint ids, while integrations that need replay
// protection can supply their own.
type SendNotificationRequest struct {
	NotificationID   string            `json:"notification_id"`
	UserID           string            `json:"userid" binding:"required"`
	NotificationType string            `json:"notification_type" binding:"required"`
	RecipientEmail   string            `json:"recipient_email" binding:"required"`
	Subject          string            `json:"subject"`
	Content          string            `json:"content"`
	TemplateVars     map[string]string `json:"template_vars"`
}

type SendNotificationResponse struct {
	NotificationID string `json:"notification_id"`
	Status         string `json:"status"`
}

type CreatePreferencesRequest struct {
	UserID            string          `json:"userid" binding:"required"`
	NotificationEmail string          `json:"notification_email" binding:"required"`
	Preferences       map[string]bool `json:"preferences"`
}

type UpdatePreferencesRequest struct {
	NotificationEmail string          `json:"notification_email"`
	Preferences       map[string]bool `json:"preferences"`
}

type PreferencesResponse struct {
	UserID            string          `json:"userid"`
	NotificationEmail string          `json:"notification_email"`
	Preferences       map[string]bool `json:"preferences"`
}

type NotificationHistoryEntry struct {
	NotificationID   string `json:"notification_id"`
	NotificationType string `json:"notification_type"`
	RecipientEmail   string `json:"recipient_email"`
	Subject          string `json:"subject"`
	Status           string `json:"status"`
	RetryCount       int    `json:"retry_count"`
}

type NotificationHistoryResponse struct {
	UserID        string                     `json:"userid"`
	Notifications []NotificationHistoryEntry `json:"notifications"`
}
