package domain

import "fmt"

// DefaultMaxRetries bounds the delivery retry policy when no explicit limit
// is configured.
const DefaultMaxRetries = 3

// NotificationRequest is the aggregate tracking the lifecycle of one
// notification delivery attempt, from creation through retries to a
// terminal sent or failed state. It is retained indefinitely as an audit
// trail; there is no deletion path.
//
// State-changing methods return the domain event produced by the
// transition. Callers hand those events to the unit of work, which owns the
// pending-event buffer for the cascade.
type NotificationRequest struct {
	NotificationID   NotificationID
	UserID           UserID
	NotificationType NotificationType
	RecipientEmail   NotificationEmail
	Subject          string
	Content          string
	TemplateVars     map[string]string
	Status           NotificationStatus
	RetryCount       int
}

// NewNotificationRequest constructs a new aggregate in the pending state
// with a zero retry count. All identifier and email inputs are validated
// here; no event is emitted by creation itself.
func NewNotificationRequest(
	notificationID string,
	userID string,
	notificationType string,
	recipientEmail string,
	subject string,
	content string,
	templateVars map[string]string,
) (*NotificationRequest, error) {
	nid, err := NewNotificationID(notificationID)
	if err != nil {
		return nil, err
	}
	uid, err := NewUserID(userID)
	if err != nil {
		return nil, err
	}
	nt, err := ParseNotificationType(notificationType)
	if err != nil {
		return nil, err
	}
	email, err := NewNotificationEmail(recipientEmail)
	if err != nil {
		return nil, err
	}
	if templateVars == nil {
		templateVars = map[string]string{}
	}
	return &NotificationRequest{
		NotificationID:   nid,
		UserID:           uid,
		NotificationType: nt,
		RecipientEmail:   email,
		Subject:          subject,
		Content:          content,
		TemplateVars:     templateVars,
		Status:           StatusPending,
		RetryCount:       0,
	}, nil
}

// MarkAsSent transitions the request to the terminal sent state and returns
// the NotificationSent event. Valid from pending or from a retryable
// failure; calling it on a request that is already sent is a contract
// violation.
func (r *NotificationRequest) MarkAsSent() (NotificationSent, error) {
	if r.Status == StatusSent {
		return NotificationSent{}, fmt.Errorf(
			"%w: notification %s already sent", ErrInvalidStateTransition, r.NotificationID)
	}
	r.Status = StatusSent
	return NotificationSent{
		EventMeta:        NewEventMeta(),
		NotificationID:   r.NotificationID.String(),
		UserID:           r.UserID.String(),
		NotificationType: r.NotificationType.String(),
	}, nil
}

// MarkAsFailed records a failed delivery attempt and returns the
// NotificationFailed event carrying the current retry count. Whether the
// resulting failure is terminal is determined by CanRetry.
func (r *NotificationRequest) MarkAsFailed(errorMessage string) (NotificationFailed, error) {
	if r.Status == StatusSent {
		return NotificationFailed{}, fmt.Errorf(
			"%w: notification %s already sent, cannot fail", ErrInvalidStateTransition, r.NotificationID)
	}
	r.Status = StatusFailed
	return NotificationFailed{
		EventMeta:        NewEventMeta(),
		NotificationID:   r.NotificationID.String(),
		UserID:           r.UserID.String(),
		NotificationType: r.NotificationType.String(),
		ErrorMessage:     errorMessage,
		RetryCount:       r.RetryCount,
	}, nil
}

// IncrementRetry bumps the retry counter after a failed attempt. It is only
// valid while the request sits in a failed state and does not itself change
// the status.
func (r *NotificationRequest) IncrementRetry() error {
	if r.Status != StatusFailed {
		return fmt.Errorf(
			"%w: notification %s is %s, cannot increment retry", ErrInvalidStateTransition, r.NotificationID, r.Status)
	}
	r.RetryCount++
	return nil
}

// CanRetry reports whether another delivery attempt fits inside the retry
// budget. Pure predicate, callable in any state.
func (r *NotificationRequest) CanRetry(maxRetries int) bool {
	return r.RetryCount < maxRetries
}
