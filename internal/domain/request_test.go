package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRequest(t *testing.T) *NotificationRequest {
	t.Helper()
	req, err := NewNotificationRequest(
		strings.Repeat("1", 32),
		strings.Repeat("a", 32),
		"email_verification",
		"user@example.com",
		"Please verify your email",
		"email_verification",
		map[string]string{"username": "jane"},
	)
	require.NoError(t, err)
	return req
}

func TestNewNotificationRequest(t *testing.T) {
	req := newTestRequest(t)

	assert.Equal(t, StatusPending, req.Status)
	assert.Equal(t, 0, req.RetryCount)
	assert.Equal(t, TypeEmailVerification, req.NotificationType)
}

func TestNewNotificationRequest_Validation(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(id, uid, nt, email *string)
		wantCause error
	}{
		{
			name:      "Bad notification id",
			mutate:    func(id, _, _, _ *string) { *id = "short" },
			wantCause: ErrInvalidNotificationID,
		},
		{
			name:      "Bad user id",
			mutate:    func(_, uid, _, _ *string) { *uid = "short" },
			wantCause: ErrInvalidUserID,
		},
		{
			name:      "Bad type",
			mutate:    func(_, _, nt, _ *string) { *nt = "fax" },
			wantCause: ErrUnknownNotificationType,
		},
		{
			name:      "Bad email",
			mutate:    func(_, _, _, email *string) { *email = "nope" },
			wantCause: ErrInvalidEmail,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := strings.Repeat("1", 32)
			uid := strings.Repeat("a", 32)
			nt := "welcome"
			email := "user@example.com"
			tt.mutate(&id, &uid, &nt, &email)

			req, err := NewNotificationRequest(id, uid, nt, email, "s", "c", nil)
			assert.Nil(t, req)
			assert.ErrorIs(t, err, tt.wantCause)
		})
	}
}

func TestNotificationRequest_MarkAsSent(t *testing.T) {
	req := newTestRequest(t)

	evt, err := req.MarkAsSent()
	require.NoError(t, err)
	assert.Equal(t, StatusSent, req.Status)
	assert.Equal(t, req.NotificationID.String(), evt.NotificationID)
	assert.Equal(t, req.UserID.String(), evt.UserID)
	assert.Equal(t, "notification.sent", evt.EventName())
	assert.NotEmpty(t, evt.EventID)
	assert.False(t, evt.OccurredAt.IsZero())

	// Sent is terminal: a second MarkAsSent is a contract violation.
	_, err = req.MarkAsSent()
	assert.ErrorIs(t, err, ErrInvalidStateTransition)
}

func TestNotificationRequest_MarkAsFailed(t *testing.T) {
	req := newTestRequest(t)

	evt, err := req.MarkAsFailed("smtp connection refused")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, req.Status)
	assert.Equal(t, "smtp connection refused", evt.ErrorMessage)
	assert.Equal(t, 0, evt.RetryCount)
	assert.Equal(t, "notification.failed", evt.EventName())
}

func TestNotificationRequest_MarkAsFailed_AfterSent(t *testing.T) {
	req := newTestRequest(t)
	_, err := req.MarkAsSent()
	require.NoError(t, err)

	_, err = req.MarkAsFailed("too late")
	assert.ErrorIs(t, err, ErrInvalidStateTransition)
	assert.Equal(t, StatusSent, req.Status)
}

func TestNotificationRequest_SentAfterRetryableFailure(t *testing.T) {
	// A failed attempt with budget left can still succeed on a later try.
	req := newTestRequest(t)
	_, err := req.MarkAsFailed("transient")
	require.NoError(t, err)
	require.NoError(t, req.IncrementRetry())

	_, err = req.MarkAsSent()
	require.NoError(t, err)
	assert.Equal(t, StatusSent, req.Status)
	assert.Equal(t, 1, req.RetryCount)
}

func TestNotificationRequest_IncrementRetry(t *testing.T) {
	req := newTestRequest(t)

	// Only valid while failed.
	err := req.IncrementRetry()
	assert.ErrorIs(t, err, ErrInvalidStateTransition)

	_, err = req.MarkAsFailed("boom")
	require.NoError(t, err)

	require.NoError(t, req.IncrementRetry())
	assert.Equal(t, 1, req.RetryCount)
	// Status unchanged by the increment itself.
	assert.Equal(t, StatusFailed, req.Status)
}

func TestNotificationRequest_CanRetry(t *testing.T) {
	req := newTestRequest(t)

	assert.True(t, req.CanRetry(DefaultMaxRetries))

	req.RetryCount = DefaultMaxRetries
	assert.False(t, req.CanRetry(DefaultMaxRetries))
	assert.True(t, req.CanRetry(DefaultMaxRetries+1))
}
