package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNotificationPreferences(t *testing.T) {
	userID := strings.Repeat("a", 32)
	prefs, evt, err := NewNotificationPreferences(userID, "user@example.com", map[string]bool{
		"marketing": false,
	})
	require.NoError(t, err)

	assert.Equal(t, userID, prefs.UserID.String())
	assert.True(t, prefs.IsEnabled(TypeWelcome))
	assert.False(t, prefs.IsEnabled(TypeMarketing))

	assert.Equal(t, "notification.preferences_created", evt.EventName())
	assert.Equal(t, userID, evt.UserID)
	assert.Equal(t, "user@example.com", evt.NotificationEmail)
	assert.False(t, evt.Preferences["marketing"])
	assert.True(t, evt.Preferences["welcome"])
}

func TestNewNotificationPreferences_Validation(t *testing.T) {
	_, _, err := NewNotificationPreferences("bad-id", "user@example.com", nil)
	assert.ErrorIs(t, err, ErrInvalidUserID)

	_, _, err = NewNotificationPreferences(strings.Repeat("a", 32), "bad-email", nil)
	assert.ErrorIs(t, err, ErrInvalidEmail)
}

func TestNotificationPreferences_UpdateSettings(t *testing.T) {
	prefs, _, err := NewNotificationPreferences(strings.Repeat("a", 32), "user@example.com", nil)
	require.NoError(t, err)

	evt := prefs.UpdateSettings(map[string]bool{"security_alert": false})

	assert.False(t, prefs.IsEnabled(TypeSecurityAlert))
	// Partial update: flags not named keep their value.
	assert.True(t, prefs.IsEnabled(TypeEmailVerification))

	assert.Equal(t, "notification.preferences_updated", evt.EventName())
	assert.False(t, evt.Preferences["security_alert"])
}

func TestNotificationPreferences_UpdateEmail(t *testing.T) {
	prefs, _, err := NewNotificationPreferences(strings.Repeat("a", 32), "old@example.com", nil)
	require.NoError(t, err)

	require.NoError(t, prefs.UpdateEmail("new@example.com"))
	assert.Equal(t, "new@example.com", prefs.NotificationEmail.String())

	assert.ErrorIs(t, prefs.UpdateEmail("invalid"), ErrInvalidEmail)
	assert.Equal(t, "new@example.com", prefs.NotificationEmail.String())
}
