package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUserID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "Valid", input: strings.Repeat("a", 32), wantErr: false},
		{name: "Valid mixed hex", input: "a1b2c3d4e5f6789012345678901234ab", wantErr: false},
		{name: "Too short", input: strings.Repeat("a", 31), wantErr: true},
		{name: "Too long", input: strings.Repeat("a", 33), wantErr: true},
		{name: "Uppercase rejected", input: strings.Repeat("A", 32), wantErr: true},
		{name: "Non-hex characters", input: strings.Repeat("g", 32), wantErr: true},
		{name: "Empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := NewUserID(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidUserID)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.input, id.String())
			}
		})
	}
}

func TestNewNotificationID(t *testing.T) {
	_, err := NewNotificationID("not-hex")
	assert.ErrorIs(t, err, ErrInvalidNotificationID)

	id, err := NewNotificationID(strings.Repeat("0", 32))
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("0", 32), id.String())
}

func TestNewNotificationEmail(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "Valid", input: "user@example.com", wantErr: false},
		{name: "Valid with plus tag", input: "user+tag@example.com", wantErr: false},
		{name: "Missing domain", input: "user@", wantErr: true},
		{name: "Missing at sign", input: "user.example.com", wantErr: true},
		{name: "Display name rejected", input: "Jane <jane@example.com>", wantErr: true},
		{name: "Empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			email, err := NewNotificationEmail(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidEmail)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.input, email.String())
			}
		})
	}
}

func TestParseNotificationType(t *testing.T) {
	for _, known := range AllNotificationTypes() {
		nt, err := ParseNotificationType(known.String())
		require.NoError(t, err)
		assert.Equal(t, known, nt)
	}

	_, err := ParseNotificationType("carrier_pigeon")
	assert.ErrorIs(t, err, ErrUnknownNotificationType)
}

func TestPreferenceSettings_Defaults(t *testing.T) {
	// Absent flags default to enabled, exactly once, at construction.
	settings := NewPreferenceSettings(map[string]bool{
		"marketing": false,
	})

	assert.True(t, settings.Enabled(TypeEmailVerification))
	assert.True(t, settings.Enabled(TypePasswordReset))
	assert.True(t, settings.Enabled(TypeWelcome))
	assert.True(t, settings.Enabled(TypeSecurityAlert))
	assert.False(t, settings.Enabled(TypeMarketing))
}

func TestPreferenceSettings_Merge(t *testing.T) {
	settings := NewPreferenceSettings(map[string]bool{
		"marketing": false,
		"welcome":   false,
	})

	merged := settings.Merge(map[string]bool{"welcome": true})

	// Only the named flag changes; the rest keep their current values.
	assert.True(t, merged.Enabled(TypeWelcome))
	assert.False(t, merged.Enabled(TypeMarketing))
	assert.True(t, merged.Enabled(TypeEmailVerification))

	// Merge returns a copy; the receiver is untouched.
	assert.False(t, settings.Enabled(TypeWelcome))
}

func TestPreferenceSettings_ToMap(t *testing.T) {
	settings := NewPreferenceSettings(nil)
	m := settings.ToMap()

	assert.Len(t, m, len(AllNotificationTypes()))
	for _, nt := range AllNotificationTypes() {
		enabled, ok := m[nt.String()]
		assert.True(t, ok, "every notification type must have an explicit flag")
		assert.True(t, enabled)
	}
}
