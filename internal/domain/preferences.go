package domain

// NotificationPreferences is the aggregate holding a user's notification
// email and one explicit enabled/disabled flag per notification type. It is
// created once per user, mutated only through UpdateSettings/UpdateEmail,
// and never physically deleted.
type NotificationPreferences struct {
	UserID            UserID
	NotificationEmail NotificationEmail
	Settings          PreferenceSettings
}

// NewNotificationPreferences validates inputs, constructs the aggregate and
// returns the NotificationPreferencesCreated event alongside it. Flags
// absent from the map default to enabled.
func NewNotificationPreferences(
	userID string,
	notificationEmail string,
	flags map[string]bool,
) (*NotificationPreferences, NotificationPreferencesCreated, error) {
	uid, err := NewUserID(userID)
	if err != nil {
		return nil, NotificationPreferencesCreated{}, err
	}
	email, err := NewNotificationEmail(notificationEmail)
	if err != nil {
		return nil, NotificationPreferencesCreated{}, err
	}
	prefs := &NotificationPreferences{
		UserID:            uid,
		NotificationEmail: email,
		Settings:          NewPreferenceSettings(flags),
	}
	evt := NotificationPreferencesCreated{
		EventMeta:         NewEventMeta(),
		UserID:            uid.String(),
		NotificationEmail: email.String(),
		Preferences:       prefs.Settings.ToMap(),
	}
	return prefs, evt, nil
}

// UpdateSettings merges a partial flag map over the current settings and
// returns the NotificationPreferencesUpdated event. Flags absent from the
// map keep their current value.
func (p *NotificationPreferences) UpdateSettings(flags map[string]bool) NotificationPreferencesUpdated {
	p.Settings = p.Settings.Merge(flags)
	return NotificationPreferencesUpdated{
		EventMeta:         NewEventMeta(),
		UserID:            p.UserID.String(),
		NotificationEmail: p.NotificationEmail.String(),
		Preferences:       p.Settings.ToMap(),
	}
}

// UpdateEmail replaces the notification email address.
func (p *NotificationPreferences) UpdateEmail(newEmail string) error {
	email, err := NewNotificationEmail(newEmail)
	if err != nil {
		return err
	}
	p.NotificationEmail = email
	return nil
}

// IsEnabled reports whether notifications of the given type are allowed for
// this user.
func (p *NotificationPreferences) IsEnabled(t NotificationType) bool {
	return p.Settings.Enabled(t)
}
