package domain

import "errors"

var (
	// ErrInvalidUserID indicates a user id that is not 32 lowercase hex characters.
	ErrInvalidUserID = errors.New("invalid user id: must be 32 lowercase hex characters")
	// ErrInvalidNotificationID indicates a notification id that is not 32 lowercase hex characters.
	ErrInvalidNotificationID = errors.New("invalid notification id: must be 32 lowercase hex characters")
	// ErrInvalidEmail indicates a syntactically invalid email address.
	ErrInvalidEmail = errors.New("invalid email address")
	// ErrUnknownNotificationType indicates a notification type outside the closed enumeration.
	ErrUnknownNotificationType = errors.New("unknown notification type")
	// ErrInvalidStateTransition indicates an illegal aggregate mutation ordering.
	// It is a contract violation and aborts the surrounding cascade.
	ErrInvalidStateTransition = errors.New("invalid state transition")
	// ErrPreferencesNotFound indicates an update against preferences that were never created.
	ErrPreferencesNotFound = errors.New("notification preferences not found")
	// ErrPreferencesAlreadyExist indicates an attempt to create preferences twice for the same user.
	ErrPreferencesAlreadyExist = errors.New("notification preferences already exist")
)
