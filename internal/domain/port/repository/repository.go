package repository

import (
	"context"

	"github.com/chadland/notification-service/internal/domain"
)

// NotificationRequestRepository is the capability contract used to persist
// NotificationRequest aggregates. Get returns (nil, nil) when no aggregate
// exists for the id; an error signals a storage failure, never absence.
type NotificationRequestRepository interface {
	Get(ctx context.Context, id domain.NotificationID) (*domain.NotificationRequest, error)
	Add(ctx context.Context, request *domain.NotificationRequest) error
	// ListByUser returns the user's notification requests in reverse
	// chronological order.
	ListByUser(ctx context.Context, userID domain.UserID) ([]*domain.NotificationRequest, error)
}

// NotificationPreferencesRepository persists NotificationPreferences
// aggregates keyed by user id. Get returns (nil, nil) when the user has no
// preferences record.
type NotificationPreferencesRepository interface {
	Get(ctx context.Context, userID domain.UserID) (*domain.NotificationPreferences, error)
	Add(ctx context.Context, preferences *domain.NotificationPreferences) error
}

// UnitOfWork is the transactional scope backing one command-processing
// cascade. Aggregates loaded or added through its repositories are tracked;
// Commit atomically persists their current state and promotes recorded
// events into the collectible set. Rollback discards staged mutations and
// any events recorded but not yet committed.
//
// A UnitOfWork instance is not safe for concurrent use and must not be
// shared across unrelated inbound messages.
type UnitOfWork interface {
	// Begin opens a new transaction. Each handler invocation within a
	// cascade opens and commits its own transaction on the shared instance.
	Begin(ctx context.Context) error
	// Commit persists all tracked aggregate state atomically and makes
	// events recorded during the transaction available to CollectNewEvents.
	Commit(ctx context.Context) error
	// Rollback aborts the current transaction, if any, and drops events
	// recorded since Begin. Safe to call after Commit as a no-op, which
	// allows the deferred-rollback idiom in handlers.
	Rollback(ctx context.Context) error

	NotificationRequests() NotificationRequestRepository
	NotificationPreferences() NotificationPreferencesRepository

	// Record appends events produced by aggregate transitions to the
	// pending buffer of the current transaction.
	Record(events ...domain.Event)
	// CollectNewEvents is a destructive read: it returns exactly the events
	// committed since the previous call and clears that buffer.
	CollectNewEvents() []domain.Event
}

// UnitOfWorkFactory creates one UnitOfWork per cascade.
type UnitOfWorkFactory interface {
	New() UnitOfWork
}
