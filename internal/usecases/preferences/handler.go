// Package preferences implements the create and update command handlers
// for the NotificationPreferences aggregate.
package preferences

import (
	"context"
	"fmt"

	"github.com/chadland/notification-service/internal/domain"
	"github.com/chadland/notification-service/internal/domain/port/repository"
	"github.com/chadland/notification-service/internal/observability/tracing"
	"github.com/chadland/notification-service/pkg/logger"
	"go.uber.org/zap"
)

type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

// HandleCreate creates the initial preferences aggregate for a user.
// Re-creation for a user that already has preferences is a no-op, keeping
// the handler idempotent under broker redelivery.
func (h *Handler) HandleCreate(ctx context.Context, uow repository.UnitOfWork, cmd domain.Command) error {
	c, ok := cmd.(domain.CreateNotificationPreferences)
	if !ok {
		return fmt.Errorf("preferences handler received %T", cmd)
	}

	ctx, span := tracing.Tracer.Start(ctx, "CreateNotificationPreferences.Handle")
	defer span.End()

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback(ctx)

	userID, err := domain.NewUserID(c.UserID)
	if err != nil {
		return err
	}
	existing, err := uow.NotificationPreferences().Get(ctx, userID)
	if err != nil {
		return err
	}
	if existing != nil {
		logger.L().Info("Notification preferences already exist, skipping create",
			zap.String("userID", c.UserID),
			zap.String("traceID", logger.TraceIDFromContext(ctx)),
		)
		return nil
	}

	prefs, evt, err := domain.NewNotificationPreferences(c.UserID, c.NotificationEmail, c.Preferences)
	if err != nil {
		return err
	}
	if err := uow.NotificationPreferences().Add(ctx, prefs); err != nil {
		return err
	}
	uow.Record(evt)

	if err := uow.Commit(ctx); err != nil {
		return err
	}

	logger.L().Info("Created notification preferences",
		zap.String("userID", c.UserID),
		zap.String("traceID", logger.TraceIDFromContext(ctx)),
	)
	return nil
}

// HandleUpdate applies a partial flag update (and optional email change) to
// existing preferences. Updating a user without preferences is an error.
func (h *Handler) HandleUpdate(ctx context.Context, uow repository.UnitOfWork, cmd domain.Command) error {
	c, ok := cmd.(domain.UpdateNotificationPreferences)
	if !ok {
		return fmt.Errorf("preferences handler received %T", cmd)
	}

	ctx, span := tracing.Tracer.Start(ctx, "UpdateNotificationPreferences.Handle")
	defer span.End()

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback(ctx)

	userID, err := domain.NewUserID(c.UserID)
	if err != nil {
		return err
	}
	existing, err := uow.NotificationPreferences().Get(ctx, userID)
	if err != nil {
		return err
	}
	if existing == nil {
		logger.L().Error("Cannot update non-existent preferences",
			zap.String("userID", c.UserID),
			zap.String("traceID", logger.TraceIDFromContext(ctx)),
		)
		return fmt.Errorf("%w: user %s", domain.ErrPreferencesNotFound, c.UserID)
	}

	if c.NotificationEmail != "" {
		if err := existing.UpdateEmail(c.NotificationEmail); err != nil {
			return err
		}
	}
	evt := existing.UpdateSettings(c.Preferences)
	uow.Record(evt)

	if err := uow.Commit(ctx); err != nil {
		return err
	}

	logger.L().Info("Updated notification preferences",
		zap.String("userID", c.UserID),
		zap.String("traceID", logger.TraceIDFromContext(ctx)),
	)
	return nil
}
