// Package sendnotification implements the SendNotification and
// RetryNotification command handlers, including the preference gate and the
// bounded delivery retry policy.
package sendnotification

import (
	"context"
	"fmt"
	"time"

	"github.com/chadland/notification-service/internal/domain"
	"github.com/chadland/notification-service/internal/domain/port/delivery"
	"github.com/chadland/notification-service/internal/domain/port/repository"
	"github.com/chadland/notification-service/internal/observability/metrics"
	"github.com/chadland/notification-service/internal/observability/tracing"
	"github.com/chadland/notification-service/pkg/backoff"
	"github.com/chadland/notification-service/pkg/logger"
	"go.uber.org/zap"
)

// Handler drives notification delivery. Its own success as a command
// handler depends only on persistence: a notification that exhausts its
// retry budget is recorded as failed aggregate state and reported through
// NotificationFailed events, not through a handler error.
type Handler struct {
	provider       delivery.EmailProvider
	maxRetries     int
	retryBaseDelay time.Duration
}

// NewHandler wires the delivery collaborator and retry policy settings.
// retryBaseDelay of zero keeps attempts immediate; a positive value adds
// exponential backoff between attempts.
func NewHandler(provider delivery.EmailProvider, maxRetries int, retryBaseDelay time.Duration) *Handler {
	if maxRetries <= 0 {
		logger.L().Warn("Invalid maxRetries provided, defaulting",
			zap.Int("providedMaxRetries", maxRetries),
			zap.Int("defaultMaxRetries", domain.DefaultMaxRetries),
		)
		maxRetries = domain.DefaultMaxRetries
	}
	return &Handler{
		provider:       provider,
		maxRetries:     maxRetries,
		retryBaseDelay: retryBaseDelay,
	}
}

// HandleSend processes a SendNotification command: idempotency check,
// preference gate, aggregate creation, delivery retry loop, commit.
func (h *Handler) HandleSend(ctx context.Context, uow repository.UnitOfWork, cmd domain.Command) error {
	c, ok := cmd.(domain.SendNotification)
	if !ok {
		return fmt.Errorf("sendnotification handler received %T", cmd)
	}

	ctx, span := tracing.Tracer.Start(ctx, "SendNotification.Handle")
	defer span.End()
	traceID := logger.TraceIDFromContext(ctx)

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback(ctx)

	// Idempotency: broker redelivery of an already-processed command must
	// not create a second aggregate nor re-emit events.
	notificationID, err := domain.NewNotificationID(c.NotificationID)
	if err != nil {
		return err
	}
	existing, err := uow.NotificationRequests().Get(ctx, notificationID)
	if err != nil {
		return err
	}
	if existing != nil {
		logger.L().Info("Notification already processed, skipping",
			zap.String("notificationID", c.NotificationID),
			zap.String("status", string(existing.Status)),
			zap.String("traceID", traceID),
		)
		return nil
	}

	userID, err := domain.NewUserID(c.UserID)
	if err != nil {
		return err
	}
	notificationType, err := domain.ParseNotificationType(c.NotificationType)
	if err != nil {
		return err
	}

	// Preference gate. A missing preferences record means default-enabled;
	// only an existing record with the type switched off suppresses the send.
	preferences, err := uow.NotificationPreferences().Get(ctx, userID)
	if err != nil {
		return err
	}
	if preferences != nil && !preferences.IsEnabled(notificationType) {
		logger.L().Info("Notification type disabled by user preferences, skipping",
			zap.String("userID", c.UserID),
			zap.String("notificationType", c.NotificationType),
			zap.String("traceID", traceID),
		)
		metrics.PreferenceBlocked.WithLabelValues(c.NotificationType).Inc()
		return nil
	}

	request, err := domain.NewNotificationRequest(
		c.NotificationID,
		c.UserID,
		c.NotificationType,
		c.RecipientEmail,
		c.Subject,
		c.Content,
		c.TemplateVars,
	)
	if err != nil {
		return err
	}
	if err := uow.NotificationRequests().Add(ctx, request); err != nil {
		return err
	}

	if err := h.deliverWithRetries(ctx, uow, request); err != nil {
		return err
	}

	return uow.Commit(ctx)
}

// HandleRetry processes a RetryNotification command by re-driving delivery
// of an existing failed request that still has retry budget.
func (h *Handler) HandleRetry(ctx context.Context, uow repository.UnitOfWork, cmd domain.Command) error {
	c, ok := cmd.(domain.RetryNotification)
	if !ok {
		return fmt.Errorf("sendnotification handler received %T", cmd)
	}

	ctx, span := tracing.Tracer.Start(ctx, "RetryNotification.Handle")
	defer span.End()
	traceID := logger.TraceIDFromContext(ctx)

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback(ctx)

	notificationID, err := domain.NewNotificationID(c.NotificationID)
	if err != nil {
		return err
	}
	request, err := uow.NotificationRequests().Get(ctx, notificationID)
	if err != nil {
		return err
	}
	if request == nil || request.Status != domain.StatusFailed || !request.CanRetry(h.maxRetries) {
		logger.L().Warn("Notification not found or not retryable, skipping retry",
			zap.String("notificationID", c.NotificationID),
			zap.String("traceID", traceID),
		)
		return nil
	}

	if err := h.deliverWithRetries(ctx, uow, request); err != nil {
		return err
	}

	return uow.Commit(ctx)
}

// deliverWithRetries runs the bounded retry policy against the delivery
// collaborator, recording one domain event per attempt outcome. Context
// cancellation surfaces as a provider error and folds into the same path
// as any other delivery failure.
func (h *Handler) deliverWithRetries(ctx context.Context, uow repository.UnitOfWork, request *domain.NotificationRequest) error {
	traceID := logger.TraceIDFromContext(ctx)
	notificationType := request.NotificationType.String()
	attempt := request.RetryCount

	for request.CanRetry(h.maxRetries) {
		attempt++

		deliverErr := h.provider.Deliver(ctx,
			request.RecipientEmail.String(),
			request.Subject,
			request.Content,
			request.TemplateVars,
		)

		if deliverErr == nil {
			metrics.DeliveryAttempts.WithLabelValues(notificationType, "true").Inc()
			evt, err := request.MarkAsSent()
			if err != nil {
				return err
			}
			uow.Record(evt)
			metrics.NotificationsSent.WithLabelValues(notificationType).Inc()
			logger.L().Info("Notification delivered",
				zap.String("notificationID", request.NotificationID.String()),
				zap.String("notificationType", notificationType),
				zap.Int("attempt", attempt),
				zap.String("traceID", traceID),
			)
			return nil
		}

		metrics.DeliveryAttempts.WithLabelValues(notificationType, "false").Inc()
		logger.L().Error("Delivery attempt failed",
			zap.String("notificationID", request.NotificationID.String()),
			zap.String("notificationType", notificationType),
			zap.Int("attempt", attempt),
			zap.Int("maxRetries", h.maxRetries),
			zap.String("traceID", traceID),
			zap.Error(deliverErr),
		)

		evt, err := request.MarkAsFailed(deliverErr.Error())
		if err != nil {
			return err
		}
		uow.Record(evt)

		if !request.CanRetry(h.maxRetries) {
			break
		}
		if err := request.IncrementRetry(); err != nil {
			return err
		}
		if request.CanRetry(h.maxRetries) && h.retryBaseDelay > 0 {
			backoff.Sleep(ctx, backoff.CalculateRetryDelay(attempt+1, h.retryBaseDelay))
		}
	}

	if request.Status == domain.StatusFailed {
		metrics.NotificationsExhausted.WithLabelValues(notificationType).Inc()
		logger.L().Warn("Notification retry budget exhausted",
			zap.String("notificationID", request.NotificationID.String()),
			zap.String("notificationType", notificationType),
			zap.Int("retryCount", request.RetryCount),
			zap.String("traceID", traceID),
		)
	}
	return nil
}
