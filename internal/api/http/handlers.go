// Package http exposes the service's REST surface with gin. Writes are
// dispatched as commands through the message bus; reads go straight to the
// repositories through a fresh unit of work.
package http

import (
	"context"
	"encoding/hex"
	"errors"
	"net/http"

	"github.com/chadland/notification-service/internal/app/bus"
	"github.com/chadland/notification-service/internal/domain"
	"github.com/chadland/notification-service/internal/domain/port/repository"
	"github.com/chadland/notification-service/internal/observability/tracing"
	"github.com/chadland/notification-service/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Handlers struct {
	messageBus *bus.MessageBus
	uowFactory repository.UnitOfWorkFactory
}

func NewHandlers(messageBus *bus.MessageBus, uowFactory repository.UnitOfWorkFactory) *Handlers {
	return &Handlers{
		messageBus: messageBus,
		uowFactory: uowFactory,
	}
}

// SendNotification dispatches a send_notification command synchronously and
// reports the resulting aggregate status.
func (h *Handlers) SendNotification(c *gin.Context) {
	ctx, span := tracing.Tracer.Start(c.Request.Context(), "SendNotificationHandler.Handle")
	defer span.End()

	var input SendNotificationRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload: " + err.Error()})
		return
	}
	if input.NotificationID == "" {
		input.NotificationID = newNotificationID()
	}
	cmd := domain.SendNotification{
		NotificationID:   input.NotificationID,
		UserID:           input.UserID,
		NotificationType: input.NotificationType,
		RecipientEmail:   input.RecipientEmail,
		Subject:          input.Subject,
		Content:          input.Content,
		TemplateVars:     input.TemplateVars,
	}

	if err := h.messageBus.Handle(ctx, cmd); err != nil {
		h.writeCommandError(c, ctx, err, "Error dispatching send notification command",
			zap.String("notificationID", cmd.NotificationID),
			zap.String("userID", cmd.UserID),
		)
		return
	}

	status := h.lookupStatus(ctx, cmd.NotificationID)
	c.JSON(http.StatusAccepted, SendNotificationResponse{
		NotificationID: cmd.NotificationID,
		Status:         status,
	})
}

// RetryNotification re-drives delivery of a failed notification.
func (h *Handlers) RetryNotification(c *gin.Context) {
	ctx, span := tracing.Tracer.Start(c.Request.Context(), "RetryNotificationHandler.Handle")
	defer span.End()

	notificationID := c.Param("notificationid")
	cmd := domain.RetryNotification{NotificationID: notificationID}

	if err := h.messageBus.Handle(ctx, cmd); err != nil {
		h.writeCommandError(c, ctx, err, "Error dispatching retry notification command",
			zap.String("notificationID", notificationID),
		)
		return
	}

	c.JSON(http.StatusAccepted, SendNotificationResponse{
		NotificationID: notificationID,
		Status:         h.lookupStatus(ctx, notificationID),
	})
}

// CreatePreferences creates the initial preferences record for a user.
func (h *Handlers) CreatePreferences(c *gin.Context) {
	ctx, span := tracing.Tracer.Start(c.Request.Context(), "CreatePreferencesHandler.Handle")
	defer span.End()

	var input CreatePreferencesRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload: " + err.Error()})
		return
	}
	cmd := domain.CreateNotificationPreferences{
		UserID:            input.UserID,
		NotificationEmail: input.NotificationEmail,
		Preferences:       input.Preferences,
	}

	if err := h.messageBus.Handle(ctx, cmd); err != nil {
		h.writeCommandError(c, ctx, err, "Error dispatching create preferences command",
			zap.String("userID", input.UserID),
		)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"userid": input.UserID})
}

// UpdatePreferences applies a partial preferences update for a user.
func (h *Handlers) UpdatePreferences(c *gin.Context) {
	ctx, span := tracing.Tracer.Start(c.Request.Context(), "UpdatePreferencesHandler.Handle")
	defer span.End()

	var input UpdatePreferencesRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload: " + err.Error()})
		return
	}
	cmd := domain.UpdateNotificationPreferences{
		UserID:            c.Param("userid"),
		NotificationEmail: input.NotificationEmail,
		Preferences:       input.Preferences,
	}

	if err := h.messageBus.Handle(ctx, cmd); err != nil {
		h.writeCommandError(c, ctx, err, "Error dispatching update preferences command",
			zap.String("userID", cmd.UserID),
		)
		return
	}

	c.JSON(http.StatusOK, gin.H{"userid": cmd.UserID})
}

// GetPreferences returns the stored preferences for a user.
func (h *Handlers) GetPreferences(c *gin.Context) {
	ctx, span := tracing.Tracer.Start(c.Request.Context(), "GetPreferencesHandler.Handle")
	defer span.End()

	userID, err := domain.NewUserID(c.Param("userid"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	uow := h.uowFactory.New()
	prefs, err := uow.NotificationPreferences().Get(ctx, userID)
	if err != nil {
		logger.L().Error("Error loading notification preferences",
			zap.String("userID", userID.String()),
			zap.String("traceID", logger.TraceIDFromContext(ctx)),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load preferences"})
		return
	}
	if prefs == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Preferences not found"})
		return
	}

	c.JSON(http.StatusOK, PreferencesResponse{
		UserID:            prefs.UserID.String(),
		NotificationEmail: prefs.NotificationEmail.String(),
		Preferences:       prefs.Settings.ToMap(),
	})
}

// GetNotificationHistory returns a user's notification requests, newest
// first.
func (h *Handlers) GetNotificationHistory(c *gin.Context) {
	ctx, span := tracing.Tracer.Start(c.Request.Context(), "GetNotificationHistoryHandler.Handle")
	defer span.End()

	userID, err := domain.NewUserID(c.Param("userid"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	uow := h.uowFactory.New()
	requests, err := uow.NotificationRequests().ListByUser(ctx, userID)
	if err != nil {
		logger.L().Error("Error loading notification history",
			zap.String("userID", userID.String()),
			zap.String("traceID", logger.TraceIDFromContext(ctx)),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load notification history"})
		return
	}

	entries := make([]NotificationHistoryEntry, 0, len(requests))
	for _, req := range requests {
		entries = append(entries, NotificationHistoryEntry{
			NotificationID:   req.NotificationID.String(),
			NotificationType: req.NotificationType.String(),
			RecipientEmail:   req.RecipientEmail.String(),
			Subject:          req.Subject,
			Status:           req.Status.String(),
			RetryCount:       req.RetryCount,
		})
	}

	c.JSON(http.StatusOK, NotificationHistoryResponse{
		UserID:        userID.String(),
		Notifications: entries,
	})
}

// newNotificationID mints a random 32-char hex identifier.
func newNotificationID() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])
}

// lookupStatus reads the aggregate status after a synchronous dispatch.
// Preference-gated sends never create an aggregate and report "skipped".
func (h *Handlers) lookupStatus(ctx context.Context, notificationID string) string {
	id, err := domain.NewNotificationID(notificationID)
	if err != nil {
		return "unknown"
	}
	uow := h.uowFactory.New()
	request, err := uow.NotificationRequests().Get(ctx, id)
	if err != nil || request == nil {
		return "skipped"
	}
	return request.Status.String()
}

func (h *Handlers) writeCommandError(c *gin.Context, ctx context.Context, err error, logMsg string, fields ...zap.Field) {
	fields = append(fields, zap.String("traceID", logger.TraceIDFromContext(ctx)), zap.Error(err))
	logger.L().Error(logMsg, fields...)

	switch {
	case errors.Is(err, domain.ErrInvalidUserID),
		errors.Is(err, domain.ErrInvalidNotificationID),
		errors.Is(err, domain.ErrInvalidEmail),
		errors.Is(err, domain.ErrUnknownNotificationType):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrPreferencesNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process request"})
	}
}
