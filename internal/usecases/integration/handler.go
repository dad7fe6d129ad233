// Package integration reacts to events arriving from other services and to
// this service's own preference events, translating each into the
// appropriate notification command.
package integration

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/chadland/notification-service/internal/app/bus"
	"github.com/chadland/notification-service/internal/domain"
	"github.com/chadland/notification-service/internal/domain/port/repository"
	"github.com/google/uuid"
)

// Handler turns inbound events into SendNotification or
// CreateNotificationPreferences commands and invokes the corresponding
// command handler inside the same cascade's unit of work, the same way an
// externally submitted command would run.
type Handler struct {
	sendNotification  bus.CommandHandlerFunc
	createPreferences bus.CommandHandlerFunc
	serviceName       string
	verifyLinkBase    string
	resetLinkBase     string
}

func NewHandler(
	sendNotification bus.CommandHandlerFunc,
	createPreferences bus.CommandHandlerFunc,
	serviceName string,
	verifyLinkBase string,
	resetLinkBase string,
) *Handler {
	return &Handler{
		sendNotification:  sendNotification,
		createPreferences: createPreferences,
		serviceName:       serviceName,
		verifyLinkBase:    verifyLinkBase,
		resetLinkBase:     resetLinkBase,
	}
}

// deriveNotificationID maps an inbound event to a stable 32-char hex id so
// that reprocessing the same event after a lost ack resolves to the same
// aggregate instead of minting a duplicate. Events without a usable event id
// fall back to hashing the event name and payload.
func deriveNotificationID(evt domain.Event, meta domain.EventMeta) string {
	if u, err := uuid.Parse(meta.EventID); err == nil {
		return hex.EncodeToString(u[:])
	}
	payload, _ := json.Marshal(evt)
	sum := sha256.Sum256(append([]byte(evt.EventName()+"\n"), payload...))
	return hex.EncodeToString(sum[:16])
}

// HandleUserRegistered creates default all-enabled preferences for a new user.
func (h *Handler) HandleUserRegistered(ctx context.Context, uow repository.UnitOfWork, evt domain.Event) error {
	e, ok := evt.(domain.UserRegistered)
	if !ok {
		return fmt.Errorf("integration handler received %T", evt)
	}

	flags := make(map[string]bool, len(domain.AllNotificationTypes()))
	for _, nt := range domain.AllNotificationTypes() {
		flags[nt.String()] = true
	}
	return h.createPreferences(ctx, uow, domain.CreateNotificationPreferences{
		UserID:            e.UserID,
		NotificationEmail: e.Email,
		Preferences:       flags,
	})
}

// HandleEmailVerificationRequested sends an email verification notification.
func (h *Handler) HandleEmailVerificationRequested(ctx context.Context, uow repository.UnitOfWork, evt domain.Event) error {
	e, ok := evt.(domain.UserEmailVerificationRequested)
	if !ok {
		return fmt.Errorf("integration handler received %T", evt)
	}

	return h.sendNotification(ctx, uow, domain.SendNotification{
		NotificationID:   deriveNotificationID(e, e.EventMeta),
		UserID:           e.UserID,
		NotificationType: domain.TypeEmailVerification.String(),
		RecipientEmail:   e.Email,
		Subject:          "Please verify your email address",
		Content:          domain.TypeEmailVerification.String(), // template name
		TemplateVars: map[string]string{
			"username":          e.Username,
			"verification_link": h.verifyLinkBase + e.VerifyToken,
			"service_name":      h.serviceName,
		},
	})
}

// HandlePasswordResetRequested sends a password reset notification.
func (h *Handler) HandlePasswordResetRequested(ctx context.Context, uow repository.UnitOfWork, evt domain.Event) error {
	e, ok := evt.(domain.PasswordResetRequested)
	if !ok {
		return fmt.Errorf("integration handler received %T", evt)
	}

	return h.sendNotification(ctx, uow, domain.SendNotification{
		NotificationID:   deriveNotificationID(e, e.EventMeta),
		UserID:           e.UserID,
		NotificationType: domain.TypePasswordReset.String(),
		RecipientEmail:   e.Email,
		Subject:          "Password Reset Request",
		Content:          domain.TypePasswordReset.String(), // template name
		TemplateVars: map[string]string{
			"reset_link":   h.resetLinkBase + e.ResetToken,
			"service_name": h.serviceName,
		},
	})
}

// HandlePreferencesCreated sends a welcome notification to the fresh user.
func (h *Handler) HandlePreferencesCreated(ctx context.Context, uow repository.UnitOfWork, evt domain.Event) error {
	e, ok := evt.(domain.NotificationPreferencesCreated)
	if !ok {
		return fmt.Errorf("integration handler received %T", evt)
	}

	return h.sendNotification(ctx, uow, domain.SendNotification{
		NotificationID:   deriveNotificationID(e, e.EventMeta),
		UserID:           e.UserID,
		NotificationType: domain.TypeWelcome.String(),
		RecipientEmail:   e.NotificationEmail,
		Subject:          "Welcome to Notifications Service",
		Content:          domain.TypeWelcome.String(), // template name
		TemplateVars: map[string]string{
			"service_name": h.serviceName,
		},
	})
}

// HandlePreferencesUpdated notifies the user that their settings changed.
func (h *Handler) HandlePreferencesUpdated(ctx context.Context, uow repository.UnitOfWork, evt domain.Event) error {
	e, ok := evt.(domain.NotificationPreferencesUpdated)
	if !ok {
		return fmt.Errorf("integration handler received %T", evt)
	}

	return h.sendNotification(ctx, uow, domain.SendNotification{
		NotificationID:   deriveNotificationID(e, e.EventMeta),
		UserID:           e.UserID,
		NotificationType: domain.TypeSecurityAlert.String(),
		RecipientEmail:   e.NotificationEmail,
		Subject:          "Your Notification Preferences Have Been Updated",
		Content:          domain.TypeSecurityAlert.String(), // template name
		TemplateVars: map[string]string{
			"alert_message": "Your notification preferences have been successfully updated.",
			"service_name":  h.serviceName,
		},
	})
}
