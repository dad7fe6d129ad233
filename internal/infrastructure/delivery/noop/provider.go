// Package noop provides an email provider that only logs. It is selected
// with EMAIL_DRIVER=log for local development and smoke tests, where real
// SMTP delivery is unwanted.
package noop

import (
	"context"

	"github.com/chadland/notification-service/internal/domain/port/delivery"
	"github.com/chadland/notification-service/pkg/logger"
	"go.uber.org/zap"
)

type Provider struct{}

func NewProvider() *Provider {
	return &Provider{}
}

func (p *Provider) Deliver(ctx context.Context, to, subject, content string, templateVars map[string]string) error {
	logger.L().Info("Email delivery skipped (log driver)",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.String("content", content),
		zap.Int("templateVars", len(templateVars)),
		zap.String("traceID", logger.TraceIDFromContext(ctx)),
	)
	return nil
}

var _ delivery.EmailProvider = (*Provider)(nil)
