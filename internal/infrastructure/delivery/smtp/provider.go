// Package smtp delivers notification emails over SMTP using gomail. When
// the command's content names one of the built-in templates and template
// vars are present, the body is rendered from that template; otherwise the
// content is sent as-is.
package smtp

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/chadland/notification-service/configs"
	"github.com/chadland/notification-service/internal/domain/port/delivery"
	"github.com/chadland/notification-service/pkg/logger"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

var templateSources = map[string]string{
	"email_verification": `<html>
<body>
<h2>Email Verification Required</h2>
<p>Hi {{.username}},</p>
<p>Please verify your email address by clicking the link below:</p>
<p><a href="{{.verification_link}}">Verify Email</a></p>
<p>Best regards,<br>{{.service_name}} Team</p>
</body>
</html>`,

	"password_reset": `<html>
<body>
<h2>Password Reset Request</h2>
<p>Hi,</p>
<p>You requested a password reset. Click the link below to reset your password:</p>
<p><a href="{{.reset_link}}">Reset Password</a></p>
<p>If you didn't request this, please ignore this email.</p>
<p>Best regards,<br>{{.service_name}} Team</p>
</body>
</html>`,

	"welcome": `<html>
<body>
<h2>Welcome to {{.service_name}}!</h2>
<p>Hi,</p>
<p>Welcome to our platform! We're excited to have you on board.</p>
<p>Best regards,<br>{{.service_name}} Team</p>
</body>
</html>`,

	"security_alert": `<html>
<body>
<h2>Security Alert</h2>
<p>Hi,</p>
<p>{{.alert_message}}</p>
<p>If this wasn't you, please contact support immediately.</p>
<p>Best regards,<br>{{.service_name}} Team</p>
</body>
</html>`,
}

// Dialer abstracts gomail's DialAndSend so tests can intercept messages.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type Provider struct {
	dialer    Dialer
	from      string
	templates *template.Template
}

// NewProvider builds the SMTP email provider from config. The template set
// is parsed once at construction; a parse failure is a programming error
// and panics at startup rather than at delivery time.
func NewProvider(conf *configs.EmailConf) *Provider {
	dialer := gomail.NewDialer(conf.Host, conf.Port, conf.Username, conf.Password)
	from := conf.FromAddress
	if conf.FromName != "" {
		from = fmt.Sprintf("%s <%s>", conf.FromName, conf.FromAddress)
	}
	return newProvider(dialer, from)
}

func newProvider(dialer Dialer, from string) *Provider {
	root := template.New("email")
	for name, src := range templateSources {
		template.Must(root.New(name).Parse(src))
	}
	return &Provider{
		dialer:    dialer,
		from:      from,
		templates: root,
	}
}

// Deliver sends one email. Any transport or rendering error is returned to
// the caller, which treats it as a failed delivery attempt.
func (p *Provider) Deliver(ctx context.Context, to, subject, content string, templateVars map[string]string) error {
	body, err := p.renderBody(content, templateVars)
	if err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", p.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	if err := p.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("sending email to %s: %w", to, err)
	}

	logger.L().Info("Email sent",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.String("traceID", logger.TraceIDFromContext(ctx)),
	)
	return nil
}

func (p *Provider) renderBody(content string, templateVars map[string]string) (string, error) {
	tmpl := p.templates.Lookup(content)
	if tmpl == nil || len(templateVars) == 0 {
		return content, nil
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, templateVars); err != nil {
		return "", fmt.Errorf("rendering template %q: %w", content, err)
	}
	return buf.String(), nil
}

var _ delivery.EmailProvider = (*Provider)(nil)
