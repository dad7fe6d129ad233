package smtp

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

type captureDialer struct {
	sent []*gomail.Message
	err  error
}

func (d *captureDialer) DialAndSend(m ...*gomail.Message) error {
	if d.err != nil {
		return d.err
	}
	d.sent = append(d.sent, m...)
	return nil
}

func TestDeliver_RendersKnownTemplate(t *testing.T) {
	dialer := &captureDialer{}
	provider := newProvider(dialer, "Notifications <noreply@example.com>")

	err := provider.Deliver(context.Background(), "user@example.com", "Verify your email", "email_verification", map[string]string{
		"username":          "jane",
		"verification_link": "https://example.com/verify?token=abc",
		"service_name":      "Chadland",
	})
	require.NoError(t, err)
	require.Len(t, dialer.sent, 1)

	msg := dialer.sent[0]
	assert.Equal(t, []string{"Notifications <noreply@example.com>"}, msg.GetHeader("From"))
	assert.Equal(t, []string{"user@example.com"}, msg.GetHeader("To"))
	assert.Equal(t, []string{"Verify your email"}, msg.GetHeader("Subject"))
}

func TestDeliver_PassesRawContentThrough(t *testing.T) {
	dialer := &captureDialer{}
	provider := newProvider(dialer, "noreply@example.com")

	err := provider.Deliver(context.Background(), "user@example.com", "Hello", "<p>plain body</p>", nil)
	require.NoError(t, err)
	require.Len(t, dialer.sent, 1)
}

func TestDeliver_TransportErrorSurfaces(t *testing.T) {
	dialer := &captureDialer{err: errors.New("connection refused")}
	provider := newProvider(dialer, "noreply@example.com")

	err := provider.Deliver(context.Background(), "user@example.com", "Hello", "welcome", map[string]string{"service_name": "Chadland"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestRenderBody_TemplateVars(t *testing.T) {
	provider := newProvider(&captureDialer{}, "noreply@example.com")

	body, err := provider.renderBody("password_reset", map[string]string{
		"reset_link":   "https://example.com/reset?token=xyz",
		"service_name": "Chadland",
	})
	require.NoError(t, err)
	assert.Contains(t, body, "https://example.com/reset?token=xyz")
	assert.Contains(t, body, "Chadland Team")
}

func TestRenderBody_UnknownTemplateNameIsLiteral(t *testing.T) {
	provider := newProvider(&captureDialer{}, "noreply@example.com")

	body, err := provider.renderBody("no_such_template", map[string]string{"x": "y"})
	require.NoError(t, err)
	assert.Equal(t, "no_such_template", body)
}
