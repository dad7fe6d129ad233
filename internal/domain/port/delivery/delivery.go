package delivery

import "context"

// EmailProvider is the outbound delivery collaborator consulted by the
// retry policy. Deliver returns nil on success; any error, including
// transport errors and context cancellation, is treated by the caller as a
// failed attempt and folded into the retry loop.
//
// Content may be a template name known to the provider or a literal HTML
// body; templateVars feed the rendering in the former case.
type EmailProvider interface {
	Deliver(ctx context.Context, to, subject, content string, templateVars map[string]string) error
}
