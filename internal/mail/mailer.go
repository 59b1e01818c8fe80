// Package mail delivers transactional email. Services depend on the Mailer
// interface only; the SMTP client is injected once at process start.
package mail

import "context"

// Mailer sends transactional email on behalf of the application.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
	// SendOTP delivers a password-reset code with the standard template.
	SendOTP(ctx context.Context, to, code string) error
}
