package service

import (
	"context"
	"log/slog"
)

// Mailer delivers signup verification codes.
type Mailer interface {
	SendVerificationCode(ctx context.Context, email string, code string) error
}

// LogMailer stands in for email delivery. The code is only written at debug
// level so local setups can complete a signup.
type LogMailer struct{}

func (LogMailer) SendVerificationCode(ctx context.Context, email string, code string) error {
	slog.InfoContext(ctx, "verification code issued", "email", email)
	slog.DebugContext(ctx, "verification code", "email", email, "verification_code", code)
	return nil
}
