package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// Mailer defines the interface for sending security alert emails
type Mailer interface {
	SendMFALockoutAlert(ctx context.Context, email string, lockedUntil time.Time) error
}

// AWSSESMailer sends alert emails using AWS SES
type AWSSESMailer struct {
	sesClient   *ses.Client
	fromAddress string
	logger      *slog.Logger
}

// NewAWSSESMailer creates a new AWS SES mailer
func NewAWSSESMailer(region, fromAddress string, logger *slog.Logger) (*AWSSESMailer, error) {
	cfg, err := config.LoadDefaultConfig(context.Background(), config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &AWSSESMailer{
		sesClient:   ses.NewFromConfig(cfg),
		fromAddress: fromAddress,
		logger:      logger,
	}, nil
}

// SendMFALockoutAlert notifies an account holder that MFA verification has
// been locked after repeated failures.
func (s *AWSSESMailer) SendMFALockoutAlert(ctx context.Context, email string, lockedUntil time.Time) error {
	until := lockedUntil.UTC().Format(time.RFC1123)

	textBody := fmt.Sprintf(`Security alert

Multi-factor verification for your account has been temporarily locked after
too many incorrect codes.

You can try again after: %s

If this wasn't you, contact your administrator immediately. Your password has
not been changed and no session was started.

This is an automated message. Please do not reply to this email.
`, until)

	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <h1>Security Alert</h1>
        <p>Multi-factor verification for your account has been temporarily locked after too many incorrect codes.</p>
        <p>You can try again after: <strong>%s</strong></p>
        <p><strong>If this wasn't you</strong>, contact your administrator immediately. Your password has not been changed and no session was started.</p>
        <p style="color: #666; font-size: 12px;">This is an automated message. Please do not reply to this email.</p>
    </div>
</body>
</html>
`, until)

	input := &ses.SendEmailInput{
		Source: aws.String(s.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{email},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String("Security alert: verification locked"),
			},
			Body: &types.Body{
				Html: &types.Content{
					Data: aws.String(htmlBody),
				},
				Text: &types.Content{
					Data: aws.String(textBody),
				},
			},
		},
	}

	result, err := s.sesClient.SendEmail(ctx, input)
	if err != nil {
		s.logger.Error("failed to send lockout alert via SES",
			slog.String("email", email),
			slog.Any("error", err))
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Info("lockout alert sent",
		slog.String("email", email),
		slog.String("message_id", *result.MessageId))

	return nil
}

// NoopMailer satisfies Mailer when email alerts are disabled.
type NoopMailer struct {
	logger *slog.Logger
}

// NewNoopMailer creates a mailer that logs instead of sending
func NewNoopMailer(logger *slog.Logger) *NoopMailer {
	return &NoopMailer{logger: logger}
}

func (s *NoopMailer) SendMFALockoutAlert(ctx context.Context, email string, lockedUntil time.Time) error {
	s.logger.InfoContext(ctx, "email alerts disabled, skipping lockout alert",
		slog.String("email", email))
	return nil
}
