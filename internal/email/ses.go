package email

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// EmailService handles sending emails via AWS SES
type EmailService struct {
	client    *ses.Client
	fromEmail string
	fromName  string
	baseURL   string
}

// NewEmailService creates a new email service using AWS SES
func NewEmailService(region, fromEmail, fromName, baseURL string) (*EmailService, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &EmailService{
		client:    ses.NewFromConfig(cfg),
		fromEmail: fromEmail,
		fromName:  fromName,
		baseURL:   baseURL,
	}, nil
}

// SendPasswordChangeEmail sends the password-change link with the short-lived token
func (e *EmailService) SendPasswordChangeEmail(ctx context.Context, toEmail, changeToken string) error {
	changeURL := fmt.Sprintf("%s/change-password?token=%s", e.baseURL, changeToken)

	subject := "Change Your Wave Password"
	htmlBody := fmt.Sprintf(`
		<!DOCTYPE html>
		<html>
		<head>
			<meta charset="UTF-8">
			<style>
				body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; }
				.container { max-width: 600px; margin: 0 auto; padding: 20px; }
				.button { display: inline-block; padding: 12px 24px; background-color: #ff5500; color: white; text-decoration: none; border-radius: 6px; margin: 20px 0; }
			</style>
		</head>
		<body>
			<div class="container">
				<h1>Change Your Password</h1>
				<p>You requested to change the password for your Wave account.</p>
				<p>Click the button below to choose a new password. This link will expire in 10 minutes.</p>
				<a href="%s" class="button">Change Password</a>
				<p>Or copy and paste this link into your browser:</p>
				<p style="word-break: break-all; color: #666;">%s</p>
				<p>If you didn't request this, you can safely ignore this email.</p>
				<hr>
				<p style="color: #999; font-size: 12px;">This is an automated message from Wave.</p>
			</div>
		</body>
		</html>
	`, changeURL, changeURL)

	textBody := fmt.Sprintf(`
Change Your Wave Password

You requested to change the password for your Wave account.

Click the link below to choose a new password. This link will expire in 10 minutes.

%s

If you didn't request this, you can safely ignore this email.

This is an automated message from Wave.
	`, changeURL)

	from := e.fromEmail
	if e.fromName != "" {
		from = fmt.Sprintf("%s <%s>", e.fromName, e.fromEmail)
	}

	input := &ses.SendEmailInput{
		Source: aws.String(from),
		Destination: &types.Destination{
			ToAddresses: []string{toEmail},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data:    aws.String(subject),
				Charset: aws.String("UTF-8"),
			},
			Body: &types.Body{
				Html: &types.Content{
					Data:    aws.String(htmlBody),
					Charset: aws.String("UTF-8"),
				},
				Text: &types.Content{
					Data:    aws.String(textBody),
					Charset: aws.String("UTF-8"),
				},
			},
		},
	}

	if _, err := e.client.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("failed to send password change email: %w", err)
	}
	return nil
}
