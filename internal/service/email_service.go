package service

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"hoctap/internal/logger"
	"hoctap/internal/models"
)

// sesAPI is the part of the SES client the email service calls
type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// EmailService handles sending emails via Amazon SES
type EmailService struct {
	client     sesAPI
	fromEmail  string
	fromName   string
	appBaseURL string
	enabled    bool
	debug      bool
}

// NewEmailService creates a new email service
func NewEmailService(ctx context.Context, awsRegion, fromEmail, fromName, appBaseURL string, debug bool) (*EmailService, error) {
	// If fromEmail is empty, create a disabled service
	if fromEmail == "" {
		logger.Infof("Email service disabled: SES_FROM_EMAIL not configured")
		return &EmailService{enabled: false, debug: debug}, nil
	}

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(awsRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	logger.Infof("Email service enabled: from=%s, region=%s", fromEmail, awsRegion)
	return newEmailService(sesv2.NewFromConfig(cfg), fromEmail, fromName, appBaseURL, debug), nil
}

func newEmailService(client sesAPI, fromEmail, fromName, appBaseURL string, debug bool) *EmailService {
	return &EmailService{
		client:     client,
		fromEmail:  fromEmail,
		fromName:   fromName,
		appBaseURL: appBaseURL,
		enabled:    true,
		debug:      debug,
	}
}

// IsEnabled returns whether the email service is enabled
func (s *EmailService) IsEnabled() bool {
	return s.enabled
}

// purposeSubjects gives each OTP purpose its subject line and lead sentence
var purposeSubjects = map[models.Purpose]struct{ subject, action string }{
	models.PurposePasswordReset: {
		subject: "Mã xác thực đặt lại mật khẩu",
		action:  "đặt lại mật khẩu",
	},
	models.PurposeChangeUnlockCode: {
		subject: "Mã xác thực đổi mã mở khóa",
		action:  "đổi mã mở khóa",
	},
}

// SendOTPEmail sends a one-time code to toEmail
func (s *EmailService) SendOTPEmail(ctx context.Context, toEmail, code string, purpose models.Purpose, ttl time.Duration) error {
	if !s.enabled {
		logger.Infof("Skipping email send (service disabled): %s code to %s", purpose, toEmail)
		if s.debug {
			logger.Debugf("[DEBUG] Undelivered %s code for %s: %s", purpose, toEmail, code)
		}
		return nil
	}

	tmpl, ok := purposeSubjects[purpose]
	if !ok {
		return fmt.Errorf("no email template for purpose %q", purpose)
	}
	minutes := int(ttl.Minutes())

	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<style>
		body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
		.container { max-width: 600px; margin: 0 auto; padding: 20px; }
		.code { font-size: 32px; letter-spacing: 8px; font-weight: bold; text-align: center; margin: 24px 0; }
		.footer { text-align: center; margin-top: 20px; font-size: 12px; color: #666; }
	</style>
</head>
<body>
	<div class="container">
		<p>Xin chào,</p>
		<p>Bạn vừa yêu cầu %s. Mã xác thực của bạn là:</p>
		<div class="code">%s</div>
		<p><strong>Mã có hiệu lực trong %d phút.</strong></p>
		<p>Nếu bạn không thực hiện yêu cầu này, hãy bỏ qua email.</p>
		<div class="footer">
			<p>Email tự động từ %s. Vui lòng không trả lời.</p>
		</div>
	</div>
</body>
</html>
`, tmpl.action, code, minutes, s.appBaseURL)

	textBody := fmt.Sprintf(`Xin chào,

Bạn vừa yêu cầu %s. Mã xác thực của bạn là: %s

Mã có hiệu lực trong %d phút.

Nếu bạn không thực hiện yêu cầu này, hãy bỏ qua email.

---
Email tự động từ %s. Vui lòng không trả lời.
`, tmpl.action, code, minutes, s.appBaseURL)

	return s.sendEmail(ctx, toEmail, tmpl.subject, htmlBody, textBody)
}

// sendEmail sends an email using Amazon SES
func (s *EmailService) sendEmail(ctx context.Context, toEmail, subject, htmlBody, textBody string) error {
	fromAddress := s.fromEmail
	if s.fromName != "" {
		fromAddress = fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)
	}

	if s.debug {
		logger.Debugf("[DEBUG] sendEmail: from=%s, to=%s, subject=%s", fromAddress, toEmail, subject)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{toEmail},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
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
		},
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send email to %s: %w", toEmail, err)
	}

	if s.debug && result.MessageId != nil {
		logger.Debugf("[DEBUG] SES message ID: %s", *result.MessageId)
	}

	logger.Infof("Email sent successfully: to=%s, subject=%s", toEmail, subject)
	return nil
}
