package helpers

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

const (
	SignupOTPSubject = "Signup OTP"
	ResetOTPSubject  = "Password Reset OTP"
)

// Mailer delivers one-time passcodes.
type Mailer interface {
	SendOTP(ctx context.Context, to, otp, subject string, ttl time.Duration) error
}

func OTPBody(otp string, ttl time.Duration) string {
	return fmt.Sprintf("Your OTP is: %s. It will expire in %d minutes.", otp, int(ttl.Minutes()))
}

type SendGridMailer struct {
	client *sendgrid.Client
	from   *mail.Email
}

func NewSendGridMailer(client *sendgrid.Client, fromEmail string) *SendGridMailer {
	return &SendGridMailer{
		client: client,
		from:   mail.NewEmail("", fromEmail),
	}
}

func (m *SendGridMailer) SendOTP(ctx context.Context, to, otp, subject string, ttl time.Duration) error {
	body := OTPBody(otp, ttl)
	msg := mail.NewSingleEmail(m.from, subject, mail.NewEmail("", to), body, "")

	resp, err := m.client.SendWithContext(ctx, msg)
	if err != nil {
		return fmt.Errorf("failed to send email: %v", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid rejected email: status=%d body=%s", resp.StatusCode, resp.Body)
	}
	return nil
}

// LogMailer only logs the message. It is used when no provider key is
// configured.
type LogMailer struct {
	Logger *slog.Logger
}

func (m *LogMailer) SendOTP(ctx context.Context, to, otp, subject string, ttl time.Duration) error {
	m.Logger.Warn("Email provider not configured, OTP email not sent",
		"to", to,
		"subject", subject,
	)
	m.Logger.Debug("OTP email body", "to", to, "body", OTPBody(otp, ttl))
	return nil
}
