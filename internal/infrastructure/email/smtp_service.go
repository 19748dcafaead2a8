package email

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"

	"github.com/rs/zerolog/log"

	"elpa-backend/internal/config"
)

type EmailService interface {
	SendResetPasswordEmail(ctx context.Context, data ResetPasswordData) error
}

type smtpEmailService struct {
	smtpAddr string
	smtpFrom string
	auth     smtp.Auth
}

// NewSMTPEmailService: auth chỉ bật khi có username
func NewSMTPEmailService(cfg config.SMTPConfig) EmailService {
	s := &smtpEmailService{
		smtpAddr: net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		smtpFrom: cfg.From,
	}
	if cfg.Username != "" {
		s.auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return s
}

func (s *smtpEmailService) SendResetPasswordEmail(ctx context.Context, data ResetPasswordData) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := []byte(fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s",
		s.smtpFrom, data.Email, "Your package archive password", resetPasswordBody(data)))

	if err := smtp.SendMail(s.smtpAddr, s.auth, s.smtpFrom, []string{data.Email}, msg); err != nil {
		log.Error().Err(err).
			Str("to", data.Email).
			Str("smtp_addr", s.smtpAddr).
			Msg("failed to send email")
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func resetPasswordBody(data ResetPasswordData) string {
	return fmt.Sprintf(`Hello %s,

Your password has been reset. Your new password is:

    %s

You can change it from your profile after logging in.
If you did not request this, please contact the archive maintainers.
`, data.Name, data.Password)
}
