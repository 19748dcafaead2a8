package email

import (
	"context"

	"elpa-backend/internal/domains/user"
)

// Notifier gửi email reset password đồng bộ. Dùng khi không chạy worker.
type Notifier struct {
	emailService EmailService
}

func NewNotifier(emailService EmailService) *Notifier {
	return &Notifier{emailService: emailService}
}

func (n *Notifier) NotifyPasswordReset(ctx context.Context, u *user.User, password string) error {
	return n.emailService.SendResetPasswordEmail(ctx, ResetPasswordData{
		Name:     u.Name,
		Email:    u.Email,
		Password: password,
	})
}
