package job

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"

	"elpa-backend/internal/infrastructure/email"
	"elpa-backend/internal/shared"
)

// ============================================
// Reset Password Email Handler
// ============================================

type ResetPasswordEmailHandler struct {
	emailService email.EmailService
}

func NewResetPasswordEmailHandler(emailService email.EmailService) *ResetPasswordEmailHandler {
	return &ResetPasswordEmailHandler{emailService: emailService}
}

func (h *ResetPasswordEmailHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	var payload shared.ResetPasswordPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		log.Error().Err(err).Msg("Failed to unmarshal ResetPasswordEmail payload")
		// sai format, retry cũng vô ích
		return fmt.Errorf("unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	log.Info().Str("email", payload.Email).Msg("Processing reset password email")

	err := h.emailService.SendResetPasswordEmail(ctx, email.ResetPasswordData{
		Name:     payload.Name,
		Email:    payload.Email,
		Password: payload.Password,
	})
	if err != nil {
		return fmt.Errorf("send reset password email: %w", err)
	}

	log.Info().Str("email", payload.Email).Msg("Reset password email sent successfully")
	return nil
}
