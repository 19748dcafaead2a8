package main

import (
	"github.com/hibiken/asynq"

	archiveJob "elpa-backend/internal/domains/archive/job"
	emailJob "elpa-backend/internal/infrastructure/email/job"
	"elpa-backend/internal/shared"
	"elpa-backend/pkg/container"
)

// HandlerRegistry holds all job handlers
type HandlerRegistry struct {
	// Archive
	trackDownload   *archiveJob.TrackDownloadHandler
	repairOwnership *archiveJob.RepairOwnershipHandler

	// Email
	resetPassword *emailJob.ResetPasswordEmailHandler
}

func initializeHandlers(c *container.Container) *HandlerRegistry {
	return &HandlerRegistry{
		trackDownload:   archiveJob.NewTrackDownloadHandler(c.ArchiveService),
		repairOwnership: archiveJob.NewRepairOwnershipHandler(c.ArchiveService),
		resetPassword:   emailJob.NewResetPasswordEmailHandler(c.EmailService),
	}
}

// RegisterHandlers registers all handlers with the mux
func (h *HandlerRegistry) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(shared.TypeTrackDownload, h.trackDownload.ProcessTask)
	mux.HandleFunc(shared.TypeRepairOwnership, h.repairOwnership.ProcessTask)
	mux.HandleFunc(shared.TypeSendResetEmail, h.resetPassword.ProcessTask)
}
