package job

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"

	"elpa-backend/internal/domains/archive"
)

// RepairOwnershipHandler chạy RepairOwnership theo lịch cron
type RepairOwnershipHandler struct {
	archiveService archive.Service
}

func NewRepairOwnershipHandler(archiveService archive.Service) *RepairOwnershipHandler {
	return &RepairOwnershipHandler{archiveService: archiveService}
}

func (h *RepairOwnershipHandler) ProcessTask(ctx context.Context, _ *asynq.Task) error {
	log.Info().Msg("Starting ownership repair")

	report, err := h.archiveService.RepairOwnership(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Ownership repair finished with errors")
		return fmt.Errorf("repair ownership: %w", err)
	}

	log.Info().
		Strs("links_added", report.LinksAdded).
		Strs("links_removed", report.LinksRemoved).
		Msg("Ownership repair completed")
	return nil
}
