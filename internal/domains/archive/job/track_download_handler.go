package job

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"

	"elpa-backend/internal/domains/archive"
	"elpa-backend/internal/shared"
)

// TrackDownloadHandler áp dụng download counter được enqueue từ API
type TrackDownloadHandler struct {
	archiveService archive.Service
}

func NewTrackDownloadHandler(archiveService archive.Service) *TrackDownloadHandler {
	return &TrackDownloadHandler{archiveService: archiveService}
}

func (h *TrackDownloadHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	var payload shared.TrackDownloadPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		log.Error().Err(err).Msg("Failed to unmarshal TrackDownload payload")
		return fmt.Errorf("unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	version, err := archive.ParseVersion(payload.Version)
	if err != nil {
		return fmt.Errorf("parse version: %v: %w", err, asynq.SkipRetry)
	}

	if err := h.archiveService.RecordDownload(ctx, payload.Key, version); err != nil {
		log.Warn().
			Err(err).
			Str("package", payload.Key).
			Str("version", payload.Version).
			Msg("Failed to record download")
		return fmt.Errorf("record download: %w", err)
	}
	return nil
}
