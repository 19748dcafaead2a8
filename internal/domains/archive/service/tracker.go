package service

import (
	"context"

	"elpa-backend/internal/domains/archive"
)

// DirectTracker tăng counter ngay trong request. Dùng khi không có queue.
type DirectTracker struct {
	repo archive.Repository
}

func NewDirectTracker(repo archive.Repository) *DirectTracker {
	return &DirectTracker{repo: repo}
}

func (t *DirectTracker) TrackDownload(ctx context.Context, key string, version archive.Version) error {
	return t.repo.IncrementDownloads(ctx, key, version)
}
