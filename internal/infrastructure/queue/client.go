package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"elpa-backend/internal/domains/archive"
	"elpa-backend/internal/domains/user"
	"elpa-backend/internal/shared"
)

// Client enqueue task cho worker. Implement archive.DownloadTracker
// và user.Notifier để API không chờ counter hay SMTP.
type Client struct {
	client *asynq.Client
}

func NewClient(redisOpt asynq.RedisClientOpt) *Client {
	return &Client{client: asynq.NewClient(redisOpt)}
}

func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) enqueue(ctx context.Context, taskType string, payload any, opts ...asynq.Option) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", taskType, err)
	}
	if _, err := c.client.EnqueueContext(ctx, asynq.NewTask(taskType, data), opts...); err != nil {
		return fmt.Errorf("enqueue %s: %w", taskType, err)
	}
	return nil
}

func (c *Client) TrackDownload(ctx context.Context, key string, version archive.Version) error {
	return c.enqueue(ctx, shared.TypeTrackDownload,
		shared.TrackDownloadPayload{Key: key, Version: version.String()},
		asynq.Queue(shared.QueueLow),
		asynq.MaxRetry(3),
		asynq.Timeout(30*time.Second),
	)
}

func (c *Client) NotifyPasswordReset(ctx context.Context, u *user.User, password string) error {
	return c.enqueue(ctx, shared.TypeSendResetEmail,
		shared.ResetPasswordPayload{Name: u.Name, Email: u.Email, Password: password},
		asynq.Queue(shared.QueueCritical),
		asynq.MaxRetry(5),
		asynq.Timeout(time.Minute),
	)
}

// EnqueueRepairOwnership chạy repair ngay, ngoài lịch cron
func (c *Client) EnqueueRepairOwnership(ctx context.Context) error {
	return c.enqueue(ctx, shared.TypeRepairOwnership, shared.RepairOwnershipPayload{},
		asynq.Queue(shared.QueueDefault),
		asynq.MaxRetry(1),
		asynq.Unique(10*time.Minute),
	)
}
