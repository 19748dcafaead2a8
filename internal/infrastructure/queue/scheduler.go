package queue

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"

	"elpa-backend/internal/config"
	"elpa-backend/internal/shared"
	"elpa-backend/pkg/logger"
)

type Scheduler struct {
	scheduler *asynq.Scheduler
	jobConfig config.JobsConfig
}

func NewScheduler(redisOpt asynq.RedisClientOpt, jobConfig config.JobsConfig) *Scheduler {
	scheduler := asynq.NewScheduler(
		redisOpt,
		&asynq.SchedulerOpts{
			Location: time.UTC,
			LogLevel: asynq.InfoLevel,
		},
	)

	return &Scheduler{
		scheduler: scheduler,
		jobConfig: jobConfig,
	}
}

func (s *Scheduler) RegisterMaintenanceJobs() error {
	return s.registerRepairOwnershipJob()
}

// ================================================
// Repair Ownership (mặc định 3 AM hằng ngày)
// ================================================
func (s *Scheduler) registerRepairOwnershipJob() error {
	payload, err := json.Marshal(shared.RepairOwnershipPayload{})
	if err != nil {
		return err
	}

	_, err = s.scheduler.Register(
		s.jobConfig.RepairCron,
		asynq.NewTask(shared.TypeRepairOwnership, payload),
		asynq.Queue(shared.QueueDefault),
		asynq.MaxRetry(1),
		asynq.Timeout(15*time.Minute),
	)
	if err != nil {
		logger.Error("Failed to register RepairOwnership job", err)
		return err
	}

	logger.Info("Registered RepairOwnership job", map[string]interface{}{"cron": s.jobConfig.RepairCron})
	return nil
}

func (s *Scheduler) Start() error {
	return s.scheduler.Start()
}

func (s *Scheduler) Shutdown() {
	s.scheduler.Shutdown()
}
