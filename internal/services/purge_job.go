package services

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// AccountPurger removes soft-deleted accounts past their retention.
type AccountPurger interface {
	PurgeDeleted(ctx context.Context, retention time.Duration) (int64, error)
}

type PurgeConfig struct {
	Schedule  string
	Retention time.Duration
	Timeout   time.Duration
}

// PurgeJob runs the account purge on a cron schedule.
type PurgeJob struct {
	purger AccountPurger
	cfg    PurgeConfig
	cron   *cron.Cron
	logger *zap.Logger
}

// NewPurgeJob parses the schedule up front so a bad expression fails at boot.
func NewPurgeJob(purger AccountPurger, cfg PurgeConfig, logger *zap.Logger) (*PurgeJob, error) {
	if cfg.Schedule == "" {
		cfg.Schedule = "@daily"
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 30 * 24 * time.Hour
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	job := &PurgeJob{
		purger: purger,
		cfg:    cfg,
		cron:   cron.New(),
		logger: logger,
	}
	if _, err := job.cron.AddFunc(cfg.Schedule, job.tick); err != nil {
		return nil, err
	}
	return job, nil
}

func (j *PurgeJob) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), j.cfg.Timeout)
	defer cancel()
	if _, err := j.Run(ctx); err != nil {
		j.logger.Error("account purge failed", zap.Error(err))
	}
}

// Run purges once.
func (j *PurgeJob) Run(ctx context.Context) (int64, error) {
	return j.purger.PurgeDeleted(ctx, j.cfg.Retention)
}

func (j *PurgeJob) Start() {
	j.cron.Start()
	j.logger.Info("account purge scheduled", zap.String("schedule", j.cfg.Schedule))
}

func (j *PurgeJob) Stop(ctx context.Context) error {
	select {
	case <-j.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
