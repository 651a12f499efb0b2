package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/talentbridge/talentbridge-backend/pkg/logger"
)

const (
	defaultOutboxRetention = 30 * 24 * time.Hour
	// terminal rows only become purgeable once they have exhausted this many attempts
	defaultOutboxMinAttempts = 10
	defaultPurgeBatchSize    = 500
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPurger interface {
	PurgeBatch(ctx context.Context, tx *gorm.DB, cutoff time.Time, minAttemptCount, limit int) (int64, error)
}

type OutboxRetentionJobParams struct {
	Logger      *logger.Logger
	DB          txRunner
	Repository  outboxPurger
	Retention   time.Duration
	MinAttempts int
	BatchSize   int
	Now         func() time.Time
}

// NewOutboxRetentionJob removes commission and withdrawal events that were
// delivered, or dead-lettered, longer ago than the retention window.
func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	switch {
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	case params.DB == nil:
		return nil, fmt.Errorf("db runner required")
	case params.Repository == nil:
		return nil, fmt.Errorf("outbox repository required")
	}
	job := &outboxRetentionJob{
		logg:        params.Logger,
		db:          params.DB,
		repo:        params.Repository,
		retention:   params.Retention,
		minAttempts: params.MinAttempts,
		batchSize:   params.BatchSize,
		now:         params.Now,
	}
	if job.retention <= 0 {
		job.retention = defaultOutboxRetention
	}
	if job.minAttempts <= 0 {
		job.minAttempts = defaultOutboxMinAttempts
	}
	if job.batchSize <= 0 {
		job.batchSize = defaultPurgeBatchSize
	}
	if job.now == nil {
		job.now = time.Now
	}
	return job, nil
}

type outboxRetentionJob struct {
	logg        *logger.Logger
	db          txRunner
	repo        outboxPurger
	retention   time.Duration
	minAttempts int
	batchSize   int
	now         func() time.Time
}

func (j *outboxRetentionJob) Name() string { return "outbox-retention" }

// Run purges in batches, each in its own transaction, until a short batch
// says the backlog is gone. The cutoff is fixed for the whole run.
func (j *outboxRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)
	var purged int64
	batches := 0
	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("purge outbox events after %d rows: %w", purged, err)
		}
		var n int64
		err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
			var err error
			n, err = j.repo.PurgeBatch(ctx, tx, cutoff, j.minAttempts, j.batchSize)
			return err
		})
		if err != nil {
			return fmt.Errorf("purge outbox events after %d rows: %w", purged, err)
		}
		purged += n
		batches++
		if n < int64(j.batchSize) {
			break
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"min_attempts": j.minAttempts,
		"purged":       purged,
		"batches":      batches,
	})
	j.logg.Info(logCtx, "outbox retention complete")
	return nil
}
