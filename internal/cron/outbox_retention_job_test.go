package cron

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/talentbridge/talentbridge-backend/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard})
}

func TestOutboxRetentionJobUsesWindow(t *testing.T) {
	now := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	purger := &fakeOutboxPurger{backlog: 7}
	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:     testLogger(),
		DB:         passthroughTx{},
		Repository: purger,
		Retention:  72 * time.Hour,
		Now:        func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("NewOutboxRetentionJob: %v", err)
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if want := now.Add(-72 * time.Hour); !purger.cutoff.Equal(want) {
		t.Fatalf("expected cutoff %s, got %s", want, purger.cutoff)
	}
	if purger.minAttempts != defaultOutboxMinAttempts {
		t.Fatalf("expected min attempts %d, got %d", defaultOutboxMinAttempts, purger.minAttempts)
	}
	if purger.calls != 1 {
		t.Fatalf("a short first batch should end the run, got %d calls", purger.calls)
	}
}

func TestOutboxRetentionJobDrainsInBatches(t *testing.T) {
	purger := &fakeOutboxPurger{backlog: 25}
	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:     testLogger(),
		DB:         passthroughTx{},
		Repository: purger,
		BatchSize:  10,
	})
	if err != nil {
		t.Fatalf("NewOutboxRetentionJob: %v", err)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if purger.calls != 3 || purger.backlog != 0 {
		t.Fatalf("expected 3 batches draining the backlog, got calls=%d left=%d", purger.calls, purger.backlog)
	}
}

func TestOutboxRetentionJobStopsOnCancel(t *testing.T) {
	purger := &fakeOutboxPurger{backlog: 1000}
	job, _ := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:     testLogger(),
		DB:         passthroughTx{},
		Repository: purger,
		BatchSize:  10,
	})
	ctx, cancel := context.WithCancel(context.Background())
	purger.afterCall = func(calls int) {
		if calls == 2 {
			cancel()
		}
	}
	if err := job.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if purger.calls != 2 {
		t.Fatalf("expected to stop after 2 batches, got %d", purger.calls)
	}
}

func TestOutboxRetentionJobDefaultsAndErrors(t *testing.T) {
	if _, err := NewOutboxRetentionJob(OutboxRetentionJobParams{Logger: testLogger()}); err == nil {
		t.Fatal("expected missing db runner to fail")
	}

	purger := &fakeOutboxPurger{err: errors.New("boom")}
	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:     testLogger(),
		DB:         passthroughTx{},
		Repository: purger,
	})
	if err != nil {
		t.Fatalf("NewOutboxRetentionJob: %v", err)
	}
	impl := job.(*outboxRetentionJob)
	if impl.retention != defaultOutboxRetention || impl.batchSize != defaultPurgeBatchSize {
		t.Fatalf("expected defaults, got retention=%s batch=%d", impl.retention, impl.batchSize)
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected purge error to propagate")
	}
}

type fakeOutboxPurger struct {
	cutoff      time.Time
	minAttempts int
	calls       int
	backlog     int64
	err         error
	afterCall   func(calls int)
}

func (f *fakeOutboxPurger) PurgeBatch(_ context.Context, _ *gorm.DB, cutoff time.Time, minAttemptCount, limit int) (int64, error) {
	f.calls++
	f.cutoff = cutoff
	f.minAttempts = minAttemptCount
	if f.afterCall != nil {
		defer f.afterCall(f.calls)
	}
	if f.err != nil {
		return 0, f.err
	}
	n := min(f.backlog, int64(limit))
	f.backlog -= n
	return n, nil
}

type passthroughTx struct{}

func (passthroughTx) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}
