package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-router/internal/ingestion"
)

type poller interface {
	Poll(ctx context.Context) (ingestion.PollResult, error)
}

// IngestionWorker polls the mailbox on a fixed interval.
type IngestionWorker struct {
	pipeline poller
	interval time.Duration
	logger   *zap.Logger
	cron     *cron.Cron

	mu      sync.Mutex
	started bool
	stopped bool
}

// NewIngestionWorker builds a worker ticking every interval.
func NewIngestionWorker(pipeline poller, interval time.Duration, logger *zap.Logger) *IngestionWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &IngestionWorker{
		pipeline: pipeline,
		interval: interval,
		logger:   logger,
		cron:     cron.New(cron.WithLocation(time.UTC)),
	}
}

// Start schedules the poll. Polls run detached from ctx cancellation so a batch
// in flight when the service shuts down is finished rather than cut.
func (w *IngestionWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started || w.stopped {
		return errors.New("ingestion worker already started")
	}
	pollCtx := context.WithoutCancel(ctx)
	schedule := fmt.Sprintf("@every %s", w.interval)
	if _, err := w.cron.AddFunc(schedule, func() { w.tick(pollCtx) }); err != nil {
		return fmt.Errorf("schedule ingestion poll: %w", err)
	}
	w.cron.Start()
	w.started = true
	w.logger.Info("ingestion worker started", zap.Duration("interval", w.interval))
	return nil
}

// Stop prevents further ticks. The returned context is done once a running poll returns.
// A stopped worker cannot be restarted.
func (w *IngestionWorker) Stop() context.Context {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopped = true
	return w.cron.Stop()
}

func (w *IngestionWorker) tick(ctx context.Context) {
	result, err := w.pipeline.Poll(ctx)
	switch {
	case err != nil:
		w.logger.Error("ingestion poll failed", zap.Error(err))
	case result.Skipped:
		w.logger.Debug("ingestion poll skipped; previous run still active")
	}
}
