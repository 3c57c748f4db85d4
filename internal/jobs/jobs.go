// Package jobs schedules the pipeline's background work: the counter
// reconciliation sweep and the content re-scoring sweep. Jobs are
// checkpointed or idempotent, so an overlapping or interrupted run is safe;
// overlapping runs are skipped rather than stacked.
package jobs

import (
	"context"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Runner owns the cron scheduler.
type Runner struct {
	log  *zap.Logger
	cron *cron.Cron
}

// New creates a runner. Schedules use the six-field form with seconds.
func New(log *zap.Logger) *Runner {
	return &Runner{
		log: log,
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithChain(cron.Recover(cron.DefaultLogger)),
		),
	}
}

// Register schedules fn under the given cron expression. A run that is still
// going when the next tick fires suppresses that tick.
func (r *Runner) Register(schedule, name string, fn func(ctx context.Context) error) error {
	running := make(chan struct{}, 1)
	_, err := r.cron.AddFunc(schedule, func() {
		select {
		case running <- struct{}{}:
			defer func() { <-running }()
		default:
			r.log.Warn("skipping job tick, previous run still going", zap.String("job", name))
			return
		}
		if err := fn(context.Background()); err != nil {
			r.log.Error("background job failed", zap.String("job", name), zap.Error(err))
		}
	})
	if err != nil {
		return err
	}
	r.log.Info("background job registered", zap.String("job", name), zap.String("schedule", schedule))
	return nil
}

// Start begins scheduling.
func (r *Runner) Start() { r.cron.Start() }

// Stop stops scheduling and returns once running jobs finish.
func (r *Runner) Stop() {
	<-r.cron.Stop().Done()
}
