package app

import (
	"context"
	"time"

	"github.com/matthigger/oh-sched-web/pkg/logger"
	"github.com/matthigger/oh-sched-web/pkg/metrics"
)

// Janitor prunes expired run output directories on an interval.
type Janitor struct {
	root      string
	retention time.Duration
	interval  time.Duration
	now       func() time.Time
	logger    logger.Logger
}

// NewJanitor builds a janitor for root. Non-positive durations fall back
// to one day of retention checked every ten minutes.
func NewJanitor(root string, retention, interval time.Duration, l logger.Logger) *Janitor {
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	if l == nil {
		l = logger.Nop()
	}
	return &Janitor{root: root, retention: retention, interval: interval, now: time.Now, logger: l}
}

// Sweep runs a single pruning pass and returns the number of removed runs.
func (j *Janitor) Sweep(ctx context.Context) int {
	n, err := PruneOutputs(ctx, j.root, j.retention, j.now())
	if n > 0 {
		metrics.RecordOutputsPruned(n)
		j.logger.Info(ctx, "pruned expired run outputs", logger.Int("removed", n))
	}
	if err != nil {
		metrics.RecordCleanupError()
		j.logger.Warn(ctx, "pruning run outputs failed", logger.Error(err))
	}
	return n
}

// Run sweeps until ctx is cancelled.
func (j *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.Sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.Sweep(ctx)
		}
	}
}
