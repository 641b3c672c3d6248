package history

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Pruner removes records older than the retention period on a cron schedule.
type Pruner struct {
	store     Store
	retention time.Duration
	schedule  string
	logger    *slog.Logger
	now       func() time.Time

	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
}

// NewPruner creates a pruner. A zero retention disables pruning.
func NewPruner(store Store, retention time.Duration, schedule string, logger *slog.Logger) *Pruner {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pruner{
		store:     store,
		retention: retention,
		schedule:  schedule,
		logger:    logger,
		now:       time.Now,
		cron:      cron.New(cron.WithLocation(time.UTC)),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start registers the schedule and starts the cron runner.
func (p *Pruner) Start() error {
	if p.retention <= 0 {
		p.logger.Info("history_prune_disabled")
		return nil
	}
	if _, err := p.cron.AddFunc(p.schedule, func() {
		if _, err := p.RunOnce(p.ctx); err != nil {
			p.logger.Error("history_prune_failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("invalid prune schedule %q: %w", p.schedule, err)
	}
	p.cron.Start()
	p.logger.Info("history_prune_scheduled", "schedule", p.schedule, "retention", p.retention.String())
	return nil
}

// RunOnce prunes immediately.
func (p *Pruner) RunOnce(ctx context.Context) (int, error) {
	cutoff := p.now().Add(-p.retention)
	n, err := p.store.Prune(ctx, cutoff)
	if err != nil {
		return n, err
	}
	if n > 0 {
		p.logger.Info("history_pruned", "removed", n, "before", cutoff.UTC().Format(time.RFC3339))
	}
	return n, nil
}

// Stop waits for a running prune to finish and stops the schedule.
func (p *Pruner) Stop() {
	ctx := p.cron.Stop()
	<-ctx.Done()
	p.cancel()
}

// Scheduled reports whether a prune job is registered.
func (p *Pruner) Scheduled() bool {
	return len(p.cron.Entries()) > 0
}
