package evidence

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Pruner enforces the retention window on a storage backend.
type Pruner struct {
	storage   Storage
	retention time.Duration
	schedule  string
	logger    *slog.Logger

	cron *cron.Cron
}

// NewPruner creates a pruner deleting records older than retentionDays on
// the given cron schedule.
func NewPruner(storage Storage, retentionDays int, schedule string, logger *slog.Logger) (*Pruner, error) {
	if retentionDays <= 0 {
		return nil, fmt.Errorf("retention days must be positive, got %d", retentionDays)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pruner{
		storage:   storage,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		schedule:  schedule,
		logger:    logger,
	}, nil
}

// Start begins scheduled pruning.
func (p *Pruner) Start() error {
	c := cron.New()
	_, err := c.AddFunc(p.schedule, func() {
		if _, err := p.Prune(context.Background()); err != nil {
			p.logger.Error("evidence pruning failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid prune schedule %q: %w", p.schedule, err)
	}
	p.cron = c
	c.Start()
	return nil
}

// Stop halts scheduled pruning.
func (p *Pruner) Stop() {
	if p.cron != nil {
		p.cron.Stop()
	}
}

// Prune deletes records past the retention window.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-p.retention)
	pruned, err := p.storage.PruneBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if pruned > 0 {
		p.logger.Info("pruned evidence records", "count", pruned, "cutoff", cutoff)
	}
	return pruned, nil
}
