package core

// scheduler.go runs history maintenance in the background.
//
// Jobs older than the retention window are deleted from the history store
// once at start and then on every tick. Stores that cannot prune are left
// alone. Failures are logged and retried on the next tick.

import (
	"context"
	"time"

	"github.com/JonMunkholm/sheets/internal/history"
	"github.com/JonMunkholm/sheets/internal/logging"
)

// PruneConfig controls the history pruner.
type PruneConfig struct {
	Retention time.Duration // jobs older than this are deleted
	Interval  time.Duration // time between runs
}

// StartHistoryPruner blocks until ctx is cancelled, pruning old jobs every
// cfg.Interval. It returns immediately when the store cannot prune or the
// retention is zero.
func (s *Service) StartHistoryPruner(ctx context.Context, cfg PruneConfig) {
	log := logging.FromContext(ctx)

	pruner, ok := s.history.(history.Pruner)
	if !ok || cfg.Retention <= 0 || cfg.Interval <= 0 {
		log.Debug("history pruner disabled")
		return
	}
	log.Info("history pruner started", "retention", cfg.Retention, "interval", cfg.Interval)

	s.pruneHistory(ctx, pruner, cfg.Retention)

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("history pruner stopped")
			return
		case <-ticker.C:
			s.pruneHistory(ctx, pruner, cfg.Retention)
		}
	}
}

func (s *Service) pruneHistory(ctx context.Context, pruner history.Pruner, retention time.Duration) {
	log := logging.FromContext(ctx)
	start := time.Now()

	n, err := pruner.Prune(ctx, start.Add(-retention))
	if err != nil {
		log.Error("history prune failed", "error", err)
		return
	}
	log.Info("pruned job history", "jobs_pruned", n, "duration_ms", time.Since(start).Milliseconds())
}
