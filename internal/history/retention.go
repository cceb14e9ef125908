package history

// retention.go runs the periodic cleanup of old run summaries. The
// scheduler is long-running and context-aware for graceful shutdown; a
// failed prune is logged and retried on the next interval, never fatal.

import (
	"context"
	"log/slog"
	"time"
)

// RetentionConfig holds the cleanup policy. Zero values get defaults.
type RetentionConfig struct {
	RetentionDays int           // days to keep summaries (default: 180)
	CheckInterval time.Duration // how often to prune (default: 24h)
}

func (c RetentionConfig) withDefaults() RetentionConfig {
	if c.RetentionDays <= 0 {
		c.RetentionDays = 180
	}
	if c.CheckInterval <= 0 {
		c.CheckInterval = 24 * time.Hour
	}
	return c
}

// StartRetentionScheduler prunes old summaries immediately, then every
// CheckInterval until the context is cancelled.
func (s *Store) StartRetentionScheduler(ctx context.Context, cfg RetentionConfig) {
	cfg = cfg.withDefaults()

	slog.Info("retention scheduler started",
		"retention_days", cfg.RetentionDays,
		"check_interval", cfg.CheckInterval,
	)

	s.runPrune(ctx, cfg)

	ticker := time.NewTicker(cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("retention scheduler stopped")
			return
		case <-ticker.C:
			s.runPrune(ctx, cfg)
		}
	}
}

func (s *Store) runPrune(ctx context.Context, cfg RetentionConfig) {
	start := time.Now()
	cutoff := time.Now().AddDate(0, 0, -cfg.RetentionDays)

	pruned, err := s.PruneOlderThan(ctx, cutoff)
	if err != nil {
		slog.Error("retention prune failed", "error", err)
		return
	}

	slog.Info("pruned old run summaries",
		"runs_pruned", pruned,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
