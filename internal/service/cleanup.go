package service

import (
	"context"
	"log/slog"
	"time"
)

// Cleaner physically removes rows that reads already treat as absent.
type Cleaner interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

// StartCleanupTicker runs every cleaner once immediately and then on each tick
// until ctx is cancelled.
func StartCleanupTicker(ctx context.Context, interval time.Duration, cleaners ...Cleaner) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	runCleaners(ctx, cleaners)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runCleaners(ctx, cleaners)
		}
	}
}

func runCleaners(ctx context.Context, cleaners []Cleaner) {
	for _, c := range cleaners {
		removed, err := c.CleanupExpired(ctx)
		if err != nil {
			slog.Warn("expired row cleanup failed", "error", err)
			continue
		}
		if removed > 0 {
			slog.Info("cleaned up expired rows", "count", removed)
		}
	}
}
