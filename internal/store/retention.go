package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/avasilyev/mailsmith/internal/shared"
)

const retentionSweepInterval = 1 * time.Hour

// StartRetentionWorker runs a background goroutine that periodically prunes
// plan audit records older than the retention window. It stops when ctx is
// canceled.
func StartRetentionWorker(ctx context.Context, repo Repository, retention time.Duration) {
	ticker := time.NewTicker(retentionSweepInterval)
	go func() {
		defer ticker.Stop()
		slog.Info("Retention worker started", "interval", retentionSweepInterval, "retention", retention)

		for {
			select {
			case <-ticker.C:
				pruneWithRetry(ctx, repo, retention)
			case <-ctx.Done():
				slog.Info("Retention worker shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

// pruneWithRetry prunes expired audit records with exponential backoff to
// handle SQLITE_BUSY errors from concurrent writers.
func pruneWithRetry(ctx context.Context, repo Repository, retention time.Duration) {
	maxRetries := 3
	baseDelay := 100 * time.Millisecond

	for i := 0; i < maxRetries; i++ {
		deleted, err := repo.PruneGptResponses(ctx, retention)
		if err == nil {
			if deleted > 0 {
				slog.Info("Retention worker pruned audit records", "count", deleted)
			}
			return
		}

		if shared.IsSQLiteConflictError(err) && i < maxRetries-1 {
			delay := baseDelay * time.Duration(1<<i) // 100ms, 200ms, 400ms
			slog.Debug("Retention sweep hit a locked database, retrying",
				"attempt", i+1,
				"delay", delay)
			time.Sleep(delay)
			continue
		}

		if ctx.Err() != nil {
			slog.Debug("Retention sweep canceled", "error", err)
			return
		}

		slog.Error("Retention worker failed to prune audit records", "error", err)
		return
	}
}
