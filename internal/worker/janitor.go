package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// SessionStore purges expired session rows.
type SessionStore interface {
	DeleteExpiredSessions(ctx context.Context) (int64, error)
}

// Janitor periodically deletes expired sessions. Expiry is already enforced
// at resolve time; this keeps the table from growing unbounded.
type Janitor struct {
	store    SessionStore
	interval time.Duration
	logger   *zap.Logger
}

// NewJanitor creates a session janitor.
func NewJanitor(store SessionStore, interval time.Duration, logger *zap.Logger) *Janitor {
	if interval <= 0 {
		interval = time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Janitor{store: store, interval: interval, logger: logger}
}

// Run purges on a ticker until ctx is done.
func (j *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("session janitor stopping")
			return
		case <-ticker.C:
			n, err := j.store.DeleteExpiredSessions(ctx)
			if err != nil {
				j.logger.Warn("session purge failed", zap.Error(err))
				continue
			}
			if n > 0 {
				j.logger.Info("expired sessions purged", zap.Int64("count", n))
			}
		}
	}
}
