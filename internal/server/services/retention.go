package services

import (
	"context"
	"time"

	"github.com/dmitrijs2005/webmail/internal/logging"
	"github.com/dmitrijs2005/webmail/internal/server/metrics"
)

// RetentionSweeper purges expired Trash and Junk messages on a timer. With a
// UserService it also drops expired refresh tokens.
type RetentionSweeper struct {
	messages *MessageService
	users    *UserService
	interval time.Duration
	logger   logging.Logger
	now      func() time.Time
}

func NewRetentionSweeper(messages *MessageService, users *UserService, interval time.Duration, logger logging.Logger) *RetentionSweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	return &RetentionSweeper{messages: messages, users: users, interval: interval, logger: logger, now: time.Now}
}

// Run sweeps once immediately and then every interval until ctx is done.
func (r *RetentionSweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		r.Sweep(ctx)

		select {
		case <-ctx.Done():
			r.logger.Info(ctx, "retention sweeper stopped")
			return
		case <-ticker.C:
		}
	}
}

// Sweep runs one purge and returns the number of deleted messages.
func (r *RetentionSweeper) Sweep(ctx context.Context) int {
	now := r.now()
	if r.users != nil {
		if n, err := r.users.PurgeExpiredTokens(ctx, now); err != nil {
			r.logger.Warn(ctx, "refresh token cleanup failed", "error", err)
		} else if n > 0 {
			r.logger.Debug(ctx, "expired refresh tokens removed", "count", n)
		}
	}

	n, err := r.messages.PurgeExpired(ctx, now)
	if err != nil {
		r.logger.Error(ctx, "retention sweep failed", "error", err)
		return 0
	}
	if n > 0 {
		metrics.RetentionPurged.Add(float64(n))
		r.logger.Info(ctx, "retention sweep purged messages", "count", n)
	}
	return n
}
