package app

import (
	"context"
	"log/slog"
	"time"
)

// Reaper periodically expires lapsed payment sessions so their orders do not
// stay pending forever when the shopper abandons the widget.
type Reaper struct {
	service  *Service
	interval time.Duration
	logger   *slog.Logger
}

func NewReaper(service *Service, interval time.Duration, logger *slog.Logger) *Reaper {
	return &Reaper{
		service:  service,
		interval: interval,
		logger:   logger,
	}
}

// Run blocks until ctx is cancelled, sweeping on every tick.
func (r *Reaper) Run(ctx context.Context) {
	r.logger.InfoContext(ctx, "payment session reaper started", "interval", r.interval)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.InfoContext(ctx, "payment session reaper stopped")
			return
		case <-ticker.C:
			expired, err := r.service.ExpireSessions(ctx)
			if err != nil {
				r.logger.ErrorContext(ctx, "session sweep failed", "error", err)
				continue
			}
			if expired > 0 {
				r.logger.InfoContext(ctx, "expired payment sessions", "count", expired)
			}
		}
	}
}
