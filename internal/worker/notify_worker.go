package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/lisensia/lisensia_api/internal/service"
)

// NotifyWorker retries pending order notifications periodically.
type NotifyWorker struct {
	notifications *service.NotificationService
	interval      time.Duration
}

// NewNotifyWorker constructs a NotifyWorker.
func NewNotifyWorker(notifications *service.NotificationService, interval time.Duration) *NotifyWorker {
	return &NotifyWorker{notifications: notifications, interval: interval}
}

// Start begins the periodic retry loop until context is canceled.
func (w *NotifyWorker) Start(ctx context.Context) {
	log.Info().Dur("interval", w.interval).Msg("Starting notify worker")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.notifications.DispatchPending(ctx)
		case <-ctx.Done():
			log.Info().Msg("Notify worker stopped")
			return
		}
	}
}
