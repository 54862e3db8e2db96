package monitor

import (
	"context"
	"log/slog"
	"time"

	"dockwatch/internal/models"
)

// Recorder appends alert history entries.
type Recorder interface {
	AppendAlert(ctx context.Context, ev models.AlertEvent) (int64, error)
}

// Notifier fans a notification out to the configured channels.
type Notifier interface {
	Dispatch(ctx context.Context, title, message string)
}

// Alerter is the single record-then-notify path shared by the threshold
// monitor and the lifecycle event translator. A notification failure never
// rolls back the recorded entry.
type Alerter struct {
	repo   Recorder
	notify Notifier
	log    *slog.Logger
	now    func() time.Time
}

func NewAlerter(repo Recorder, notify Notifier, logger *slog.Logger) *Alerter {
	return &Alerter{repo: repo, notify: notify, log: logger, now: time.Now}
}

// Fire records one alert and dispatches it. Recording failures are logged;
// the notification is still attempted so operators hear about the condition
// even when the store is unhappy.
func (a *Alerter) Fire(ctx context.Context, level, container, message string) {
	ev := models.AlertEvent{
		Timestamp: a.now().UTC(),
		Level:     level,
		Container: container,
		Message:   message,
	}
	if _, err := a.repo.AppendAlert(ctx, ev); err != nil {
		a.log.Error("record alert", "level", level, "container", container, "err", err)
	}
	a.notify.Dispatch(ctx, level, container+": "+message)
}
