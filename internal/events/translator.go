// Package events turns container lifecycle events into state-change alerts.
package events

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"time"

	"dockwatch/internal/docker"
	"dockwatch/internal/models"
	"dockwatch/internal/monitor"
)

// resubscribeDelay is how long to wait before reopening a broken feed.
const resubscribeDelay = 5 * time.Second

// Feed opens the runtime's lifecycle event subscription.
type Feed interface {
	Events(ctx context.Context) (io.ReadCloser, error)
}

// watched are the container actions that produce an alert.
var watched = map[string]bool{
	"die":   true,
	"kill":  true,
	"stop":  true,
	"start": true,
}

type Translator struct {
	feed    Feed
	alerter *monitor.Alerter
	log     *slog.Logger

	retryDelay time.Duration
}

func New(feed Feed, alerter *monitor.Alerter, logger *slog.Logger) *Translator {
	return &Translator{feed: feed, alerter: alerter, log: logger, retryDelay: resubscribeDelay}
}

// Run holds one blocking subscription to the event feed and resubscribes
// forever on any failure. The feed is never assumed durable.
func (t *Translator) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		rc, err := t.feed.Events(ctx)
		if err != nil {
			t.log.Warn("open event feed", "err", err)
			if !sleepCtx(ctx, t.retryDelay) {
				return
			}
			continue
		}
		if err := t.consume(ctx, rc); err != nil && ctx.Err() == nil {
			t.log.Warn("event feed broke", "err", err)
		}
		_ = rc.Close()
		if !sleepCtx(ctx, t.retryDelay) {
			return
		}
	}
}

func (t *Translator) consume(ctx context.Context, rc io.ReadCloser) error {
	dec := json.NewDecoder(rc)
	for {
		var ev docker.Event
		if err := dec.Decode(&ev); err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		t.Translate(ctx, ev)
	}
}

// Translate records a state-change alert for a watched container action.
// Anything else is ignored.
func (t *Translator) Translate(ctx context.Context, ev docker.Event) {
	if ev.Type != "container" {
		return
	}
	action := ev.WhatHappened()
	if !watched[action] {
		return
	}
	t.alerter.Fire(ctx, models.LevelStateChange, ev.ContainerName(), "Container "+action)
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
