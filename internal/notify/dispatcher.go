// Package notify fans alert notifications out to the configured channels.
// Delivery is best effort: each enabled channel gets one attempt with a
// short timeout, failures are logged and never propagate to the caller.
package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/sync/errgroup"

	"dockwatch/internal/config"
	"dockwatch/internal/models"
)

// AttemptTimeout bounds one delivery attempt to one channel.
const AttemptTimeout = 3 * time.Second

const telegramAPIBase = "https://api.telegram.org"

// ConfigSource supplies the current stored channel configuration. The
// dispatcher re-reads it on every dispatch so API updates apply without a
// restart.
type ConfigSource interface {
	AlertConfig(ctx context.Context) (models.AlertConfig, error)
}

type Dispatcher struct {
	source    ConfigSource
	overrides config.ChannelOverrides
	http      *resty.Client
	log       *slog.Logger

	// telegramBase is swapped out in tests.
	telegramBase string
}

func NewDispatcher(source ConfigSource, overrides config.ChannelOverrides, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		source:       source,
		overrides:    overrides,
		http:         resty.New().SetTimeout(AttemptTimeout),
		log:          logger,
		telegramBase: telegramAPIBase,
	}
}

// Dispatch delivers title+message to every enabled channel independently.
// One channel failing never blocks or fails the others, and nothing is
// retried or queued.
func (d *Dispatcher) Dispatch(ctx context.Context, title, message string) {
	cfg, err := d.source.AlertConfig(ctx)
	if err != nil {
		// Environment-locked destinations still work without the store,
		// but enablement lives in the stored config, so nothing can fire.
		d.log.Error("load channel config", "err", err)
		return
	}

	channels := d.resolve(cfg)
	if len(channels) == 0 {
		return
	}

	g, gctx := errgroup.WithContext(context.WithoutCancel(ctx))
	for _, ch := range channels {
		ch := ch
		g.Go(func() error {
			attemptCtx, cancel := context.WithTimeout(gctx, AttemptTimeout)
			defer cancel()
			if err := ch.Send(attemptCtx, title, message); err != nil {
				d.log.Warn("notification failed", "channel", ch.Name(), "err", err)
				return nil
			}
			d.log.Info("notification sent", "channel", ch.Name(), "title", title)
			return nil
		})
	}
	_ = g.Wait()
}

// resolve builds the active channel set. Destination precedence is
// environment override, then stored value; a channel with no destination is
// skipped even when enabled.
func (d *Dispatcher) resolve(cfg models.AlertConfig) []Channel {
	var out []Channel

	if cfg.SlackEnabled {
		if url := firstNonEmpty(d.overrides.SlackWebhook, cfg.SlackWebhook); url != "" {
			out = append(out, slackChannel{webhook: url, http: d.http})
		}
	}
	if cfg.DiscordEnabled {
		if url := firstNonEmpty(d.overrides.DiscordWebhook, cfg.DiscordWebhook); url != "" {
			out = append(out, discordChannel{webhook: url, http: d.http})
		}
	}
	if cfg.TelegramEnabled {
		token := firstNonEmpty(d.overrides.TelegramBotToken, cfg.TelegramBotToken)
		chatID := firstNonEmpty(d.overrides.TelegramChatID, cfg.TelegramChatID)
		if token != "" && chatID != "" {
			out = append(out, telegramChannel{apiBase: d.telegramBase, token: token, chatID: chatID, http: d.http})
		}
	}
	if cfg.GenericEnabled {
		if url := firstNonEmpty(d.overrides.GenericWebhook, cfg.GenericWebhook); url != "" {
			out = append(out, genericChannel{webhook: url, http: d.http})
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
