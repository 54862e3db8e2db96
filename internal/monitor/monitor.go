// Package monitor evaluates container utilization against the configured
// thresholds on a fixed period and fires deduplicated alerts.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"dockwatch/internal/docker"
	"dockwatch/internal/metrics"
	"dockwatch/internal/models"
)

const (
	// PollInterval is the evaluation period.
	PollInterval = 30 * time.Second
	// CooldownWindow is the minimum gap between two alerts for the same
	// (container, metric) pair.
	CooldownWindow = 300 * time.Second
)

// Runtime is the slice of the workload runtime the monitor consumes.
type Runtime interface {
	ListContainers(ctx context.Context, all bool) ([]docker.ContainerSummary, error)
	Stats(ctx context.Context, id string) (docker.Stats, error)
}

// ConfigSource supplies the current thresholds, re-read every tick.
type ConfigSource interface {
	AlertConfig(ctx context.Context) (models.AlertConfig, error)
}

type Monitor struct {
	cfg       ConfigSource
	runtime   Runtime
	alerter   *Alerter
	cooldowns *Cooldowns
	log       *slog.Logger

	interval time.Duration
	now      func() time.Time
}

func New(cfg ConfigSource, runtime Runtime, alerter *Alerter, cooldowns *Cooldowns, logger *slog.Logger) *Monitor {
	return &Monitor{
		cfg:       cfg,
		runtime:   runtime,
		alerter:   alerter,
		cooldowns: cooldowns,
		log:       logger,
		interval:  PollInterval,
		now:       time.Now,
	}
}

// Run ticks until ctx is done. The loop absorbs every tick failure; it never
// terminates on its own.
func (m *Monitor) Run(ctx context.Context) {
	t := time.NewTicker(m.interval)
	defer t.Stop()
	m.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			m.Tick(ctx)
		}
	}
}

// Tick runs one evaluation pass. A per-container failure skips only that
// container; an unreadable config or container list skips the whole tick.
func (m *Monitor) Tick(ctx context.Context) {
	cfg, err := m.cfg.AlertConfig(ctx)
	if err != nil {
		m.log.Warn("load thresholds, skipping tick", "err", err)
		return
	}
	containers, err := m.runtime.ListContainers(ctx, false)
	if err != nil {
		m.log.Warn("list containers, skipping tick", "err", err)
		return
	}
	for _, c := range containers {
		raw, err := m.runtime.Stats(ctx, c.ID)
		if err != nil {
			m.log.Warn("container stats", "container", c.Name(), "err", err)
			continue
		}
		m.evaluate(ctx, c, metrics.Normalize(c.ID, raw), cfg)
	}
}

func (m *Monitor) evaluate(ctx context.Context, c docker.ContainerSummary, sample models.NormalizedSample, cfg models.AlertConfig) {
	now := m.now()
	if sample.CPUPercent > cfg.CPULimit {
		if m.cooldowns.ShouldFire(c.ID, "cpu", now) {
			msg := fmt.Sprintf("CPU usage at %.2f%% (limit %.0f%%)", sample.CPUPercent, cfg.CPULimit)
			m.alerter.Fire(ctx, models.LevelHighCPU, c.Name(), msg)
		}
	}
	if sample.MemPercent > cfg.MemLimit {
		if m.cooldowns.ShouldFire(c.ID, "memory", now) {
			msg := fmt.Sprintf("Memory usage at %.2f%% (limit %.0f%%)", sample.MemPercent, cfg.MemLimit)
			m.alerter.Fire(ctx, models.LevelHighMemory, c.Name(), msg)
		}
	}
}
