package monitor

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dockwatch/internal/docker"
	"dockwatch/internal/models"
)

type fakeRuntime struct {
	containers []docker.ContainerSummary
	stats      map[string]docker.Stats
	statsErr   map[string]error
	listErr    error
}

func (f *fakeRuntime) ListContainers(ctx context.Context, all bool) ([]docker.ContainerSummary, error) {
	return f.containers, f.listErr
}

func (f *fakeRuntime) Stats(ctx context.Context, id string) (docker.Stats, error) {
	if err := f.statsErr[id]; err != nil {
		return docker.Stats{}, err
	}
	return f.stats[id], nil
}

type fakeConfig struct {
	cfg models.AlertConfig
	err error
}

func (f *fakeConfig) AlertConfig(ctx context.Context) (models.AlertConfig, error) {
	return f.cfg, f.err
}

type fakeRecorder struct {
	events []models.AlertEvent
}

func (f *fakeRecorder) AppendAlert(ctx context.Context, ev models.AlertEvent) (int64, error) {
	f.events = append(f.events, ev)
	return int64(len(f.events)), nil
}

type fakeNotifier struct {
	calls []string
}

func (f *fakeNotifier) Dispatch(ctx context.Context, title, message string) {
	f.calls = append(f.calls, title+"|"+message)
}

// statsWithCPU builds a payload normalizing to the given cpu percent on one
// cpu.
func statsWithCPU(pct float64) docker.Stats {
	var s docker.Stats
	s.PreCPUStats.SystemCPUUsage = 0
	s.CPUStats.SystemCPUUsage = 10000
	s.CPUStats.CPUUsage.TotalUsage = uint64(pct * 100)
	s.CPUStats.OnlineCPUs = 1
	return s
}

func statsWithMem(pct float64) docker.Stats {
	var s docker.Stats
	s.MemoryStats.Limit = 10000
	s.MemoryStats.Usage = uint64(pct * 100)
	return s
}

func newTestMonitor(cfg *fakeConfig, rt *fakeRuntime) (*Monitor, *fakeRecorder, *fakeNotifier) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rec := &fakeRecorder{}
	notif := &fakeNotifier{}
	alerter := NewAlerter(rec, notif, logger)
	m := New(cfg, rt, alerter, NewCooldowns(CooldownWindow), logger)
	return m, rec, notif
}

func container(id, name string) docker.ContainerSummary {
	return docker.ContainerSummary{ID: id, Names: []string{"/" + name}, State: "running"}
}

func TestTickFiresOnCPUBreach(t *testing.T) {
	cfg := &fakeConfig{cfg: models.AlertConfig{CPULimit: 80, MemLimit: 90}}
	rt := &fakeRuntime{
		containers: []docker.ContainerSummary{container("c1", "web")},
		stats:      map[string]docker.Stats{"c1": statsWithCPU(85.3)},
	}
	m, rec, notif := newTestMonitor(cfg, rt)

	m.Tick(context.Background())

	require.Len(t, rec.events, 1)
	assert.Equal(t, models.LevelHighCPU, rec.events[0].Level)
	assert.Equal(t, "web", rec.events[0].Container)
	assert.Contains(t, rec.events[0].Message, "85.30%")
	require.Len(t, notif.calls, 1)
	assert.Contains(t, notif.calls[0], models.LevelHighCPU)
}

func TestTickCooldownSuppressesRepeats(t *testing.T) {
	cfg := &fakeConfig{cfg: models.AlertConfig{CPULimit: 80, MemLimit: 90}}
	rt := &fakeRuntime{
		containers: []docker.ContainerSummary{container("c1", "web")},
		stats:      map[string]docker.Stats{"c1": statsWithCPU(85.3)},
	}
	m, rec, notif := newTestMonitor(cfg, rt)

	base := time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)
	now := base
	m.now = func() time.Time { return now }

	// Breaching at t=0, t=30, t=60: exactly one alert and one dispatch.
	for _, offset := range []time.Duration{0, 30 * time.Second, 60 * time.Second} {
		now = base.Add(offset)
		m.Tick(context.Background())
	}
	assert.Len(t, rec.events, 1)
	assert.Len(t, notif.calls, 1)

	// After the 300s window has elapsed the same breach fires again.
	now = base.Add(330 * time.Second)
	m.Tick(context.Background())
	assert.Len(t, rec.events, 2)
	assert.Len(t, notif.calls, 2)
}

func TestTickCPUAndMemoryEvaluatedIndependently(t *testing.T) {
	cfg := &fakeConfig{cfg: models.AlertConfig{CPULimit: 80, MemLimit: 90}}
	breach := statsWithCPU(95)
	breach.MemoryStats.Limit = 10000
	breach.MemoryStats.Usage = 9500
	rt := &fakeRuntime{
		containers: []docker.ContainerSummary{container("c1", "web")},
		stats:      map[string]docker.Stats{"c1": breach},
	}
	m, rec, _ := newTestMonitor(cfg, rt)

	m.Tick(context.Background())

	require.Len(t, rec.events, 2)
	levels := []string{rec.events[0].Level, rec.events[1].Level}
	assert.Contains(t, levels, models.LevelHighCPU)
	assert.Contains(t, levels, models.LevelHighMemory)
}

func TestTickNoBreachNoAlert(t *testing.T) {
	cfg := &fakeConfig{cfg: models.AlertConfig{CPULimit: 80, MemLimit: 90}}
	rt := &fakeRuntime{
		containers: []docker.ContainerSummary{container("c1", "web")},
		stats:      map[string]docker.Stats{"c1": statsWithMem(50)},
	}
	m, rec, notif := newTestMonitor(cfg, rt)

	m.Tick(context.Background())
	assert.Empty(t, rec.events)
	assert.Empty(t, notif.calls)
}

func TestTickSkipsFailingContainer(t *testing.T) {
	cfg := &fakeConfig{cfg: models.AlertConfig{CPULimit: 80, MemLimit: 90}}
	rt := &fakeRuntime{
		containers: []docker.ContainerSummary{container("bad", "bad"), container("c2", "api")},
		stats:      map[string]docker.Stats{"c2": statsWithCPU(99)},
		statsErr:   map[string]error{"bad": assert.AnError},
	}
	m, rec, _ := newTestMonitor(cfg, rt)

	m.Tick(context.Background())

	require.Len(t, rec.events, 1)
	assert.Equal(t, "api", rec.events[0].Container)
}

func TestTickSkippedWhenConfigUnavailable(t *testing.T) {
	cfg := &fakeConfig{err: assert.AnError}
	rt := &fakeRuntime{
		containers: []docker.ContainerSummary{container("c1", "web")},
		stats:      map[string]docker.Stats{"c1": statsWithCPU(99)},
	}
	m, rec, notif := newTestMonitor(cfg, rt)

	m.Tick(context.Background())
	assert.Empty(t, rec.events)
	assert.Empty(t, notif.calls)
}

func TestCooldownsPerContainerPerMetric(t *testing.T) {
	c := NewCooldowns(300 * time.Second)
	now := time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)

	assert.True(t, c.ShouldFire("a", "cpu", now))
	assert.False(t, c.ShouldFire("a", "cpu", now.Add(30*time.Second)))
	// Other metric and other container are independent keys.
	assert.True(t, c.ShouldFire("a", "memory", now))
	assert.True(t, c.ShouldFire("b", "cpu", now))
	// Window elapsed: overwrite and fire.
	assert.True(t, c.ShouldFire("a", "cpu", now.Add(301*time.Second)))
}
