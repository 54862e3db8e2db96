package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dockwatch/internal/models"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	sqldb, err := Open(t.TempDir() + "/test.db")
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqldb.Close() })
	require.NoError(t, Migrate(sqldb))
	return NewRepository(sqldb)
}

func TestMigrateSeedsSingletonConfig(t *testing.T) {
	repo := newTestRepo(t)
	cfg, err := repo.AlertConfig(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 80.0, cfg.CPULimit)
	assert.Equal(t, 90.0, cfg.MemLimit)
	assert.False(t, cfg.SlackEnabled)
	assert.False(t, cfg.TelegramEnabled)

	// Migrating again must not create a second row.
	require.NoError(t, Migrate(repo.DB()))
	var count int
	require.NoError(t, repo.DB().QueryRow(`SELECT COUNT(*) FROM alerts_config`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestUpdateAlertConfigRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	want := models.AlertConfig{
		CPULimit:         75,
		MemLimit:         85,
		SlackWebhook:     "https://hooks.slack.example/T0/B0/x",
		SlackEnabled:     true,
		DiscordWebhook:   "https://discord.example/api/webhooks/1/y",
		DiscordEnabled:   true,
		TelegramBotToken: "123:abc",
		TelegramChatID:   "-100",
		TelegramEnabled:  true,
		GenericWebhook:   "https://example.org/hook",
		GenericEnabled:   false,
	}
	require.NoError(t, repo.UpdateAlertConfig(ctx, want))

	got, err := repo.AlertConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestAppendAndRecentAlertsOrdering(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		_, err := repo.AppendAlert(ctx, models.AlertEvent{
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Level:     models.LevelHighCPU,
			Container: "web",
			Message:   fmt.Sprintf("breach %d", i),
		})
		require.NoError(t, err)
	}

	alerts, err := repo.RecentAlerts(ctx, 100)
	require.NoError(t, err)
	require.Len(t, alerts, 3)
	assert.Equal(t, "breach 2", alerts[0].Message)
	assert.Equal(t, "breach 0", alerts[2].Message)
	assert.True(t, alerts[0].Timestamp.After(alerts[1].Timestamp))
}

func TestRecentAlertsBounded(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)

	for i := 0; i < MaxHistory+20; i++ {
		_, err := repo.AppendAlert(ctx, models.AlertEvent{
			Timestamp: base.Add(time.Duration(i) * time.Second),
			Level:     models.LevelStateChange,
			Container: "db",
			Message:   "Container die",
		})
		require.NoError(t, err)
	}

	alerts, err := repo.RecentAlerts(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, alerts, MaxHistory)

	alerts, err = repo.RecentAlerts(ctx, 10*MaxHistory)
	require.NoError(t, err)
	assert.Len(t, alerts, MaxHistory)
}
