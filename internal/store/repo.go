package store

import (
	"context"
	"database/sql"
	"time"

	"dockwatch/internal/models"
)

// MaxHistory bounds alert history listings.
const MaxHistory = 100

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) DB() *sql.DB { return r.db }

// AlertConfig reads the singleton configuration row.
func (r *Repository) AlertConfig(ctx context.Context) (models.AlertConfig, error) {
	var c models.AlertConfig
	err := r.db.QueryRowContext(ctx, `SELECT cpu_limit, mem_limit,
		slack_webhook, slack_enabled,
		discord_webhook, discord_enabled,
		telegram_bot_token, telegram_chat_id, telegram_enabled,
		generic_webhook, generic_enabled
		FROM alerts_config WHERE id = 1`).
		Scan(&c.CPULimit, &c.MemLimit,
			&c.SlackWebhook, &c.SlackEnabled,
			&c.DiscordWebhook, &c.DiscordEnabled,
			&c.TelegramBotToken, &c.TelegramChatID, &c.TelegramEnabled,
			&c.GenericWebhook, &c.GenericEnabled)
	return c, err
}

// UpdateAlertConfig overwrites the singleton configuration row.
func (r *Repository) UpdateAlertConfig(ctx context.Context, c models.AlertConfig) error {
	_, err := r.db.ExecContext(ctx, `UPDATE alerts_config SET
		cpu_limit = ?, mem_limit = ?,
		slack_webhook = ?, slack_enabled = ?,
		discord_webhook = ?, discord_enabled = ?,
		telegram_bot_token = ?, telegram_chat_id = ?, telegram_enabled = ?,
		generic_webhook = ?, generic_enabled = ?
		WHERE id = 1`,
		c.CPULimit, c.MemLimit,
		c.SlackWebhook, c.SlackEnabled,
		c.DiscordWebhook, c.DiscordEnabled,
		c.TelegramBotToken, c.TelegramChatID, c.TelegramEnabled,
		c.GenericWebhook, c.GenericEnabled)
	return err
}

// AppendAlert records one history entry. Entries are never updated or
// deleted here; trimming is an external concern.
func (r *Repository) AppendAlert(ctx context.Context, ev models.AlertEvent) (int64, error) {
	ts := ev.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	res, err := r.db.ExecContext(ctx, `INSERT INTO alerts (ts, level, container, message) VALUES (?,?,?,?)`,
		ts.UTC(), ev.Level, ev.Container, ev.Message)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// RecentAlerts returns history entries most recent first, bounded by
// MaxHistory.
func (r *Repository) RecentAlerts(ctx context.Context, limit int) ([]models.AlertEvent, error) {
	if limit <= 0 || limit > MaxHistory {
		limit = MaxHistory
	}
	rows, err := r.db.QueryContext(ctx, `SELECT id, ts, level, container, message FROM alerts ORDER BY ts DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]models.AlertEvent, 0, limit)
	for rows.Next() {
		var ev models.AlertEvent
		if err := rows.Scan(&ev.ID, &ev.Timestamp, &ev.Level, &ev.Container, &ev.Message); err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}
