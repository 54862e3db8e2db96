package models

import "time"

// Alert levels as they appear in the history API and notification titles.
const (
	LevelHighCPU     = "High CPU"
	LevelHighMemory  = "High Memory"
	LevelStateChange = "State Change"
	LevelInfo        = "Info"
)

// SubjectSystem is the container column value for alerts that are not tied
// to a single container.
const SubjectSystem = "System"

// AlertConfig is the singleton alerting configuration row. Thresholds are
// percentages; each notification channel carries its own credentials and
// enablement flag.
type AlertConfig struct {
	CPULimit float64 `json:"cpu_limit" validate:"gte=1,lte=100"`
	MemLimit float64 `json:"mem_limit" validate:"gte=1,lte=100"`

	SlackWebhook string `json:"slack_webhook" validate:"omitempty,url"`
	SlackEnabled bool   `json:"slack_enabled"`

	DiscordWebhook string `json:"discord_webhook" validate:"omitempty,url"`
	DiscordEnabled bool   `json:"discord_enabled"`

	TelegramBotToken string `json:"telegram_bot_token"`
	TelegramChatID   string `json:"telegram_chat_id"`
	TelegramEnabled  bool   `json:"telegram_enabled"`

	GenericWebhook string `json:"generic_webhook" validate:"omitempty,url"`
	GenericEnabled bool   `json:"generic_enabled"`
}

// AlertEvent is one append-only alert history entry.
type AlertEvent struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Container string    `json:"container"`
	Message   string    `json:"message"`
}

// NormalizedSample holds the derived utilization figures for one container
// at one instant. Byte fields are cumulative counters, not rates.
type NormalizedSample struct {
	TS            time.Time
	ContainerID   string
	CPUPercent    float64
	MemPercent    float64
	MemUsedBytes  int64
	MemLimitBytes int64
	NetRXBytes    int64
	NetTXBytes    int64
	BlkReadBytes  int64
	BlkWriteBytes int64
}
