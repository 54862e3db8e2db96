// Package config loads daemon settings from the environment.
package config

import (
	"strings"

	"github.com/spf13/viper"
)

// ChannelOverrides are process-level notification destinations sourced from
// the environment. A non-empty override always wins over the stored
// configuration, so operators can lock a channel's destination regardless of
// what is saved through the API.
type ChannelOverrides struct {
	SlackWebhook     string
	DiscordWebhook   string
	TelegramBotToken string
	TelegramChatID   string
	GenericWebhook   string
}

type Config struct {
	Addr         string
	DataDir      string
	DBPath       string
	DockerSocket string

	Overrides ChannelOverrides
}

// Load reads configuration from DOCKWATCH_* environment variables with
// built-in defaults. Channel overrides use the conventional unprefixed names
// (SLACK_WEBHOOK_URL, TELEGRAM_BOT_TOKEN, ...).
func Load() Config {
	v := viper.New()
	v.SetEnvPrefix("DOCKWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("addr", ":5001")
	v.SetDefault("data_dir", "./config")
	v.SetDefault("docker_socket", "/var/run/docker.sock")

	_ = v.BindEnv("slack_webhook_url", "SLACK_WEBHOOK_URL")
	_ = v.BindEnv("discord_webhook_url", "DISCORD_WEBHOOK_URL")
	_ = v.BindEnv("telegram_bot_token", "TELEGRAM_BOT_TOKEN")
	_ = v.BindEnv("telegram_chat_id", "TELEGRAM_CHAT_ID")
	_ = v.BindEnv("generic_webhook_url", "GENERIC_WEBHOOK_URL")

	dataDir := v.GetString("data_dir")
	v.SetDefault("db_path", dataDir+"/dockwatch.db")

	return Config{
		Addr:         v.GetString("addr"),
		DataDir:      dataDir,
		DBPath:       v.GetString("db_path"),
		DockerSocket: v.GetString("docker_socket"),
		Overrides: ChannelOverrides{
			SlackWebhook:     v.GetString("slack_webhook_url"),
			DiscordWebhook:   v.GetString("discord_webhook_url"),
			TelegramBotToken: v.GetString("telegram_bot_token"),
			TelegramChatID:   v.GetString("telegram_chat_id"),
			GenericWebhook:   v.GetString("generic_webhook_url"),
		},
	}
}
