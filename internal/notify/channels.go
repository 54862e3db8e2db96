package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// Channel is one notification destination. Send delivers a single
// title+message bundle; the payload shape is channel-local.
type Channel interface {
	Name() string
	Send(ctx context.Context, title, message string) error
}

type slackChannel struct {
	webhook string
	http    *resty.Client
}

func (s slackChannel) Name() string { return "slack" }

func (s slackChannel) Send(ctx context.Context, title, message string) error {
	return post(ctx, s.http, s.webhook, map[string]string{
		"text": fmt.Sprintf("*%s*\n%s", title, message),
	})
}

type discordChannel struct {
	webhook string
	http    *resty.Client
}

func (d discordChannel) Name() string { return "discord" }

func (d discordChannel) Send(ctx context.Context, title, message string) error {
	return post(ctx, d.http, d.webhook, map[string]string{
		"content": fmt.Sprintf("**%s**\n%s", title, message),
	})
}

type telegramChannel struct {
	apiBase string
	token   string
	chatID  string
	http    *resty.Client
}

func (t telegramChannel) Name() string { return "telegram" }

func (t telegramChannel) Send(ctx context.Context, title, message string) error {
	u := fmt.Sprintf("%s/bot%s/sendMessage", t.apiBase, t.token)
	return post(ctx, t.http, u, map[string]any{
		"chat_id":                  t.chatID,
		"text":                     fmt.Sprintf("<b>%s</b>\n%s", title, message),
		"parse_mode":               "HTML",
		"disable_web_page_preview": true,
	})
}

type genericChannel struct {
	webhook string
	http    *resty.Client
}

func (g genericChannel) Name() string { return "webhook" }

func (g genericChannel) Send(ctx context.Context, title, message string) error {
	return post(ctx, g.http, g.webhook, map[string]string{
		"title":     title,
		"message":   message,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func post(ctx context.Context, client *resty.Client, url string, body any) error {
	res, err := client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(url)
	if err != nil {
		return err
	}
	if res.IsError() {
		return fmt.Errorf("status %d: %s", res.StatusCode(), res.String())
	}
	return nil
}
