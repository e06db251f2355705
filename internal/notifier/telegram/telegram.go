package telegram

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/newthinker/pipboard/internal/core"
	"github.com/newthinker/pipboard/internal/notifier"
)

const defaultAPIURL = "https://api.telegram.org"

// Telegram implements the Notifier interface for Telegram Bot API
type Telegram struct {
	botToken string
	chatID   string
	apiURL   string
	client   *resty.Client
}

// New creates a new Telegram notifier
func New(botToken, chatID string) *Telegram {
	return &Telegram{
		botToken: botToken,
		chatID:   chatID,
		apiURL:   defaultAPIURL,
		client:   resty.New().SetTimeout(30 * time.Second),
	}
}

func (t *Telegram) Name() string {
	return "telegram"
}

func (t *Telegram) Init(cfg notifier.Config) error {
	t.botToken = notifier.StringParam(cfg.Params, "bot_token", t.botToken)
	t.chatID = notifier.StringParam(cfg.Params, "chat_id", t.chatID)
	t.apiURL = strings.TrimSuffix(notifier.StringParam(cfg.Params, "api_url", t.apiURL), "/")
	if t.apiURL == "" {
		t.apiURL = defaultAPIURL
	}
	if t.client == nil {
		t.client = resty.New().SetTimeout(30 * time.Second)
	}

	if t.botToken == "" {
		return fmt.Errorf("telegram: bot_token is required")
	}
	if t.chatID == "" {
		return fmt.Errorf("telegram: chat_id is required")
	}

	return nil
}

func (t *Telegram) Send(alert core.Alert) error {
	return t.sendMessage(t.formatAlert(alert))
}

func (t *Telegram) SendBatch(alerts []core.Alert) error {
	if len(alerts) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📊 *%s: %d alerts*\n\n", strings.ToUpper(alerts[0].Pair), len(alerts)))

	for i, alert := range alerts {
		sb.WriteString(t.formatAlert(alert))
		if i < len(alerts)-1 {
			sb.WriteString("\n---\n\n")
		}
	}

	return t.sendMessage(sb.String())
}

func (t *Telegram) formatAlert(alert core.Alert) string {
	var sb strings.Builder

	emoji := "⚠️"
	switch alert.Kind {
	case core.AlertWinStreak:
		emoji = "📈"
	case core.AlertLossStreak:
		emoji = "📉"
	}

	sb.WriteString(fmt.Sprintf("%s *%s* %s\n", emoji, strings.ToUpper(alert.Pair), alert.Message))
	if alert.Strategy != "" {
		sb.WriteString(fmt.Sprintf("🎯 Strategy: %s\n", alert.Strategy))
	}
	sb.WriteString(fmt.Sprintf("⏰ Time: %s UTC", alert.At.UTC().Format("2006-01-02 15:04:05")))

	return sb.String()
}

func (t *Telegram) sendMessage(text string) error {
	var result map[string]any
	resp, err := t.client.R().
		SetBody(map[string]any{
			"chat_id":    t.chatID,
			"text":       text,
			"parse_mode": "Markdown",
		}).
		SetError(&result).
		Post(fmt.Sprintf("%s/bot%s/sendMessage", t.apiURL, t.botToken))
	if err != nil {
		return fmt.Errorf("telegram: failed to send message: %w", err)
	}

	if resp.IsError() {
		return fmt.Errorf("telegram: API error (status %d): %v", resp.StatusCode(), result)
	}

	return nil
}
