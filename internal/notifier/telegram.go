package notifier

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

const telegramAPIBase = "https://api.telegram.org"

// TelegramNotifier sends messages via the Telegram Bot API.
type TelegramNotifier struct {
	BotToken string
	ChatID   string
	APIBase  string
	Client   *resty.Client
}

// NewTelegramNotifier creates a notifier with optional proxy support.
func NewTelegramNotifier(botToken, chatID, proxyURL string, timeout time.Duration) *TelegramNotifier {
	client := resty.New().SetTimeout(timeout)
	if proxyURL != "" {
		client.SetProxy(proxyURL)
	}
	return &TelegramNotifier{
		BotToken: botToken,
		ChatID:   chatID,
		APIBase:  telegramAPIBase,
		Client:   client,
	}
}

func (t *TelegramNotifier) Name() string { return "telegram" }

// Notify posts the subject and body as one plain-text message.
func (t *TelegramNotifier) Notify(ctx context.Context, msg Message) Result {
	if t.BotToken == "" || t.ChatID == "" {
		return Skipped(t.Name(), "bot token or chat id not configured")
	}
	if err := t.Send(ctx, msg.Subject+"\n\n"+msg.Body); err != nil {
		return Failed(t.Name(), err)
	}
	return Sent(t.Name())
}

// Send sends a message to the configured chat.
func (t *TelegramNotifier) Send(ctx context.Context, text string) error {
	var result struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
	}
	resp, err := t.Client.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"chat_id": t.ChatID,
			"text":    text,
		}).
		SetResult(&result).
		SetError(&result).
		Post(fmt.Sprintf("%s/bot%s/sendMessage", t.APIBase, t.BotToken))
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	if resp.IsError() || !result.OK {
		return fmt.Errorf("telegram API error: status %d, description: %s", resp.StatusCode(), result.Description)
	}
	return nil
}
