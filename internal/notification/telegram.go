package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"signal-systemv1/internal/model"
)

const telegramAPI = "https://api.telegram.org"

// TelegramNotifier posts alerts to a chat via the Bot API. When the alert
// carries a signal, the message includes the trade levels.
type TelegramNotifier struct {
	botToken string
	chatID   string
	apiBase  string
	client   *http.Client
}

// NewTelegramNotifier creates a notifier for the given bot token (from
// BotFather) and target chat, group, or channel ID.
func NewTelegramNotifier(botToken, chatID string) *TelegramNotifier {
	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		apiBase:  telegramAPI,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (t *TelegramNotifier) Send(ctx context.Context, alert Alert) error {
	payload, _ := json.Marshal(map[string]interface{}{
		"chat_id":    t.chatID,
		"text":       t.format(alert),
		"parse_mode": "MarkdownV2",
	})

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.apiBase, t.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("telegram: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram: unexpected status %d", resp.StatusCode)
	}
	slog.Debug("[telegram] alert sent", "title", alert.Title)
	return nil
}

// format builds the MarkdownV2 message body: level emoji, bold title, the
// alert message, and trade levels when a signal is attached.
func (t *TelegramNotifier) format(alert Alert) string {
	emoji := "📈"
	switch alert.Level {
	case AlertWarning:
		emoji = "⚠️"
	case AlertCritical:
		emoji = "🚨"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s *%s*\n\n%s", emoji, escapeMarkdown(alert.Title), escapeMarkdown(alert.Message))

	if sig := alert.Signal; sig != nil {
		arrow := "🟢 LONG"
		if sig.Direction == model.Short {
			arrow = "🔴 SHORT"
		}
		levels := fmt.Sprintf("\n\n%s %s\nentry %.4f\nstop %.4f\ntarget %.4f",
			arrow, sig.Symbol, sig.EntryPrice, sig.StopLoss, sig.TakeProfit)
		b.WriteString(escapeMarkdown(levels))
	}
	return b.String()
}

// escapeMarkdown escapes the characters MarkdownV2 treats as syntax.
func escapeMarkdown(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if strings.IndexByte("_*[]()~`>#+-=|{}.!", s[i]) >= 0 {
			b.WriteByte('\\')
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
