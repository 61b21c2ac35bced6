package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"donation-tracker/internal/donation"
)

// maxListed caps how many donations a single message enumerates.
const maxListed = 10

// Notification describes donations first seen in a refresh.
type Notification struct {
	NewDonations []donation.Record
	Total        float64
	Goal         float64
	GoalReached  bool
	Symbol       string
	ExplorerTx   string
}

// Notifier delivers notifications.
type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}

// TelegramNotifier pushes messages through the Telegram Bot API.
type TelegramNotifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
	logger   zerolog.Logger
}

// NewTelegramNotifier constructs a Telegram notifier.
func NewTelegramNotifier(botToken, chatID, baseURL string, timeout time.Duration, logger zerolog.Logger) *TelegramNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}

	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With().Str("component", "alert_telegram").Logger(),
	}
}

// Notify calls the sendMessage API.
func (n *TelegramNotifier) Notify(ctx context.Context, note Notification) error {
	payload := map[string]string{
		"chat_id": n.chatID,
		"text":    renderMessage(note),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("telegram unexpected status: %d", resp.StatusCode)
	}

	var result struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil {
		if !result.OK {
			return fmt.Errorf("telegram returned ok=false")
		}
	}

	n.logger.Info().
		Int("new_donations", len(note.NewDonations)).
		Bool("goal_reached", note.GoalReached).
		Msg("alert sent (telegram)")
	return nil
}

func renderMessage(note Notification) string {
	symbol := note.Symbol
	if symbol == "" {
		symbol = "BNB"
	}

	builder := strings.Builder{}
	if note.GoalReached {
		builder.WriteString("[Donation Goal Reached]\n")
	} else {
		builder.WriteString("[New Donation]\n")
	}

	for i, d := range note.NewDonations {
		if i == maxListed {
			builder.WriteString(fmt.Sprintf("... and %d more\n", len(note.NewDonations)-maxListed))
			break
		}
		builder.WriteString(fmt.Sprintf("%s %s from %s at %s UTC\n",
			donation.FormatAmount(d.Amount, 4),
			symbol,
			shortHash(d.Sender),
			time.UnixMilli(d.TimestampMillis).UTC().Format(time.RFC3339),
		))
		if note.ExplorerTx != "" {
			builder.WriteString(strings.TrimRight(note.ExplorerTx, "/") + "/" + d.Hash + "\n")
		}
	}

	builder.WriteString(fmt.Sprintf("Total: %s %s\n", donation.FormatAmount(note.Total, 4), symbol))
	if pct, ok := donation.Progress(note.Total, note.Goal); ok {
		builder.WriteString(fmt.Sprintf("Goal: %s %s (%.1f%%)\n", donation.FormatAmount(note.Goal, 4), symbol, pct))
	}
	return builder.String()
}

func shortHash(h string) string {
	if len(h) <= 10 {
		return h
	}
	return h[:6] + "…" + h[len(h)-4:]
}

var _ Notifier = (*TelegramNotifier)(nil)
