package discord

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	json "github.com/goccy/go-json"
	"go.uber.org/zap"
)

const (
	colorAlert   = 0xE74C3C
	colorSuccess = 0x57F287

	defaultWebhookTimeout = 10 * time.Second
	maxAttempts           = 3
)

// Message is the JSON body of a webhook execution
type Message struct {
	Content string  `json:"content,omitempty"`
	Embeds  []Embed `json:"embeds,omitempty"`
}

// Embed is one rich block of a Message
type Embed struct {
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color,omitempty"`
	Fields      []EmbedField `json:"fields,omitempty"`
	Footer      *EmbedFooter `json:"footer,omitempty"`
	Timestamp   string       `json:"timestamp,omitempty"`
}

type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type EmbedFooter struct {
	Text string `json:"text"`
}

// RunStats is what a notification reports about one ingestion run
type RunStats struct {
	Player    string // Riot ID, e.g. "Player#NA1"
	Processed int
	Wins      int
	AvgKDA    float64
	Runtime   time.Duration
}

// NewRunCompleteMessage summarizes a finished ingestion run
func NewRunCompleteMessage(s RunStats) Message {
	return Message{
		Embeds: []Embed{
			{
				Title: "✅ Matches Ingested",
				Color: colorSuccess,
				Fields: []EmbedField{
					{Name: "Player", Value: s.Player, Inline: true},
					{Name: "Matches", Value: humanize.Comma(int64(s.Processed)), Inline: true},
					{Name: "Wins", Value: winLine(s.Wins, s.Processed), Inline: true},
					{Name: "Average KDA", Value: fmt.Sprintf("%.2f", s.AvgKDA), Inline: true},
					{Name: "Runtime", Value: formatDuration(s.Runtime), Inline: true},
				},
				Timestamp: time.Now().UTC().Format(time.RFC3339),
			},
		},
	}
}

// NewKeyRejectedMessage alerts about a run aborted by a 401/403
func NewKeyRejectedMessage(maskedKey string, s RunStats) Message {
	return Message{
		Content: "@here Riot API key rejected!",
		Embeds: []Embed{
			{
				Title: "🔑 API Key Rejected",
				Color: colorAlert,
				Fields: []EmbedField{
					{Name: "Key", Value: maskedKey, Inline: true},
					{Name: "Player", Value: s.Player, Inline: true},
					{Name: "Matches Before Abort", Value: humanize.Comma(int64(s.Processed)), Inline: true},
				},
				Footer: &EmbedFooter{
					Text: "Regenerate the key at developer.riotgames.com and update RIOT_API_KEY",
				},
			},
		},
	}
}

func winLine(wins, total int) string {
	if total == 0 {
		return "0/0"
	}
	return fmt.Sprintf("%d/%d (%.1f%%)", wins, total, float64(wins)/float64(total)*100)
}

// WebhookClient posts collector notifications to one Discord webhook
type WebhookClient struct {
	webhookURL string
	httpClient *http.Client
	logger     *zap.Logger
}

// ClientOption configures a WebhookClient
type ClientOption func(*WebhookClient)

// WithHTTPClient replaces the default 10s-timeout client
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *WebhookClient) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger logs throttled deliveries
func WithLogger(logger *zap.Logger) ClientOption {
	return func(c *WebhookClient) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func NewWebhookClient(webhookURL string, opts ...ClientOption) *WebhookClient {
	c := &WebhookClient{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: defaultWebhookTimeout},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SendRunComplete sends an ingestion summary
func (c *WebhookClient) SendRunComplete(ctx context.Context, s RunStats) error {
	return c.send(ctx, NewRunCompleteMessage(s))
}

// SendKeyRejected sends an invalid key alert
func (c *WebhookClient) SendKeyRejected(ctx context.Context, maskedKey string, s RunStats) error {
	return c.send(ctx, NewKeyRejectedMessage(maskedKey, s))
}

// send delivers msg, waiting out at most maxAttempts-1 rate limits
func (c *WebhookClient) send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		wait, err := c.post(ctx, body)
		if err != nil || wait == 0 {
			return err
		}
		c.logger.Debug("webhook throttled",
			zap.Int("attempt", attempt),
			zap.Duration("retry_after", wait))

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return fmt.Errorf("webhook still throttled after %d attempts", maxAttempts)
}

// post makes one delivery attempt. A non-zero wait means Discord answered 429.
func (c *WebhookClient) post(ctx context.Context, body []byte) (time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("webhook request failed: %w", err)
	}
	resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent:
		return 0, nil
	case http.StatusTooManyRequests:
		return retryAfter(resp.Header.Get("Retry-After")), nil
	}
	return 0, fmt.Errorf("webhook returned status %d", resp.StatusCode)
}

// retryAfter reads the header in seconds, falling back to one second
func retryAfter(header string) time.Duration {
	if secs, err := strconv.ParseFloat(header, 64); err == nil && secs > 0 {
		return time.Duration(secs * float64(time.Second))
	}
	return time.Second
}

// formatDuration formats a duration as "Xh Ym" (e.g., 18h 32m), or seconds when short
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh %dm", hours, minutes)
}
