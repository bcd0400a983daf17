package reltag

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/hashicorp/go-retryablehttp"
)

// DiscordNotifier announces releases to a Discord channel webhook.
// It implements Notifier.
type DiscordNotifier struct {
	webhookURL string
	client     *retryablehttp.Client
}

// NewDiscordNotifier builds a notifier for a webhook URL.
func NewDiscordNotifier(webhookURL string) (*DiscordNotifier, error) {
	if webhookURL == "" {
		return nil, fmt.Errorf("webhook URL is required")
	}

	client := retryablehttp.NewClient()
	client.Logger = nil

	return &DiscordNotifier{
		webhookURL: webhookURL,
		client:     client,
	}, nil
}

type discordMessage struct {
	Content string         `json:"content"`
	Embeds  []discordEmbed `json:"embeds,omitempty"`
}

type discordEmbed struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url,omitempty"`
}

// Announce posts a release announcement to the webhook.
func (d *DiscordNotifier) Announce(ctx context.Context, decision *VersionDecision, releaseURL string) error {
	message := discordMessage{
		Content: fmt.Sprintf("Released %s", decision.NewVersion),
		Embeds: []discordEmbed{{
			Title:       decision.NewVersion.String(),
			Description: fmt.Sprintf("Previous tag: %s", decision.CurrentTag),
			URL:         releaseURL,
		}},
	}

	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("encoding webhook payload: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("posting webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, bytes.TrimSpace(detail))
	}

	return nil
}
