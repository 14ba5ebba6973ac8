// Package notifier delivers deals to Discord channels via webhooks.
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"pepperwatch/internal/models"
)

// ErrChannelNotFound is returned when no webhook is configured for the
// destination channel. The scheduler treats it as a permanent condition.
var ErrChannelNotFound = errors.New("no webhook for channel")

const embedColor = 0xE86A33 // pepper orange

type Client struct {
	webhooks map[string]string
	client   *http.Client
}

func New(webhooks map[string]string) *Client {
	return &Client{
		webhooks: webhooks,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

type webhookPayload struct {
	Embeds []embed `json:"embeds"`
}

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type embedImage struct {
	URL string `json:"url,omitempty"`
}

type embedFooter struct {
	Text string `json:"text,omitempty"`
}

type embed struct {
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	URL         string       `json:"url,omitempty"`
	Color       int          `json:"color,omitempty"`
	Fields      []embedField `json:"fields,omitempty"`
	Image       embedImage   `json:"image,omitempty"`
	Footer      embedFooter  `json:"footer,omitempty"`
}

// Send posts one deal to the channel's webhook.
func (c *Client) Send(ctx context.Context, channelID string, deal models.Deal) error {
	webhookURL, ok := c.webhooks[channelID]
	if !ok || webhookURL == "" {
		return fmt.Errorf("%w: %s", ErrChannelNotFound, channelID)
	}

	payload := webhookPayload{Embeds: []embed{formatDeal(deal)}}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("discord status %s: %s", resp.Status, string(respBody))
	}
	return nil
}

func formatDeal(deal models.Deal) embed {
	title := deal.Title
	if title == "" {
		title = "New deal"
	}

	e := embed{
		Title:       title,
		URL:         deal.URL,
		Description: deal.Description,
		Color:       embedColor,
		Footer:      embedFooter{Text: "pepper.pl monitor"},
	}
	if deal.Price != "" {
		e.Fields = append(e.Fields, embedField{Name: "Price", Value: deal.Price, Inline: true})
	}
	if deal.OldPrice != "" {
		e.Fields = append(e.Fields, embedField{Name: "Old price", Value: deal.OldPrice, Inline: true})
	}
	if deal.Discount != "" {
		e.Fields = append(e.Fields, embedField{Name: "Discount", Value: deal.Discount, Inline: true})
	}
	if deal.Store != "" {
		store := deal.Store
		if deal.StoreURL != "" {
			store = fmt.Sprintf("[%s](%s)", deal.Store, deal.StoreURL)
		}
		e.Fields = append(e.Fields, embedField{Name: "Store", Value: store, Inline: true})
	}
	if deal.Code != "" {
		e.Fields = append(e.Fields, embedField{Name: "Code", Value: "`" + deal.Code + "`"})
	}
	if deal.Image != "" {
		e.Image = embedImage{URL: deal.Image}
	}
	return e
}
