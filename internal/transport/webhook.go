package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/mohammad-safakhou/curator/models"
)

type webhookImage struct {
	URL string `json:"url"`
}

type webhookEmbed struct {
	Title       string        `json:"title,omitempty"`
	URL         string        `json:"url,omitempty"`
	Description string        `json:"description,omitempty"`
	Image       *webhookImage `json:"image,omitempty"`
}

type webhookPayload struct {
	Content  string         `json:"content,omitempty"`
	Username string         `json:"username,omitempty"`
	Embeds   []webhookEmbed `json:"embeds,omitempty"`
}

// Webhook posts messages to a Discord-compatible incoming webhook. It serves
// both as the requester notifier and as the destination publisher.
type Webhook struct {
	URL      string
	Username string
	HTTP     *http.Client
}

func NewWebhook(rawURL, username string, timeout time.Duration) *Webhook {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Webhook{URL: rawURL, Username: username, HTTP: &http.Client{Timeout: timeout}}
}

func (w *Webhook) Send(ctx context.Context, _ models.Requester, msg models.Message) (models.MessageRef, error) {
	return w.post(ctx, msg)
}

func (w *Webhook) Publish(ctx context.Context, msg models.Message) (models.MessageRef, error) {
	return w.post(ctx, msg)
}

func payloadFor(msg models.Message, username string) webhookPayload {
	p := webhookPayload{Content: msg.Text, Username: username}
	if e := msg.Embed; e != nil {
		we := webhookEmbed{Title: e.Title, URL: e.URL, Description: e.Description}
		if e.ImageURL != "" {
			we.Image = &webhookImage{URL: e.ImageURL}
		}
		p.Embeds = []webhookEmbed{we}
	}
	return p
}

// post asks for the created message back (wait=true) so its id can serve as
// the ref gestures are matched against. Hooks that answer without a body get
// a random ref.
func (w *Webhook) post(ctx context.Context, msg models.Message) (models.MessageRef, error) {
	u, err := url.Parse(w.URL)
	if err != nil {
		return "", fmt.Errorf("webhook url: %w", err)
	}
	q := u.Query()
	q.Set("wait", "true")
	u.RawQuery = q.Encode()

	body, err := json.Marshal(payloadFor(msg, w.Username))
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := w.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("webhook post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("webhook error: %s: %s", resp.Status, bytes.TrimSpace(snippet))
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil || created.ID == "" {
		return models.MessageRef(uuid.NewString()), nil
	}
	return models.MessageRef(created.ID), nil
}
