package memeapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mohammad-safakhou/curator/models"
)

// ErrIncomplete is returned when the upstream payload lacks a media url.
var ErrIncomplete = errors.New("memeapi: incomplete payload")

type response struct {
	Title     string `json:"title"`
	PostLink  string `json:"postLink"`
	URL       string `json:"url"`
	Subreddit string `json:"subreddit"`
	NSFW      bool   `json:"nsfw"`
	Spoiler   bool   `json:"spoiler"`
}

// Client fetches single random posts from a meme-api style /gimme endpoint.
type Client struct {
	Endpoint string
	HTTP     *http.Client
	// AllowNSFW keeps posts the upstream flags as nsfw or spoiler.
	AllowNSFW bool
}

func New(endpoint string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		Endpoint: strings.TrimRight(endpoint, "/"),
		HTTP:     &http.Client{Timeout: timeout},
	}
}

func (c *Client) requestURL(category string) (string, error) {
	base := c.Endpoint
	category = strings.TrimSpace(category)
	if category == "" {
		return base, nil
	}
	return url.JoinPath(base, category)
}

// FetchOne implements news.Source.
func (c *Client) FetchOne(ctx context.Context, category string) (models.Candidate, error) {
	reqURL, err := c.requestURL(category)
	if err != nil {
		return models.Candidate{}, fmt.Errorf("memeapi: build url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return models.Candidate{}, fmt.Errorf("memeapi: new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return models.Candidate{}, fmt.Errorf("memeapi: fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.Candidate{}, fmt.Errorf("memeapi error: %s", resp.Status)
	}

	var result response
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return models.Candidate{}, fmt.Errorf("memeapi: decode response: %w", err)
	}
	if strings.TrimSpace(result.URL) == "" {
		return models.Candidate{}, ErrIncomplete
	}
	if (result.NSFW || result.Spoiler) && !c.AllowNSFW {
		return models.Candidate{}, fmt.Errorf("memeapi: skipped flagged post %s", result.PostLink)
	}

	return models.Candidate{
		Title:      strings.TrimSpace(result.Title),
		SourceLink: result.PostLink,
		MediaURL:   strings.TrimSpace(result.URL),
	}, nil
}
