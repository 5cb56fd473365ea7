// Package whatsapp sends messages through a WAHA-style HTTP gateway and
// exposes them as tools.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/felixgeelhaar/fortify/ratelimit"
)

// ErrRateLimited is returned when the outbound token bucket is empty.
var ErrRateLimited = errors.New("whatsapp: rate limit exceeded")

// APIError is a non-2xx gateway response.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("whatsapp: gateway returned %d", e.StatusCode)
	}
	return fmt.Sprintf("whatsapp: gateway returned %d: %s", e.StatusCode, e.Body)
}

// Config configures a Client.
type Config struct {
	BaseURL       string
	APIKey        string
	Session       string
	RatePerSecond int
	// Timeout bounds each gateway call. It is also applied to a copy of
	// HTTPClient when that client has no timeout of its own.
	Timeout       time.Duration
	HTTPClient    *http.Client
}

// File is an attachment. Data is sent base64 encoded.
type File struct {
	MimeType string `json:"mimetype"`
	Filename string `json:"filename"`
	Data     []byte `json:"data"`
}

type limiter interface {
	Allow(ctx context.Context, key string) bool
}

// Client talks to the gateway. It is safe for concurrent use.
type Client struct {
	baseURL string
	apiKey  string
	session string
	http    *http.Client
	limiter limiter
}

const (
	maxErrorBody   = 512
	defaultTimeout = 30 * time.Second
)

// New creates a Client. RatePerSecond <= 0 disables outbound throttling.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("whatsapp: base URL is required")
	}
	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		session: cfg.Session,
		http:    cfg.HTTPClient,
	}
	if c.session == "" {
		c.session = "default"
	}
	switch {
	case c.http == nil:
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		c.http = &http.Client{Timeout: timeout}
	case cfg.Timeout > 0 && c.http.Timeout == 0:
		// An injected client without its own deadline gets cfg.Timeout on a copy.
		hc := *c.http
		hc.Timeout = cfg.Timeout
		c.http = &hc
	}
	if cfg.RatePerSecond > 0 {
		c.limiter = ratelimit.New(&ratelimit.Config{
			Rate:     cfg.RatePerSecond,
			Burst:    cfg.RatePerSecond,
			Interval: time.Second,
		})
	}
	return c, nil
}

type textPayload struct {
	Session string `json:"session"`
	ChatID  string `json:"chatId"`
	Text    string `json:"text"`
}

type filePayload struct {
	Session string `json:"session"`
	ChatID  string `json:"chatId"`
	File    File   `json:"file"`
	Caption string `json:"caption,omitempty"`
}

// SendText sends a text message.
func (c *Client) SendText(ctx context.Context, to, text string) error {
	chatID, err := ChatID(to)
	if err != nil {
		return err
	}
	return c.post(ctx, "/api/sendText", textPayload{Session: c.session, ChatID: chatID, Text: text})
}

// SendImage sends an image with an optional caption.
func (c *Client) SendImage(ctx context.Context, to string, file File, caption string) error {
	return c.sendFile(ctx, "/api/sendImage", to, file, caption)
}

// SendFile sends a document with an optional caption.
func (c *Client) SendFile(ctx context.Context, to string, file File, caption string) error {
	return c.sendFile(ctx, "/api/sendFile", to, file, caption)
}

// SendVoice sends audio as a voice note.
func (c *Client) SendVoice(ctx context.Context, to string, file File) error {
	return c.sendFile(ctx, "/api/sendVoice", to, file, "")
}

func (c *Client) sendFile(ctx context.Context, path, to string, file File, caption string) error {
	chatID, err := ChatID(to)
	if err != nil {
		return err
	}
	return c.post(ctx, path, filePayload{Session: c.session, ChatID: chatID, File: file, Caption: caption})
}

func (c *Client) post(ctx context.Context, path string, payload any) error {
	if c.limiter != nil && !c.limiter.Allow(ctx, c.session) {
		return ErrRateLimited
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("whatsapp: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("whatsapp: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("whatsapp: %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
