package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// Config holds remote API connection settings.
type Config struct {
	BaseURL   string
	APIKey    string
	APISecret string
	// Timeout bounds every single HTTP attempt.
	Timeout time.Duration
	// MaxAttempts bounds how often a transient failure is retried
	// before the call surfaces a terminal error.
	MaxAttempts int
	// RetryWaitMin/Max bound the backoff between attempts.
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
}

// Client is the HTTP implementation of API. Transient network errors
// and 429/5xx responses are retried with backoff inside the client;
// callers only ever see terminal outcomes.
type Client struct {
	cfg    Config
	http   *retryablehttp.Client
	logger *slog.Logger
}

var _ API = (*Client)(nil)

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RetryWaitMin <= 0 {
		cfg.RetryWaitMin = 500 * time.Millisecond
	}
	if cfg.RetryWaitMax <= 0 {
		cfg.RetryWaitMax = 10 * time.Second
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = cfg.MaxAttempts - 1
	rc.RetryWaitMin = cfg.RetryWaitMin
	rc.RetryWaitMax = cfg.RetryWaitMax
	rc.HTTPClient.Timeout = cfg.Timeout
	rc.Logger = &retryLogger{logger: logger}

	return &Client{cfg: cfg, http: rc, logger: logger}
}

func (c *Client) Create(ctx context.Context, kind string, item any) error {
	_, err := c.do(ctx, http.MethodPost, "/v1/"+kind, item)
	return err
}

func (c *Client) Update(ctx context.Context, kind string, identity []string, item any) error {
	_, err := c.do(ctx, http.MethodPut, "/v1/"+kind+"/"+strings.Join(identity, "/"), item)
	return err
}

func (c *Client) Delete(ctx context.Context, kind string, identity []string) error {
	_, err := c.do(ctx, http.MethodDelete, "/v1/"+kind+"/"+strings.Join(identity, "/"), nil)
	return err
}

func (c *Client) DeleteAll(ctx context.Context, kind string) error {
	_, err := c.do(ctx, http.MethodDelete, "/v1/"+kind, nil)
	return err
}

func (c *Client) BatchCreate(ctx context.Context, kind string, items []any) error {
	_, err := c.do(ctx, http.MethodPost, "/v1/"+kind+"/batch", items)
	return err
}

func (c *Client) Cancel(ctx context.Context, kind string, id string) error {
	_, err := c.do(ctx, http.MethodPost, "/v1/"+kind+"/"+id+"/cancel", nil)
	return err
}

func (c *Client) Overview(ctx context.Context, kind string) ([]int64, error) {
	body, err := c.do(ctx, http.MethodGet, "/v1/overview/"+kind, nil)
	if err != nil {
		return nil, err
	}

	var payload struct {
		IDs []int64 `json:"ids"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("remote: decode %s overview: %w", kind, err)
	}

	return payload.IDs, nil
}

func (c *Client) Sync(ctx context.Context) (*SyncManifest, error) {
	body, err := c.do(ctx, http.MethodGet, "/v1/sync", nil)
	if err != nil {
		return nil, err
	}

	var manifest SyncManifest
	if err := json.Unmarshal(body, &manifest); err != nil {
		return nil, fmt.Errorf("remote: decode sync manifest: %w", err)
	}

	return &manifest, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("remote: encode %s %s body: %w", method, path, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("remote: build %s %s: %w", method, path, err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", c.cfg.APIKey)
	req.Header.Set("X-Api-Secret", c.cfg.APISecret)

	resp, err := c.http.Do(req)
	if err != nil {
		// retryablehttp only errors after every attempt was used up.
		return nil, &RetryExhaustedError{Attempts: c.cfg.MaxAttempts, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("remote: read %s %s response: %w", method, path, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, ErrUnauthorized
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("remote: %s %s: unexpected status %d", method, path, resp.StatusCode)
	}

	return raw, nil
}

// retryLogger adapts slog to retryablehttp's leveled logger.
type retryLogger struct {
	logger *slog.Logger
}

func (l *retryLogger) Error(msg string, kv ...interface{}) { l.logger.Error(msg, kv...) }
func (l *retryLogger) Warn(msg string, kv ...interface{})  { l.logger.Warn(msg, kv...) }
func (l *retryLogger) Info(msg string, kv ...interface{})  { l.logger.Debug(msg, kv...) }
func (l *retryLogger) Debug(msg string, kv ...interface{}) { l.logger.Debug(msg, kv...) }
