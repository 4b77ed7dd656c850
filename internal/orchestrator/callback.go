package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// CallbackNotifier reports task outcomes to caller-supplied URLs.
type CallbackNotifier interface {
	Notify(url string, payload any)
}

// HTTPCallback posts outcome payloads fire-and-forget: delivery runs in
// its own goroutine with a short timeout, and failures are logged, never
// surfaced to the task flow.
type HTTPCallback struct {
	client *http.Client
	logger *slog.Logger
}

// NewHTTPCallback creates a notifier. A non-positive timeout defaults
// to five seconds.
func NewHTTPCallback(timeout time.Duration, logger *slog.Logger) *HTTPCallback {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPCallback{
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Notify delivers the payload asynchronously. An empty URL is a no-op.
func (c *HTTPCallback) Notify(url string, payload any) {
	if url == "" {
		return
	}
	go func() {
		body, err := json.Marshal(payload)
		if err != nil {
			c.logger.Warn("callback payload not serializable", "url", url, "error", err)
			return
		}

		req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			c.logger.Warn("callback request construction failed", "url", url, "error", err)
			return
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			c.logger.Warn("callback delivery failed", "url", url, "error", err)
			return
		}
		defer resp.Body.Close()
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			c.logger.Warn("callback rejected", "url", url, "status", resp.StatusCode)
		}
	}()
}

var _ CallbackNotifier = (*HTTPCallback)(nil)
