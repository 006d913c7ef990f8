package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultWebhookTimeout = 5 * time.Second
	webhookBackoffStep    = 200 * time.Millisecond
	webhookErrBodyLimit   = 4096
)

// Webhook posts JSON payloads to one URL, retrying failed deliveries with a
// linear backoff. Name prefixes error messages.
type Webhook struct {
	Name    string
	URL     string
	Retries int
	Client  *http.Client
}

// NewWebhook fills in an http.Client with timeout when client is nil.
func NewWebhook(name, url string, retries int, timeout time.Duration, client *http.Client) *Webhook {
	if client == nil {
		if timeout <= 0 {
			timeout = defaultWebhookTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Webhook{Name: name, URL: url, Retries: max(retries, 0), Client: client}
}

// Post delivers payload, trying up to Retries+1 times. It returns the last
// delivery error, or the context error if ctx ends while backing off.
func (w *Webhook) Post(ctx context.Context, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", w.Name, err)
	}

	for attempt := 0; ; attempt++ {
		err = w.deliver(ctx, body)
		if err == nil || attempt >= w.Retries {
			return err
		}
		timer := time.NewTimer(time.Duration(attempt+1) * webhookBackoffStep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (w *Webhook) deliver(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", w.Name, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.Client.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", w.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, webhookErrBodyLimit))
		return fmt.Errorf("%s %s: %s", w.Name, resp.Status, strings.TrimSpace(string(msg)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
