// Package judge calls an external HTTP judge service for llm_judge verification.
package judge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	jmespath "github.com/jmespath-community/go-jmespath"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/target/workmarket/internal/core"
)

const (
	defaultOKExpr     = "ok"
	defaultReasonExpr = "reason"
	defaultTimeout    = 60 * time.Second
	maxResponseBytes  = 1 << 20
)

// OAuthConfig enables the client-credentials grant for calls to the judge.
type OAuthConfig struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string
}

// Options configures a Client.
type Options struct {
	Endpoint string
	// OKExpr and ReasonExpr are JMESPath expressions evaluated against the
	// judge's JSON response.
	OKExpr     string
	ReasonExpr string
	Timeout    time.Duration
	OAuth      *OAuthConfig
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client implements core.Judge over HTTP.
type Client struct {
	endpoint   string
	okExpr     string
	reasonExpr string
	http       *http.Client
	logger     *slog.Logger
}

var _ core.Judge = (*Client)(nil)

// NewClient validates opts and builds a Client.
func NewClient(opts Options) (*Client, error) {
	u, err := url.Parse(opts.Endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("judge: invalid endpoint %q", opts.Endpoint)
	}
	okExpr := firstNonEmpty(opts.OKExpr, defaultOKExpr)
	reasonExpr := firstNonEmpty(opts.ReasonExpr, defaultReasonExpr)
	for _, expr := range []string{okExpr, reasonExpr} {
		if _, err := jmespath.Compile(expr); err != nil {
			return nil, fmt.Errorf("judge: invalid JMESPath %q: %w", expr, err)
		}
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	base := opts.HTTPClient
	if base == nil {
		base = &http.Client{Timeout: timeout}
	}
	client := base
	if opts.OAuth != nil && opts.OAuth.ClientID != "" {
		cc := clientcredentials.Config{
			ClientID:     opts.OAuth.ClientID,
			ClientSecret: opts.OAuth.ClientSecret,
			TokenURL:     opts.OAuth.TokenURL,
			Scopes:       opts.OAuth.Scopes,
		}
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
		client = cc.Client(ctx)
		client.Timeout = timeout
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		endpoint:   opts.Endpoint,
		okExpr:     okExpr,
		reasonExpr: reasonExpr,
		http:       client,
		logger:     logger.With("component", "judge"),
	}, nil
}

// Judge posts req as JSON and extracts the verdict from the response. Transport
// failures, non-2xx statuses and undecidable responses are errors.
func (c *Client) Judge(ctx context.Context, req core.JudgeRequest) (*core.JudgeVerdict, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("judge: encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("judge: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("judge: call: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("judge: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("judge: unexpected status %d", resp.StatusCode)
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("judge: decode response: %w", err)
	}
	okVal, err := jmespath.Search(c.okExpr, doc)
	if err != nil {
		return nil, fmt.Errorf("judge: evaluate %q: %w", c.okExpr, err)
	}
	ok, decided := truthy(okVal)
	if !decided {
		return nil, errors.New("judge: response carries no verdict")
	}
	reasonVal, err := jmespath.Search(c.reasonExpr, doc)
	if err != nil {
		c.logger.WarnContext(ctx, "reason expression failed", "expr", c.reasonExpr, "error", err)
	}
	reason, _ := reasonVal.(string)

	c.logger.DebugContext(ctx, "judge verdict", "job_id", req.JobID, "ok", ok)
	return &core.JudgeVerdict{OK: ok, Reason: reason}, nil
}

// truthy interprets common verdict encodings. decided is false when v carries none.
func truthy(v any) (ok, decided bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case float64:
		return t != 0, true
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "ok", "pass", "passed", "approve", "approved", "yes":
			return true, true
		case "false", "fail", "failed", "reject", "rejected", "no":
			return false, true
		}
	}
	return false, false
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
