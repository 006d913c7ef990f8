// Package pagerduty pages operators through the Events API v2.
package pagerduty

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/target/workmarket/internal/domain/model"
	"github.com/target/workmarket/internal/observability/notify"
)

// APIEndpoint is the Events API v2 ingest URL.
const APIEndpoint = "https://events.pagerduty.com/v2/enqueue"

type Config struct {
	RoutingKey string
	Source     string
	Component  string
	Timeout    time.Duration
	RetryLimit int
	Client     *http.Client
	Endpoint   string   // overrides APIEndpoint
	Kinds      []string // notice kinds that page; empty means redo cap only
}

// Client triggers one incident per job family and notice kind. Repeated
// notices for the same family share a dedup key and collapse into it.
type Client struct {
	routingKey string
	source     string
	component  string
	kinds      map[string]bool
	hook       *notify.Webhook
}

var _ notify.NoticeSink = (*Client)(nil)

func NewClient(cfg Config) (*Client, error) {
	key := strings.TrimSpace(cfg.RoutingKey)
	if key == "" {
		return nil, errors.New("pagerduty routing key is required")
	}

	kinds := make(map[string]bool)
	for _, k := range cfg.Kinds {
		if k = strings.TrimSpace(k); k != "" {
			kinds[k] = true
		}
	}
	if len(kinds) == 0 {
		kinds[notify.NoticeKindRedoCap] = true
	}

	endpoint := orDefault(cfg.Endpoint, APIEndpoint)
	return &Client{
		routingKey: key,
		source:     orDefault(cfg.Source, "workmarket"),
		component:  orDefault(cfg.Component, "workmarket"),
		kinds:      kinds,
		hook:       notify.NewWebhook("pagerduty", endpoint, cfg.RetryLimit, cfg.Timeout, cfg.Client),
	}, nil
}

// SendNotice triggers an incident for paging kinds and ignores the rest.
func (c *Client) SendNotice(ctx context.Context, notice model.OperatorNotice) error {
	if !c.kinds[notice.Kind] {
		return nil
	}
	return c.hook.Post(ctx, c.buildEvent(notice))
}

func (c *Client) buildEvent(notice model.OperatorNotice) map[string]any {
	at := notice.At
	if at.IsZero() {
		at = time.Now()
	}
	return map[string]any{
		"routing_key":  c.routingKey,
		"event_action": "trigger",
		"dedup_key":    strings.Trim(notice.Kind+":"+notice.RootJobID, ":"),
		"payload": map[string]any{
			"summary":   orDefault(notice.Message, fmt.Sprintf("workmarket notice %s", notice.Kind)),
			"severity":  notify.SeverityFor(notice.Kind),
			"source":    c.source,
			"component": c.component,
			"timestamp": at.UTC().Format(time.RFC3339),
			"custom_details": map[string]any{
				"kind":        notice.Kind,
				"root_job_id": notice.RootJobID,
				"job_id":      notice.JobID,
			},
		},
	}
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return def
}
