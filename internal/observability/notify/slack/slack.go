package slack

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/target/workmarket/internal/domain/model"
	"github.com/target/workmarket/internal/observability/notify"
)

type Config struct {
	WebhookURL string
	Channel    string
	Username   string
	Timeout    time.Duration
	RetryLimit int
	Client     *http.Client
	// JobURLPrefix turns job ids into links, e.g. https://market.example/api/jobs.
	JobURLPrefix string
}

// Client posts operator notices to an incoming webhook as one mrkdwn message.
type Client struct {
	channel   string
	username  string
	jobPrefix *url.URL
	hook      *notify.Webhook
}

var _ notify.NoticeSink = (*Client)(nil)

var mrkdwnEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// NewClient requires a webhook URL. A JobURLPrefix that is not an absolute
// URL is ignored and job ids are rendered as plain text.
func NewClient(cfg Config) (*Client, error) {
	webhookURL := strings.TrimSpace(cfg.WebhookURL)
	if webhookURL == "" {
		return nil, errors.New("slack webhook url is required")
	}
	username := strings.TrimSpace(cfg.Username)
	if username == "" {
		username = "workmarket"
	}

	c := &Client{
		channel:  strings.TrimSpace(cfg.Channel),
		username: username,
		hook:     notify.NewWebhook("slack webhook", webhookURL, cfg.RetryLimit, cfg.Timeout, cfg.Client),
	}
	if u, err := url.Parse(strings.TrimSpace(cfg.JobURLPrefix)); err == nil && u.Scheme != "" && u.Host != "" {
		c.jobPrefix = u
	}
	return c, nil
}

func (c *Client) SendNotice(ctx context.Context, notice model.OperatorNotice) error {
	return c.hook.Post(ctx, c.formatMessage(notice))
}

func (c *Client) formatMessage(notice model.OperatorNotice) map[string]any {
	at := notice.At
	if at.IsZero() {
		at = time.Now()
	}

	var b strings.Builder
	b.WriteString("*Operator notice*")
	if notice.Kind != "" {
		b.WriteString(" `" + mrkdwnEscaper.Replace(notice.Kind) + "`")
	}
	b.WriteByte('\n')

	field := func(label, value string) {
		if strings.TrimSpace(value) != "" {
			b.WriteString("• " + label + ": " + value + "\n")
		}
	}
	field("Severity", notify.SeverityFor(notice.Kind))
	field("Root job", c.jobRef(notice.RootJobID))
	if notice.JobID != notice.RootJobID {
		field("Job", c.jobRef(notice.JobID))
	}
	field("Message", mrkdwnEscaper.Replace(notice.Message))
	b.WriteString("• Timestamp: " + at.UTC().Format(time.RFC3339))

	msg := map[string]any{"text": b.String(), "username": c.username}
	if c.channel != "" {
		msg["channel"] = c.channel
	}
	return msg
}

// jobRef renders a job id as <link|id> when a link prefix is configured.
func (c *Client) jobRef(jobID string) string {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return ""
	}
	label := mrkdwnEscaper.Replace(jobID)
	if link := c.buildJobLink(jobID); link != "" {
		return "<" + link + "|" + label + ">"
	}
	return label
}

func (c *Client) buildJobLink(jobID string) string {
	if c.jobPrefix == nil {
		return ""
	}
	return c.jobPrefix.JoinPath(jobID).String()
}
