package config

import (
	"strings"
	"time"
)

const (
	defaultSinkName     = "workmarket"
	defaultAMQPExchange = "workmarket.events"
)

// ObservabilityConfig covers statsd metrics and every sink that hears about
// market activity: operator notices (Slack, PagerDuty) and state-change
// streams (redis pub/sub, AMQP).
type ObservabilityConfig struct {
	Metrics       ObservabilityMetricsConfig
	Notifications ObservabilityNotificationsConfig
	RedisPubSub   RedisPubSubConfig `envPrefix:"OBSERVABILITY_REDIS_PUBSUB_"`
	AMQP          AMQPConfig        `envPrefix:"OBSERVABILITY_AMQP_"`
}

func (c *ObservabilityConfig) Sanitize() {
	c.Metrics.Sanitize()
	c.Notifications.Sanitize()
	c.RedisPubSub.Sanitize()
	c.AMQP.Sanitize()
}

// ObservabilityMetricsConfig controls the statsd client. Tags are sent with
// every metric and parse from "env:prod,region:us".
type ObservabilityMetricsConfig struct {
	Enabled       bool              `env:"OBSERVABILITY_METRICS_ENABLED"        envDefault:"false"`
	StatsdAddress string            `env:"OBSERVABILITY_METRICS_STATSD_ADDRESS" envDefault:"127.0.0.1:8125"`
	Prefix        string            `env:"OBSERVABILITY_METRICS_PREFIX"         envDefault:"workmarket"`
	Tags          map[string]string `env:"OBSERVABILITY_METRICS_TAGS"`
}

// Sanitize turns metrics off when there is no address and strips stray dots
// from the prefix so metric paths never contain empty segments.
func (c *ObservabilityMetricsConfig) Sanitize() {
	c.StatsdAddress = strings.TrimSpace(c.StatsdAddress)
	c.Enabled = c.Enabled && c.StatsdAddress != ""
	c.Prefix = strings.Trim(strings.TrimSpace(c.Prefix), ".")
}

func (c *ObservabilityMetricsConfig) IsEnabled() bool {
	return c.Enabled && c.StatsdAddress != ""
}

// ObservabilityNotificationsConfig gates operator notices. The master switch
// overrides the per-sink ones, and a sink without credentials stays off.
type ObservabilityNotificationsConfig struct {
	Enabled    bool                        `env:"OBSERVABILITY_NOTIFICATIONS_ENABLED"     envDefault:"false"`
	Timeout    time.Duration               `env:"OBSERVABILITY_NOTIFICATIONS_TIMEOUT"     envDefault:"5s"`
	RetryLimit int                         `env:"OBSERVABILITY_NOTIFICATIONS_RETRY_LIMIT" envDefault:"3"`
	Slack      SlackNotificationConfig     `                                                               envPrefix:"OBSERVABILITY_NOTIFICATIONS_SLACK_"`
	PagerDuty  PagerDutyNotificationConfig `                                                               envPrefix:"OBSERVABILITY_NOTIFICATIONS_PAGERDUTY_"`
}

func (c *ObservabilityNotificationsConfig) Sanitize() {
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Second
	}
	c.RetryLimit = max(c.RetryLimit, 0)

	c.Slack.WebhookURL = strings.TrimSpace(c.Slack.WebhookURL)
	c.Slack.Channel = strings.TrimSpace(c.Slack.Channel)
	c.Slack.Username = orDefault(c.Slack.Username, defaultSinkName)
	c.Slack.Enabled = c.Enabled && c.Slack.Enabled && c.Slack.WebhookURL != ""

	c.PagerDuty.RoutingKey = strings.TrimSpace(c.PagerDuty.RoutingKey)
	c.PagerDuty.Source = orDefault(c.PagerDuty.Source, defaultSinkName)
	c.PagerDuty.Component = orDefault(c.PagerDuty.Component, defaultSinkName)
	c.PagerDuty.Enabled = c.Enabled && c.PagerDuty.Enabled && c.PagerDuty.RoutingKey != ""
}

// SlackNotificationConfig posts notices to an incoming webhook.
type SlackNotificationConfig struct {
	Enabled    bool   `env:"ENABLED"     envDefault:"false"`
	WebhookURL string `env:"WEBHOOK_URL"`
	Channel    string `env:"CHANNEL"`
	Username   string `env:"USERNAME"    envDefault:"workmarket"`
}

// PagerDutyNotificationConfig triggers Events API v2 incidents for redo-cap
// escalations.
type PagerDutyNotificationConfig struct {
	Enabled    bool   `env:"ENABLED"     envDefault:"false"`
	RoutingKey string `env:"ROUTING_KEY"`
	Source     string `env:"SOURCE"      envDefault:"workmarket"`
	Component  string `env:"COMPONENT"   envDefault:"redo-escalator"`
}

// RedisPubSubConfig publishes state changes and notices on channels under
// Prefix. It requires REDIS_ENABLED.
type RedisPubSubConfig struct {
	Enabled bool   `env:"ENABLED" envDefault:"false"`
	Prefix  string `env:"PREFIX"  envDefault:"workmarket"`
}

func (c *RedisPubSubConfig) Sanitize() {
	c.Prefix = orDefault(c.Prefix, defaultSinkName)
}

// AMQPConfig publishes state changes and notices to a RabbitMQ topic exchange.
// Connecting is retried RetryAttempts times, RetryInterval apart.
type AMQPConfig struct {
	Enabled       bool          `env:"ENABLED"        envDefault:"false"`
	URL           string        `env:"URL"`
	Exchange      string        `env:"EXCHANGE"       envDefault:"workmarket.events"`
	Heartbeat     time.Duration `env:"HEARTBEAT"      envDefault:"10s"`
	RetryAttempts int           `env:"RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval time.Duration `env:"RETRY_INTERVAL" envDefault:"2s"`
}

func (c *AMQPConfig) Sanitize() {
	c.URL = strings.TrimSpace(c.URL)
	c.Enabled = c.Enabled && c.URL != ""
	c.Exchange = orDefault(c.Exchange, defaultAMQPExchange)
	c.RetryAttempts = max(c.RetryAttempts, 1)
	if c.RetryInterval <= 0 {
		c.RetryInterval = 2 * time.Second
	}
}

func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s != "" {
		return s
	}
	return def
}
