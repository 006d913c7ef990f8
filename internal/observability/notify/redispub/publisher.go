// Package redispub publishes marketplace activity on Redis pub/sub channels so
// external observers can follow job state without polling.
package redispub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/target/workmarket/internal/domain/model"
	"github.com/target/workmarket/internal/observability/notify"
)

const defaultPrefix = "workmarket"

// Publisher writes state changes and operator notices as JSON messages.
type Publisher struct {
	client        redis.UniversalClient
	stateChannel  string
	noticeChannel string
}

var (
	_ notify.StateSink  = (*Publisher)(nil)
	_ notify.NoticeSink = (*Publisher)(nil)
)

// Options configures a Publisher.
type Options struct {
	Client redis.UniversalClient
	// Prefix namespaces channel names: <prefix>:jobs:state and <prefix>:notices.
	Prefix string
}

// New constructs a Publisher.
func New(opts Options) (*Publisher, error) {
	if opts.Client == nil {
		return nil, errors.New("redis client is required")
	}
	prefix := strings.TrimSpace(opts.Prefix)
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Publisher{
		client:        opts.Client,
		stateChannel:  StateChannel(prefix),
		noticeChannel: NoticeChannel(prefix),
	}, nil
}

// StateChannel returns the channel carrying job state changes for prefix.
func StateChannel(prefix string) string { return prefix + ":jobs:state" }

// NoticeChannel returns the channel carrying operator notices for prefix.
func NoticeChannel(prefix string) string { return prefix + ":notices" }

// PublishStateChange implements notify.StateSink.
func (p *Publisher) PublishStateChange(ctx context.Context, change model.StateChange) error {
	return p.publish(ctx, p.stateChannel, change)
}

// SendNotice implements notify.NoticeSink.
func (p *Publisher) SendNotice(ctx context.Context, notice model.OperatorNotice) error {
	return p.publish(ctx, p.noticeChannel, noticeMessage{
		OperatorNotice: notice,
		Severity:       notify.SeverityFor(notice.Kind),
	})
}

type noticeMessage struct {
	model.OperatorNotice
	Severity string `json:"severity"`
}

func (p *Publisher) publish(ctx context.Context, channel string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s message: %w", channel, err)
	}
	if err := p.client.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", channel, err)
	}
	return nil
}
