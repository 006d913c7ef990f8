// Package amqp publishes marketplace activity to a RabbitMQ topic exchange.
package amqp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/target/workmarket/internal/domain/model"
	"github.com/target/workmarket/internal/observability/notify"
)

// Config holds the broker connection settings.
type Config struct {
	URL           string
	Exchange      string
	Heartbeat     time.Duration
	RetryAttempts int
	RetryInterval time.Duration
}

// channel is the subset of *amqp.Channel the publisher needs.
type channel interface {
	PublishWithContext(
		ctx context.Context,
		exchange, key string,
		mandatory, immediate bool,
		msg amqp.Publishing,
	) error
	Close() error
}

// Publisher routes state changes as job.<event_type> and notices as notice.<kind>.
type Publisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	ch       channel
	exchange string
	logger   *slog.Logger
	now      func() time.Time
}

var (
	_ notify.StateSink  = (*Publisher)(nil)
	_ notify.NoticeSink = (*Publisher)(nil)
)

// Dial connects to the broker, retrying on failure, and declares a durable topic exchange.
func Dial(cfg Config, logger *slog.Logger) (*Publisher, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("amqp url is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	exchange := strings.TrimSpace(cfg.Exchange)
	if exchange == "" {
		exchange = "workmarket.events"
	}
	attempts := cfg.RetryAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var (
		conn *amqp.Connection
		err  error
	)
	for attempt := 1; attempt <= attempts; attempt++ {
		conn, err = amqp.DialConfig(cfg.URL, amqp.Config{Heartbeat: cfg.Heartbeat, Locale: "en_US"})
		if err == nil {
			break
		}
		logger.Warn("amqp dial failed", "attempt", attempt, "max_attempts", attempts, "error", err)
		if attempt < attempts {
			time.Sleep(cfg.RetryInterval)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("dial amqp after %d attempts: %w", attempts, err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	p := newPublisher(ch, exchange, logger)
	p.conn = conn
	return p, nil
}

func newPublisher(ch channel, exchange string, logger *slog.Logger) *Publisher {
	return &Publisher{
		ch:       ch,
		exchange: exchange,
		logger:   logger.With("component", "amqp_publisher"),
		now:      time.Now,
	}
}

// StateRoutingKey returns the routing key used for a state change.
func StateRoutingKey(t model.EventType) string { return "job." + string(t) }

// NoticeRoutingKey returns the routing key used for an operator notice.
func NoticeRoutingKey(kind string) string {
	if kind == "" {
		kind = "generic"
	}
	return "notice." + kind
}

// PublishStateChange implements notify.StateSink.
func (p *Publisher) PublishStateChange(ctx context.Context, change model.StateChange) error {
	return p.publish(ctx, StateRoutingKey(change.EventType), change.JobID, change)
}

// SendNotice implements notify.NoticeSink.
func (p *Publisher) SendNotice(ctx context.Context, notice model.OperatorNotice) error {
	return p.publish(ctx, NoticeRoutingKey(notice.Kind), notice.RootJobID, notice)
}

func (p *Publisher) publish(ctx context.Context, key, correlationID string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch == nil {
		return errors.New("amqp publisher is closed")
	}
	err = p.ch.PublishWithContext(ctx, p.exchange, key, false, false, amqp.Publishing{
		ContentType:   "application/json",
		Body:          body,
		DeliveryMode:  amqp.Persistent,
		CorrelationId: correlationID,
		Timestamp:     p.now(),
	})
	if err != nil {
		return fmt.Errorf("amqp publish %s: %w", key, err)
	}
	p.logger.Debug("published", "routing_key", key, "body_size", len(body))
	return nil
}

// Close releases the channel and connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	if p.ch != nil {
		errs = append(errs, p.ch.Close())
		p.ch = nil
	}
	if p.conn != nil {
		errs = append(errs, p.conn.Close())
		p.conn = nil
	}
	return errors.Join(errs...)
}
