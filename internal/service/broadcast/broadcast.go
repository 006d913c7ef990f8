// Package broadcast fans marketplace state changes and operator notices out to
// every registered observer without blocking the writer.
package broadcast

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"

	"github.com/target/workmarket/internal/core"
	"github.com/target/workmarket/internal/domain/model"
	"github.com/target/workmarket/internal/observability/notify"
)

const defaultDeliveryTimeout = 5 * time.Second

// StateSinkRegistration pairs a state sink with a name for logging.
type StateSinkRegistration struct {
	Name string
	Sink notify.StateSink
}

// NoticeSinkRegistration pairs a notice sink with a name for logging.
type NoticeSinkRegistration struct {
	Name string
	Sink notify.NoticeSink
}

// LocalNotifier is the in-process wakeup hook (see domain/job.Notifier).
type LocalNotifier interface {
	Notify(change model.StateChange)
}

// Options configures the broadcast service.
type Options struct {
	Logger      *slog.Logger
	StateSinks  []StateSinkRegistration
	NoticeSinks []NoticeSinkRegistration
	// Local is notified synchronously before sinks are dispatched.
	Local LocalNotifier
	// Timeout bounds each sink delivery.
	Timeout time.Duration
}

// Service implements core.Broadcaster.
type Service struct {
	logger      *slog.Logger
	stateSinks  []StateSinkRegistration
	noticeSinks []NoticeSinkRegistration
	local       LocalNotifier
	timeout     time.Duration

	mu       sync.Mutex
	closed   bool
	inflight conc.WaitGroup
}

var _ core.Broadcaster = (*Service)(nil)

// NewService constructs a broadcaster. Nil sinks are skipped.
func NewService(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultDeliveryTimeout
	}

	s := &Service{
		logger:  logger.With("component", "broadcast"),
		local:   opts.Local,
		timeout: timeout,
	}
	for _, entry := range opts.StateSinks {
		if entry.Sink == nil {
			continue
		}
		if entry.Name == "" {
			entry.Name = "state_sink"
		}
		s.stateSinks = append(s.stateSinks, entry)
	}
	for _, entry := range opts.NoticeSinks {
		if entry.Sink == nil {
			continue
		}
		if entry.Name == "" {
			entry.Name = "notice_sink"
		}
		s.noticeSinks = append(s.noticeSinks, entry)
	}
	return s
}

// StateChanged implements core.Broadcaster.
func (s *Service) StateChanged(ctx context.Context, change model.StateChange) {
	if s.local != nil {
		s.local.Notify(change)
	}
	if len(s.stateSinks) == 0 {
		return
	}
	s.dispatch(ctx, func(ctx context.Context) {
		var wg conc.WaitGroup
		for _, entry := range s.stateSinks {
			wg.Go(func() {
				if err := entry.Sink.PublishStateChange(ctx, change); err != nil {
					s.logger.Warn("state change delivery failed",
						"sink", entry.Name,
						"job_id", change.JobID,
						"event_type", change.EventType,
						"error", err,
					)
				}
			})
		}
		s.recover(wg.WaitAndRecover(), "state")
	})
}

// OperatorNotice implements core.Broadcaster.
func (s *Service) OperatorNotice(ctx context.Context, notice model.OperatorNotice) {
	if len(s.noticeSinks) == 0 {
		s.logger.Warn("operator notice with no sinks configured",
			"kind", notice.Kind,
			"root_job_id", notice.RootJobID,
			"message", notice.Message,
		)
		return
	}
	s.dispatch(ctx, func(ctx context.Context) {
		var wg conc.WaitGroup
		for _, entry := range s.noticeSinks {
			wg.Go(func() {
				if err := entry.Sink.SendNotice(ctx, notice); err != nil {
					s.logger.Error("operator notice delivery failed",
						"sink", entry.Name,
						"kind", notice.Kind,
						"root_job_id", notice.RootJobID,
						"error", err,
					)
				}
			})
		}
		s.recover(wg.WaitAndRecover(), "notice")
	})
}

// dispatch runs fn in the background on a context detached from the caller's
// cancellation so a finished request does not abort delivery.
func (s *Service) dispatch(ctx context.Context, fn func(context.Context)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	base := context.WithoutCancel(ctx)
	s.inflight.Go(func() {
		deliveryCtx, cancel := context.WithTimeout(base, s.timeout)
		defer cancel()
		fn(deliveryCtx)
	})
}

func (s *Service) recover(r *panics.Recovered, kind string) {
	if r == nil {
		return
	}
	s.logger.Error("sink panicked", "kind", kind, "panic", r.Value)
}

// Enabled reports whether any sinks are registered.
func (s *Service) Enabled() bool {
	return len(s.stateSinks) > 0 || len(s.noticeSinks) > 0
}

// Close stops accepting new deliveries and waits for in-flight ones.
func (s *Service) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.inflight.Wait()
}
