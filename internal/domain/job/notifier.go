package job

import (
	"slices"
	"sync"

	"github.com/target/workmarket/internal/domain/model"
)

// Notifier wakes background workers when an event type is appended, so the
// verifier and the redo escalator do not poll. A wakeup carries no data:
// pending signals coalesce and the woken worker rescans the read model.
type Notifier interface {
	Subscribe(eventType model.EventType) (unsubscribe func(), wake <-chan struct{})
	Notify(change model.StateChange)
	StopAll()
}

// DefaultNotifier is the in-process Notifier. Once stopped it hands out
// closed channels.
type DefaultNotifier struct {
	mu      sync.Mutex
	stopped bool
	subs    map[model.EventType][]chan struct{}
}

var _ Notifier = (*DefaultNotifier)(nil)

func NewNotifier() *DefaultNotifier {
	return &DefaultNotifier{subs: make(map[model.EventType][]chan struct{})}
}

// Subscribe returns a wake channel with a one-signal buffer. The returned
// func closes it and may be called more than once.
func (n *DefaultNotifier) Subscribe(eventType model.EventType) (func(), <-chan struct{}) {
	ch := make(chan struct{}, 1)

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.stopped {
		close(ch)
		return func() {}, ch
	}
	n.subs[eventType] = append(n.subs[eventType], ch)

	var once sync.Once
	return func() { once.Do(func() { n.remove(eventType, ch) }) }, ch
}

func (n *DefaultNotifier) remove(eventType model.EventType, ch chan struct{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	subs := n.subs[eventType]
	i := slices.Index(subs, ch)
	if i < 0 {
		return
	}
	n.subs[eventType] = slices.Delete(subs, i, i+1)
	if len(n.subs[eventType]) == 0 {
		delete(n.subs, eventType)
	}
	drainAndClose(ch)
}

// Notify never blocks. A subscriber with a pending signal gets no second one.
func (n *DefaultNotifier) Notify(change model.StateChange) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, ch := range n.subs[change.EventType] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// StopAll closes every wake channel.
func (n *DefaultNotifier) StopAll() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.stopped = true
	for eventType, subs := range n.subs {
		for _, ch := range subs {
			drainAndClose(ch)
		}
		delete(n.subs, eventType)
	}
}

// drainAndClose drops a pending signal so receivers see the close at once.
func drainAndClose(ch chan struct{}) {
	select {
	case <-ch:
	default:
	}
	close(ch)
}
