// Package notify defines the destinations that observe marketplace activity:
// state-change streams and operator notices.
package notify

import (
	"context"

	"github.com/target/workmarket/internal/domain/model"
)

// Severity constants recognised by downstream sinks.
const (
	SeverityCritical = "critical"
	SeverityWarning  = "warning"
	SeverityInfo     = "info"
)

// NoticeKindRedoCap is the kind of the one-time notice emitted when a job family
// exhausts its redo budget.
const NoticeKindRedoCap = "redo_cap_reached"

// NoticeSink describes a destination capable of consuming operator notices.
type NoticeSink interface {
	SendNotice(ctx context.Context, notice model.OperatorNotice) error
}

// StateSink describes a destination for job state changes.
type StateSink interface {
	PublishStateChange(ctx context.Context, change model.StateChange) error
}

// NoticeSinkFunc adapts a function to the NoticeSink interface (useful for tests).
type NoticeSinkFunc func(ctx context.Context, notice model.OperatorNotice) error

// SendNotice implements the NoticeSink interface.
func (f NoticeSinkFunc) SendNotice(ctx context.Context, notice model.OperatorNotice) error {
	if f == nil {
		return nil
	}
	return f(ctx, notice)
}

// StateSinkFunc adapts a function to the StateSink interface.
type StateSinkFunc func(ctx context.Context, change model.StateChange) error

// PublishStateChange implements the StateSink interface.
func (f StateSinkFunc) PublishStateChange(ctx context.Context, change model.StateChange) error {
	if f == nil {
		return nil
	}
	return f(ctx, change)
}

// SeverityFor maps a notice kind to the severity sinks should report.
func SeverityFor(kind string) string {
	switch kind {
	case NoticeKindRedoCap:
		return SeverityCritical
	case "":
		return SeverityInfo
	default:
		return SeverityWarning
	}
}
