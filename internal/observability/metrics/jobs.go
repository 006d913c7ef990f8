// Package metrics names the statsd series workmarket emits and the tags on
// them. Every Emit function accepts a nil sink.
package metrics

import (
	"maps"
	"strconv"
	"time"

	apperrors "github.com/target/workmarket/internal/errors"
	obserrors "github.com/target/workmarket/internal/observability/errors"
	"github.com/target/workmarket/internal/observability/statsd"
)

const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultNoop    = "noop" // ran cleanly with nothing to do
)

// Result picks the result tag for an operation that touched n items.
func Result(n int64, err error) string {
	switch {
	case err != nil:
		return ResultError
	case n == 0:
		return ResultNoop
	default:
		return ResultSuccess
	}
}

// TransitionMetric is one attempted job intent such as claim or review.
type TransitionMetric struct {
	Intent   string
	Result   string
	Duration time.Duration
	Err      error
}

// EmitJobTransition counts job.transition and times job.transition_duration.
// Rejected intents carry error_code, so races and misuse split cleanly.
func EmitJobTransition(sink statsd.Sink, in TransitionMetric) {
	if sink == nil {
		return
	}
	tags := map[string]string{"intent": in.Intent, "result": in.Result}
	if in.Result == ResultError {
		tagError(tags, in.Err)
	}
	countAndTime(sink, "job.transition", in.Duration, tags)
}

// VerificationMetric is one verifier run. Outcome is pass, fail, awaiting or
// error.
type VerificationMetric struct {
	Verifier string
	Outcome  string
	Duration time.Duration
	Err      error
}

// EmitVerification counts verify.run and times verify.duration.
func EmitVerification(sink statsd.Sink, in VerificationMetric) {
	if sink == nil {
		return
	}
	verifier := in.Verifier
	if verifier == "" {
		verifier = "unknown"
	}
	tags := map[string]string{"verifier": verifier, "outcome": in.Outcome}
	tagError(tags, in.Err)
	sink.Count("verify.run", 1, tags)
	if in.Duration > 0 {
		sink.Timing("verify.duration", in.Duration, CloneTags(tags))
	}
}

// EmitLedgerEntry counts economy.entry. A replayed reference key that wrote
// nothing is a noop.
func EmitLedgerEntry(sink statsd.Sink, entryType string, inserted bool, err error) {
	if sink == nil {
		return
	}
	var n int64
	if inserted {
		n = 1
	}
	sink.Count("economy.entry", 1, map[string]string{"type": entryType, "result": Result(n, err)})
}

// EmitSettlement counts economy.settlement. A settlement that posted no
// entries, such as an unpaid rejection, is a noop.
func EmitSettlement(sink statsd.Sink, approved bool, entries int) {
	if sink == nil {
		return
	}
	sink.Count("economy.settlement", 1, map[string]string{
		"approved": strconv.FormatBool(approved),
		"result":   Result(int64(entries), nil),
	})
}

func countAndTime(sink statsd.Sink, name string, d time.Duration, tags map[string]string) {
	sink.Count(name, 1, tags)
	if d > 0 {
		sink.Timing(name+"_duration", d, CloneTags(tags))
	}
}

// tagError prefers the stable application code and falls back to the error
// class.
func tagError(tags map[string]string, err error) {
	if err == nil {
		return
	}
	if code := apperrors.GetCode(err); code != "" {
		tags["error_code"] = string(code)
	} else if class := obserrors.Classify(err); class != "" {
		tags["error_class"] = class
	}
}

// CloneTags copies src without empty keys. Sinks may retain the map they are
// given, so each call gets its own.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := maps.Clone(src)
	delete(out, "")
	return out
}
