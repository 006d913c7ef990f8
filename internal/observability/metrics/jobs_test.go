package metrics_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/target/workmarket/internal/errors"
	"github.com/target/workmarket/internal/observability/metrics"
	"github.com/target/workmarket/internal/testutil"
)

func TestEmitJobTransition(t *testing.T) {
	tests := []struct {
		name     string
		in       metrics.TransitionMetric
		wantTags map[string]string
		timings  int
	}{
		{
			name:     "success with duration",
			in:       metrics.TransitionMetric{Intent: "claim", Result: metrics.ResultSuccess, Duration: time.Millisecond},
			wantTags: map[string]string{"intent": "claim", "result": "success"},
			timings:  1,
		},
		{
			name: "app error tagged with code",
			in: metrics.TransitionMetric{
				Intent: "claim",
				Result: metrics.ResultError,
				Err:    apperrors.New(apperrors.ErrCodeAlreadyClaimed, "taken"),
			},
			wantTags: map[string]string{"intent": "claim", "result": "error", "error_code": "already_claimed"},
		},
		{
			name:     "plain error tagged with class",
			in:       metrics.TransitionMetric{Intent: "submit", Result: metrics.ResultError, Err: errors.New("boom")},
			wantTags: map[string]string{"intent": "submit", "result": "error", "error_class": "errors_errorstring"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &testutil.MetricsRecorder{}
			metrics.EmitJobTransition(rec, tt.in)

			counts := rec.Named("job.transition")
			require.Len(t, counts, 1)
			assert.Equal(t, tt.wantTags, counts[0].Tags)
			assert.Len(t, rec.Named("job.transition_duration"), tt.timings)
		})
	}
}

func TestEmitVerification(t *testing.T) {
	rec := &testutil.MetricsRecorder{}
	metrics.EmitVerification(rec, metrics.VerificationMetric{Outcome: "pass", Duration: 2 * time.Second})

	runs := rec.Named("verify.run")
	require.Len(t, runs, 1)
	assert.Equal(t, "unknown", runs[0].Tags["verifier"])
	assert.Equal(t, "pass", runs[0].Tags["outcome"])
	assert.Len(t, rec.Named("verify.duration"), 1)
}

func TestNilSinkIsNoop(t *testing.T) {
	assert.NotPanics(t, func() {
		metrics.EmitJobTransition(nil, metrics.TransitionMetric{Intent: "x"})
		metrics.EmitVerification(nil, metrics.VerificationMetric{})
	})
}

func TestResult(t *testing.T) {
	assert.Equal(t, metrics.ResultError, metrics.Result(3, errors.New("x")))
	assert.Equal(t, metrics.ResultNoop, metrics.Result(0, nil))
	assert.Equal(t, metrics.ResultSuccess, metrics.Result(2, nil))
}

func TestEmitLedgerMetrics(t *testing.T) {
	rec := &testutil.MetricsRecorder{}
	metrics.EmitLedgerEntry(rec, "reward", true, nil)
	metrics.EmitLedgerEntry(rec, "reward", false, nil)
	metrics.EmitLedgerEntry(rec, "penalty", false, errors.New("down"))
	metrics.EmitSettlement(rec, false, 0)

	entries := rec.Named("economy.entry")
	require.Len(t, entries, 3)
	assert.Equal(t, map[string]string{"type": "reward", "result": "success"}, entries[0].Tags)
	assert.Equal(t, "noop", entries[1].Tags["result"])
	assert.Equal(t, map[string]string{"type": "penalty", "result": "error"}, entries[2].Tags)

	settlements := rec.Named("economy.settlement")
	require.Len(t, settlements, 1)
	assert.Equal(t, map[string]string{"approved": "false", "result": "noop"}, settlements[0].Tags)

	assert.NotPanics(t, func() {
		metrics.EmitLedgerEntry(nil, "reward", true, nil)
		metrics.EmitSettlement(nil, true, 1)
	})
}

func TestCloneTags(t *testing.T) {
	assert.Nil(t, metrics.CloneTags(nil))
	src := map[string]string{"a": "1", "": "drop"}
	out := metrics.CloneTags(src)
	assert.Equal(t, map[string]string{"a": "1"}, out)
	out["a"] = "2"
	assert.Equal(t, "1", src["a"])
}
