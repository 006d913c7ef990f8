package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/workmarket/config"
	"github.com/target/workmarket/internal/domain/model"
	"github.com/target/workmarket/internal/testutil"
)

// fakeReaperTarget records upkeep calls.
type fakeReaperTarget struct {
	mu           sync.Mutex
	releaseCalls int
	releaseBy    string
	released     int64
	releaseErr   error
	purgeCalls   []PurgeRequest
	purged       int64
	purgeErr     error
}

func (f *fakeReaperTarget) ReleaseStaleClaims(_ context.Context, by string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.releaseCalls++
	f.releaseBy = by
	return f.released, f.releaseErr
}

func (f *fakeReaperTarget) Purge(_ context.Context, req PurgeRequest) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.purgeCalls = append(f.purgeCalls, req)
	return f.purged, f.purgeErr
}

func (f *fakeReaperTarget) calls() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.releaseCalls, len(f.purgeCalls)
}

func TestNewReaperService(t *testing.T) {
	tests := []struct {
		name    string
		opts    ReaperServiceOptions
		wantErr string
	}{
		{
			name:    "missing target",
			opts:    ReaperServiceOptions{Config: config.ReaperConfig{Interval: time.Minute}},
			wantErr: "ReaperTarget is required",
		},
		{
			name:    "zero interval",
			opts:    ReaperServiceOptions{Target: &fakeReaperTarget{}},
			wantErr: "interval must be positive",
		},
		{
			name: "valid",
			opts: ReaperServiceOptions{Target: &fakeReaperTarget{}, Config: config.ReaperConfig{Interval: time.Minute}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := NewReaperService(tt.opts)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "reaper", svc.config.Actor)
		})
	}

	assert.Panics(t, func() { MustNewReaperService(ReaperServiceOptions{}) })
}

func TestReaperService_RunOnce(t *testing.T) {
	tests := []struct {
		name        string
		target      *fakeReaperTarget
		purgeMaxAge time.Duration
		wantErr     bool
		wantPurges  int
		wantResult  string
	}{
		{
			name:       "nothing to do",
			target:     &fakeReaperTarget{},
			wantResult: "noop",
		},
		{
			name:        "release and purge",
			target:      &fakeReaperTarget{released: 2, purged: 3},
			purgeMaxAge: 48 * time.Hour,
			wantPurges:  1,
			wantResult:  "success",
		},
		{
			name:        "release failure still purges",
			target:      &fakeReaperTarget{releaseErr: errors.New("store down"), purged: 1},
			purgeMaxAge: time.Hour,
			wantErr:     true,
			wantPurges:  1,
			wantResult:  "error",
		},
		{
			name:       "purge disabled",
			target:     &fakeReaperTarget{released: 1},
			wantResult: "success",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &testutil.MetricsRecorder{}
			svc := MustNewReaperService(ReaperServiceOptions{
				Target:  tt.target,
				Config:  config.ReaperConfig{Interval: time.Minute, PurgeMaxAge: tt.purgeMaxAge, Actor: "janitor"},
				Metrics: rec,
			})

			err := svc.RunOnce(context.Background())
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "release stale claims")
			} else {
				require.NoError(t, err)
			}

			assert.Equal(t, 1, tt.target.releaseCalls)
			assert.Equal(t, "janitor", tt.target.releaseBy)
			require.Len(t, tt.target.purgeCalls, tt.wantPurges)
			if tt.wantPurges > 0 {
				assert.Equal(t, PurgeRequest{By: "janitor", Reason: "retention", OlderThan: tt.purgeMaxAge}, tt.target.purgeCalls[0])
			}

			cleanup := rec.Named("reaper.cleanup")
			require.Len(t, cleanup, 1)
			assert.Equal(t, tt.wantResult, cleanup[0].Tags["result"])
			assert.Len(t, rec.Named("reaper.cleanup_operation"), 2)
			assert.Equal(t, !tt.wantErr, len(rec.Named("reaper.last_success_epoch")) == 1)
		})
	}
}

func TestReaperService_RunOnceCancelled(t *testing.T) {
	target := &fakeReaperTarget{releaseErr: context.Canceled}
	svc := MustNewReaperService(ReaperServiceOptions{
		Target: target,
		Config: config.ReaperConfig{Interval: time.Minute},
	})

	err := svc.RunOnce(context.Background())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReaperService_Run(t *testing.T) {
	target := &fakeReaperTarget{}
	svc := MustNewReaperService(ReaperServiceOptions{
		Target: target,
		Config: config.ReaperConfig{Interval: 20 * time.Millisecond},
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	assert.Eventually(t, func() bool {
		releases, _ := target.calls()
		return releases >= 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("reaper did not stop")
	}
}

func TestReaperService_ReleasesStaleClaimsFromMarket(t *testing.T) {
	h := newMarketHarness(t)
	job := h.create(t, testutil.NewJobRequest().WithTitle("Index the changelog").Unique().Build())
	_, err := h.svc.Claim(context.Background(), job.ID, "agent-1")
	require.NoError(t, err)

	h.clock.AddTime(2 * time.Hour)

	svc := MustNewReaperService(ReaperServiceOptions{
		Target: h.svc,
		Config: config.ReaperConfig{Interval: time.Minute, Actor: "reaper"},
	})
	require.NoError(t, svc.RunOnce(context.Background()))

	got, err := h.svc.Get(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusOpen, got.Status)
	assert.Empty(t, got.ClaimedBy)
}
