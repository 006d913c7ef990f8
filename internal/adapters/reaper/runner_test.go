package reaper

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/workmarket/config"
	"github.com/target/workmarket/internal/service"
)

type countingTarget struct {
	releases atomic.Int32
}

func (c *countingTarget) ReleaseStaleClaims(context.Context, string) (int64, error) {
	c.releases.Add(1)
	return 0, nil
}

func (c *countingTarget) Purge(context.Context, service.PurgeRequest) (int64, error) {
	return 0, nil
}

func TestNewRunner_RequiresMarket(t *testing.T) {
	_, err := NewRunner(RunnerOptions{Config: config.ReaperConfig{Interval: time.Minute}})
	require.Error(t, err)
}

func TestRunner_RunStopsOnCancel(t *testing.T) {
	target := &countingTarget{}
	r, err := NewRunner(RunnerOptions{
		Target: target,
		Config: config.ReaperConfig{Interval: 10 * time.Millisecond},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	assert.Eventually(t, func() bool { return target.releases.Load() >= 1 }, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
}
