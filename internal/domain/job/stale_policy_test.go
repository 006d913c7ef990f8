package job

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/workmarket/internal/domain/model"
)

func TestNewStalePolicy(t *testing.T) {
	_, err := NewStalePolicy(0)
	assert.ErrorIs(t, err, ErrInvalidStaleAge)

	p, err := NewStalePolicy(time.Hour)
	require.NoError(t, err)
	assert.Equal(t, time.Hour, p.MaxAge())
}

func TestStalePolicy_Stale(t *testing.T) {
	p, err := NewStalePolicy(time.Hour)
	require.NoError(t, err)

	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	old := now.Add(-2 * time.Hour)
	fresh := now.Add(-10 * time.Minute)

	tests := []struct {
		name string
		job  *model.Job
		want bool
	}{
		{name: "old claim", job: &model.Job{Status: model.JobStatusClaimed, ClaimedAt: &old}, want: true},
		{name: "fresh claim", job: &model.Job{Status: model.JobStatusClaimed, ClaimedAt: &fresh}},
		{name: "submitted job", job: &model.Job{Status: model.JobStatusSubmitted, ClaimedAt: &old}},
		{name: "no claim time", job: &model.Job{Status: model.JobStatusClaimed}},
		{name: "nil job", job: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.Stale(tt.job, now))
		})
	}

	var nilPolicy *StalePolicy
	assert.False(t, nilPolicy.Stale(&model.Job{Status: model.JobStatusClaimed, ClaimedAt: &old}, now))
}
