package job

import (
	"errors"
	"time"

	"github.com/target/workmarket/internal/domain/model"
)

// ErrInvalidStaleAge indicates the configured stale-claim age is not positive.
var ErrInvalidStaleAge = errors.New("stale claim age must be positive")

// StalePolicy decides when a claim has been held long enough to be released.
type StalePolicy struct {
	maxAge time.Duration
}

// NewStalePolicy constructs a StalePolicy with the provided maximum claim age.
func NewStalePolicy(maxAge time.Duration) (*StalePolicy, error) {
	if maxAge <= 0 {
		return nil, ErrInvalidStaleAge
	}
	return &StalePolicy{maxAge: maxAge}, nil
}

// MaxAge returns the configured maximum claim age.
func (p *StalePolicy) MaxAge() time.Duration {
	if p == nil {
		return 0
	}
	return p.maxAge
}

// Stale reports whether j is claimed and its claim is older than the policy allows.
func (p *StalePolicy) Stale(j *model.Job, now time.Time) bool {
	if p == nil || j == nil || j.Status != model.JobStatusClaimed || j.ClaimedAt == nil {
		return false
	}
	return now.Sub(*j.ClaimedAt) > p.maxAge
}
