// Package job holds the pure job lifecycle logic: the transition table and the
// projector that folds the event log into Job state.
package job

import (
	"errors"
	"fmt"

	"github.com/target/workmarket/internal/domain/model"
)

// ErrInvalidTransition indicates an event cannot be applied to the job's current status.
var ErrInvalidTransition = errors.New("invalid job transition")

// allowedFrom lists, per event type, the statuses the event may be applied to.
// Created is handled separately because it has no prior state.
var allowedFrom = map[model.EventType][]model.JobStatus{
	model.EventClaimed:   {model.JobStatusOpen},
	model.EventSubmitted: {model.JobStatusClaimed},
	model.EventVerified:  {model.JobStatusSubmitted},
	model.EventReviewed:  {model.JobStatusSubmitted},
	model.EventUpdated:   {model.JobStatusOpen},
	model.EventCancelled: {model.JobStatusOpen, model.JobStatusClaimed, model.JobStatusSubmitted},
	model.EventUnclaimed: {model.JobStatusClaimed},
	model.EventPurged:    {model.JobStatusApproved, model.JobStatusRejected, model.JobStatusCancelled},
}

// CanApply reports whether an event of type t may be applied to a job in status s.
func CanApply(s model.JobStatus, t model.EventType) bool {
	for _, from := range allowedFrom[t] {
		if from == s {
			return true
		}
	}
	return false
}

// TransitionError describes a rejected event application.
type TransitionError struct {
	JobID string
	From  model.JobStatus
	Event model.EventType
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("job %s: cannot apply %s in status %s", e.JobID, e.Event, e.From)
}

// Unwrap lets callers match ErrInvalidTransition.
func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}
