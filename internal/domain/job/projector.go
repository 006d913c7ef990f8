package job

import (
	"errors"
	"fmt"

	"github.com/target/workmarket/internal/domain/model"
)

var (
	// ErrVersionGap indicates an event's version does not directly follow the job's version.
	ErrVersionGap = errors.New("event version does not follow job version")
	// ErrUnknownJob indicates a non-created event for a job that has not been created.
	ErrUnknownJob = errors.New("event for unknown job")
	// ErrUnknownEvent indicates an event type the projector does not understand.
	ErrUnknownEvent = errors.New("unknown event type")
)

// Next returns the state of job after applying ev. job is nil only for a created
// event. A nil result with a nil error means the event purged the job. The input
// job is never modified.
func Next(job *model.Job, ev *model.JobEvent) (*model.Job, error) {
	if ev.Type == model.EventCreated {
		if job != nil {
			return nil, fmt.Errorf("job %s already exists: %w", ev.JobID, ErrInvalidTransition)
		}
		return created(ev)
	}
	if job == nil {
		return nil, fmt.Errorf("%s event for %s: %w", ev.Type, ev.JobID, ErrUnknownJob)
	}
	if _, known := allowedFrom[ev.Type]; !known {
		return nil, fmt.Errorf("%q: %w", ev.Type, ErrUnknownEvent)
	}
	if ev.Version != job.Version+1 {
		return nil, fmt.Errorf("job %s at version %d, event %s has version %d: %w",
			job.ID, job.Version, ev.ID, ev.Version, ErrVersionGap)
	}
	if !CanApply(job.Status, ev.Type) {
		return nil, &TransitionError{JobID: job.ID, From: job.Status, Event: ev.Type}
	}
	if ev.Type == model.EventPurged {
		return nil, nil
	}

	next := job.Clone()
	at := ev.CreatedAt
	if err := apply(next, ev); err != nil {
		return nil, err
	}
	next.Version = ev.Version
	next.UpdatedAt = at
	return next, nil
}

func created(ev *model.JobEvent) (*model.Job, error) {
	if ev.Version != 1 {
		return nil, fmt.Errorf("created event %s has version %d: %w", ev.ID, ev.Version, ErrVersionGap)
	}
	var d model.CreatedData
	if err := ev.Decode(&d); err != nil {
		return nil, err
	}
	return &model.Job{
		ID:          ev.JobID,
		Title:       d.Title,
		Body:        d.Body,
		Reward:      d.Reward,
		ParentJobID: d.ParentJobID,
		Status:      model.JobStatusOpen,
		CreatedBy:   d.CreatedBy,
		CreatedAt:   ev.CreatedAt,
		Fingerprint: d.Fingerprint,
		Source:      d.Source,
		RewardMode:  d.RewardMode,
		RewardCalc:  d.RewardCalc,
		Version:     1,
		UpdatedAt:   ev.CreatedAt,
	}, nil
}

func apply(j *model.Job, ev *model.JobEvent) error {
	at := ev.CreatedAt
	switch ev.Type {
	case model.EventClaimed:
		var d model.ClaimedData
		if err := ev.Decode(&d); err != nil {
			return err
		}
		j.Status = model.JobStatusClaimed
		j.ClaimedBy = d.Agent
		j.ClaimedAt = &at

	case model.EventSubmitted:
		var d model.SubmittedData
		if err := ev.Decode(&d); err != nil {
			return err
		}
		j.Status = model.JobStatusSubmitted
		j.SubmittedBy = d.Agent
		j.SubmittedAt = &at
		j.Submission = d.Submission

	case model.EventVerified:
		var d model.VerifiedData
		if err := ev.Decode(&d); err != nil {
			return err
		}
		ok := d.Outcome.OK
		j.AutoVerifyOK = &ok
		j.AutoVerifyName = d.Outcome.VerifierName
		j.AutoVerifyNote = d.Outcome.Note
		j.AutoVerifyArtifacts = d.Outcome.Evidence
		j.AutoVerifiedAt = &at

	case model.EventReviewed:
		var d model.ReviewedData
		if err := ev.Decode(&d); err != nil {
			return err
		}
		if d.Approved {
			j.Status = model.JobStatusApproved
		} else {
			j.Status = model.JobStatusRejected
		}
		j.ReviewedBy = d.By
		j.ReviewedAt = &at
		j.ReviewNote = d.Note

	case model.EventUpdated:
		var d model.UpdatedData
		if err := ev.Decode(&d); err != nil {
			return err
		}
		if d.Title != nil {
			j.Title = *d.Title
		}
		if d.Body != nil {
			j.Body = *d.Body
		}
		if d.Reward != nil {
			j.Reward = *d.Reward
		}
		if d.Fingerprint != "" {
			j.Fingerprint = d.Fingerprint
		}

	case model.EventCancelled:
		j.Status = model.JobStatusCancelled

	case model.EventUnclaimed:
		j.Status = model.JobStatusOpen
		j.ClaimedBy = ""
		j.ClaimedAt = nil
	}
	return nil
}

// Apply folds ev into the job map in place.
func Apply(jobs map[string]*model.Job, ev *model.JobEvent) error {
	next, err := Next(jobs[ev.JobID], ev)
	if err != nil {
		return err
	}
	if next == nil {
		delete(jobs, ev.JobID)
		return nil
	}
	jobs[ev.JobID] = next
	return nil
}

// Project replays an ordered event log from empty state.
func Project(events []*model.JobEvent) (map[string]*model.Job, error) {
	jobs := make(map[string]*model.Job)
	for _, ev := range events {
		if err := Apply(jobs, ev); err != nil {
			return nil, fmt.Errorf("replay event %d (%s): %w", ev.Seq, ev.ID, err)
		}
	}
	return jobs, nil
}
