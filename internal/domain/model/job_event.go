package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType tags a JobEvent. The set is closed; the projector rejects unknown types.
type EventType string

const (
	EventCreated   EventType = "created"
	EventClaimed   EventType = "claimed"
	EventSubmitted EventType = "submitted"
	EventVerified  EventType = "verified"
	EventReviewed  EventType = "reviewed"
	EventUpdated   EventType = "updated"
	EventCancelled EventType = "cancelled"
	EventUnclaimed EventType = "unclaimed"
	EventPurged    EventType = "purged"
)

// JobEvent is an immutable fact in the job log.
type JobEvent struct {
	ID string `json:"id"`
	// Seq is the global append order assigned by the event store.
	Seq int64 `json:"seq"`
	// Version is the per-job sequence number, starting at 1 for the created event.
	Version   int64           `json:"version"`
	Type      EventType       `json:"type"`
	JobID     string          `json:"job_id"`
	Actor     string          `json:"actor,omitempty"`
	Data      json.RawMessage `json:"data"`
	CreatedAt time.Time       `json:"created_at"`
}

// NewJobEvent builds an event with a fresh id and the payload encoded as JSON.
func NewJobEvent(jobID string, version int64, typ EventType, actor string, payload any, at time.Time) (*JobEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", typ, err)
	}
	return &JobEvent{
		ID:        uuid.NewString(),
		Version:   version,
		Type:      typ,
		JobID:     jobID,
		Actor:     actor,
		Data:      data,
		CreatedAt: at.UTC(),
	}, nil
}

// Decode unmarshals the payload into v.
func (e *JobEvent) Decode(v any) error {
	if len(e.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("decode %s event %s: %w", e.Type, e.ID, err)
	}
	return nil
}

// CreatedData is the payload of a created event.
type CreatedData struct {
	Title       string      `json:"title"`
	Body        string      `json:"body"`
	Reward      float64     `json:"reward"`
	CreatedBy   string      `json:"created_by"`
	ParentJobID *string     `json:"parent_job_id,omitempty"`
	Source      Source      `json:"source"`
	Fingerprint string      `json:"fingerprint"`
	RewardMode  RewardMode  `json:"reward_mode"`
	RewardCalc  *RewardCalc `json:"reward_calc,omitempty"`
}

// ClaimedData is the payload of a claimed event.
type ClaimedData struct {
	Agent string `json:"agent"`
}

// SubmittedData is the payload of a submitted event.
type SubmittedData struct {
	Agent      string `json:"agent"`
	Submission string `json:"submission"`
}

// VerifiedData is the payload of a verified event.
type VerifiedData struct {
	Outcome Outcome `json:"outcome"`
}

// ReviewedData is the payload of a reviewed event.
type ReviewedData struct {
	Approved bool     `json:"approved"`
	Note     string   `json:"note,omitempty"`
	By       string   `json:"by"`
	Payout   *float64 `json:"payout,omitempty"`
	Penalty  *float64 `json:"penalty,omitempty"`
	Auto     bool     `json:"auto,omitempty"`
}

// UpdatedData is the payload of an updated event.
type UpdatedData struct {
	Title       *string  `json:"title,omitempty"`
	Body        *string  `json:"body,omitempty"`
	Reward      *float64 `json:"reward,omitempty"`
	Fingerprint string   `json:"fingerprint,omitempty"`
}

// CancelledData is the payload of a cancelled event.
type CancelledData struct {
	By     string `json:"by"`
	Reason string `json:"reason,omitempty"`
}

// UnclaimedData is the payload of an unclaimed event.
type UnclaimedData struct {
	By       string `json:"by"`
	Reason   string `json:"reason,omitempty"`
	Previous string `json:"previous"`
}

// PurgedData is the payload of a purged event.
type PurgedData struct {
	By     string `json:"by"`
	Reason string `json:"reason,omitempty"`
}

// StateChange is broadcast to observers after an event has been durably appended.
type StateChange struct {
	JobID     string    `json:"job_id"`
	EventType EventType `json:"event_type"`
	Status    JobStatus `json:"status,omitempty"`
	Actor     string    `json:"actor,omitempty"`
	Version   int64     `json:"version"`
	At        time.Time `json:"at"`
}
