// Package model defines the core data types shared across the workmarket job marketplace.
package model

import (
	"fmt"
	"maps"
	"strings"
	"time"

	apperrors "github.com/target/workmarket/internal/errors"
)

// JobStatus represents the lifecycle position of a job.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type JobStatus string

const (
	// JobStatusOpen indicates the job is published and waiting for a claimant.
	JobStatusOpen JobStatus = "open"
	// JobStatusClaimed indicates an agent holds the job.
	JobStatusClaimed JobStatus = "claimed"
	// JobStatusSubmitted indicates work was handed in and awaits review.
	JobStatusSubmitted JobStatus = "submitted"
	// JobStatusApproved indicates the submission was accepted.
	JobStatusApproved JobStatus = "approved"
	// JobStatusRejected indicates the submission was refused.
	JobStatusRejected JobStatus = "rejected"
	// JobStatusCancelled indicates an operator withdrew the job.
	JobStatusCancelled JobStatus = "cancelled"
)

// Valid returns true if the JobStatus is one of the known statuses.
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusOpen, JobStatusClaimed, JobStatusSubmitted,
		JobStatusApproved, JobStatusRejected, JobStatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transitions are possible.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusApproved || s == JobStatusRejected || s == JobStatusCancelled
}

// IsLive reports whether the job is still moving through the marketplace.
func (s JobStatus) IsLive() bool {
	return s == JobStatusOpen || s == JobStatusClaimed || s == JobStatusSubmitted
}

// UnmarshalText implements encoding.TextUnmarshaler so statuses can be parsed from query strings.
func (s *JobStatus) UnmarshalText(text []byte) error {
	v := JobStatus(strings.ToLower(strings.TrimSpace(string(text))))
	if !v.Valid() {
		return fmt.Errorf("invalid JobStatus: %q", v)
	}
	*s = v
	return nil
}

// Source identifies what kind of party proposed a job.
type Source string

const (
	SourceAgent  Source = "agent"
	SourceHuman  Source = "human"
	SourceSystem Source = "system"
)

// Valid returns true if the Source is known.
func (s Source) Valid() bool {
	return s == SourceAgent || s == SourceHuman || s == SourceSystem
}

// RewardMode selects how a job's reward is determined.
type RewardMode string

const (
	// RewardModeManual uses the caller-supplied reward.
	RewardModeManual RewardMode = "manual"
	// RewardModeAutoRatings derives the reward from twelve bounded ratings.
	RewardModeAutoRatings RewardMode = "auto_ratings"
)

// Valid returns true if the RewardMode is known.
func (m RewardMode) Valid() bool {
	return m == RewardModeManual || m == RewardModeAutoRatings
}

// Job is the projected state of a unit of verifiable work. It is derived from the
// job's event stream and never written directly.
type Job struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	Reward      float64   `json:"reward"`
	ParentJobID *string   `json:"parent_job_id,omitempty"`
	Status      JobStatus `json:"status"`

	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	Fingerprint string    `json:"fingerprint"`
	Source      Source    `json:"source"`

	ClaimedBy   string     `json:"claimed_by,omitempty"`
	ClaimedAt   *time.Time `json:"claimed_at,omitempty"`
	SubmittedBy string     `json:"submitted_by,omitempty"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
	Submission  string     `json:"submission,omitempty"`
	ReviewedBy  string     `json:"reviewed_by,omitempty"`
	ReviewedAt  *time.Time `json:"reviewed_at,omitempty"`
	ReviewNote  string     `json:"review_note,omitempty"`

	AutoVerifyOK        *bool          `json:"auto_verify_ok,omitempty"`
	AutoVerifyName      string         `json:"auto_verify_name,omitempty"`
	AutoVerifyNote      string         `json:"auto_verify_note,omitempty"`
	AutoVerifyArtifacts map[string]any `json:"auto_verify_artifacts,omitempty"`
	AutoVerifiedAt      *time.Time     `json:"auto_verified_at,omitempty"`

	RewardMode RewardMode  `json:"reward_mode"`
	RewardCalc *RewardCalc `json:"reward_calc,omitempty"`

	// Version is the number of events applied to this job. Appends are
	// compare-and-swapped against it.
	Version   int64     `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a copy that shares no mutable state with j.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	c := *j
	if j.ParentJobID != nil {
		p := *j.ParentJobID
		c.ParentJobID = &p
	}
	c.ClaimedAt = cloneTime(j.ClaimedAt)
	c.SubmittedAt = cloneTime(j.SubmittedAt)
	c.ReviewedAt = cloneTime(j.ReviewedAt)
	c.AutoVerifiedAt = cloneTime(j.AutoVerifiedAt)
	if j.AutoVerifyOK != nil {
		ok := *j.AutoVerifyOK
		c.AutoVerifyOK = &ok
	}
	if j.AutoVerifyArtifacts != nil {
		c.AutoVerifyArtifacts = maps.Clone(j.AutoVerifyArtifacts)
	}
	if j.RewardCalc != nil {
		rc := *j.RewardCalc
		c.RewardCalc = &rc
	}
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// Text returns the title and body joined the way tag parsing and fingerprinting see them.
func (j *Job) Text() string {
	return j.Title + "\n" + j.Body
}

// CreateJobRequest represents a request to publish a new job.
type CreateJobRequest struct {
	Title       string         `json:"title"`
	Body        string         `json:"body"`
	Reward      float64        `json:"reward"`
	CreatedBy   string         `json:"created_by"`
	ParentJobID *string        `json:"parent_job_id,omitempty"`
	Source      Source         `json:"source,omitempty"`
	RewardMode  RewardMode     `json:"reward_mode,omitempty"`
	Ratings     *RewardRatings `json:"ratings,omitempty"`
}

// Normalize trims free text and fills defaults.
func (r *CreateJobRequest) Normalize() {
	r.Title = strings.TrimSpace(r.Title)
	r.Body = strings.TrimSpace(r.Body)
	r.CreatedBy = strings.TrimSpace(r.CreatedBy)
	if r.ParentJobID != nil && strings.TrimSpace(*r.ParentJobID) == "" {
		r.ParentJobID = nil
	}
	if r.Source == "" {
		r.Source = SourceAgent
	}
	if r.RewardMode == "" {
		r.RewardMode = RewardModeManual
	}
}

// Validate validates the CreateJobRequest fields. Failures carry the invalid_job code.
func (r *CreateJobRequest) Validate() error {
	if r.Title == "" {
		return apperrors.InvalidJob("title", "title is required")
	}
	if r.Body == "" {
		return apperrors.InvalidJob("body", "body is required")
	}
	if r.CreatedBy == "" {
		return apperrors.InvalidJob("created_by", "creator is required")
	}
	if !r.Source.Valid() {
		return apperrors.InvalidJob("source", fmt.Sprintf("unknown source %q", r.Source))
	}
	switch r.RewardMode {
	case RewardModeManual:
		if r.Reward <= 0 {
			return apperrors.InvalidJob("reward", "reward must be positive")
		}
	case RewardModeAutoRatings:
		if r.Ratings == nil {
			return apperrors.InvalidJob("ratings", "ratings are required for auto_ratings reward mode")
		}
		if err := r.Ratings.Validate(); err != nil {
			return apperrors.InvalidJob("ratings", err.Error())
		}
	default:
		return apperrors.InvalidJob("reward_mode", fmt.Sprintf("unknown reward mode %q", r.RewardMode))
	}
	return nil
}

// UpdateJobRequest edits an open job. Nil fields are left unchanged.
type UpdateJobRequest struct {
	Title  *string  `json:"title,omitempty"`
	Body   *string  `json:"body,omitempty"`
	Reward *float64 `json:"reward,omitempty"`
	By     string   `json:"by"`
}

// Validate validates the UpdateJobRequest fields.
func (r *UpdateJobRequest) Validate() error {
	if r.Title == nil && r.Body == nil && r.Reward == nil {
		return apperrors.InvalidJob("", "nothing to update")
	}
	if r.Title != nil && strings.TrimSpace(*r.Title) == "" {
		return apperrors.InvalidJob("title", "title is required")
	}
	if r.Body != nil && strings.TrimSpace(*r.Body) == "" {
		return apperrors.InvalidJob("body", "body is required")
	}
	if r.Reward != nil && *r.Reward <= 0 {
		return apperrors.InvalidJob("reward", "reward must be positive")
	}
	return nil
}

// ReviewRequest records a reviewer's decision on a submitted job.
type ReviewRequest struct {
	Approved bool   `json:"approved"`
	Note     string `json:"note,omitempty"`
	By       string `json:"by"`
	// Payout overrides the approval payout; it is capped at the job reward.
	Payout *float64 `json:"payout,omitempty"`
	// Penalty is debited from the executor on rejection, clamped to their balance.
	Penalty *float64 `json:"penalty,omitempty"`
}
