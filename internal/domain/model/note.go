package model

import "time"

// Importance ranks operator notes.
type Importance string

const (
	ImportanceNormal Importance = "normal"
	ImportanceHigh   Importance = "high"
)

// OperatorNote is a durable note addressed to human operators.
type OperatorNote struct {
	ID         string     `json:"id"`
	Kind       string     `json:"kind"`
	Importance Importance `json:"importance"`
	JobID      string     `json:"job_id,omitempty"`
	RootJobID  string     `json:"root_job_id,omitempty"`
	Message    string     `json:"message"`
	CreatedAt  time.Time  `json:"created_at"`
}

// OperatorNotice is a transient, operator-visible alert pushed to notification sinks.
type OperatorNotice struct {
	Kind      string    `json:"kind"`
	RootJobID string    `json:"root_job_id,omitempty"`
	JobID     string    `json:"job_id,omitempty"`
	Message   string    `json:"message"`
	At        time.Time `json:"at"`
}
