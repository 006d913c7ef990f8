package core

import (
	"context"
	"time"

	"github.com/target/workmarket/internal/domain/model"
)

// This file contains repository interface definitions (ports in hexagonal architecture).
// These interfaces define the contracts between the service layer and data layer.
// Service implementations should depend on these interfaces, not concrete implementations.

// JobEventRepository is the append-only job event log.
type JobEventRepository interface {
	// Append stores events for a single job atomically. The first event's Version must
	// be exactly one past the job's stored version and the rest must follow
	// consecutively; otherwise nothing is written and an ErrCodeVersionConflict
	// error is returned. Seq is assigned to each event on success.
	Append(ctx context.Context, events ...*model.JobEvent) error
	// ListByJob returns a job's events in version order.
	ListByJob(ctx context.Context, jobID string) ([]*model.JobEvent, error)
	// ListAll returns the whole log in append order.
	ListAll(ctx context.Context) ([]*model.JobEvent, error)
}

// JobStore holds the projected job read model.
type JobStore interface {
	Get(ctx context.Context, id string) (*model.Job, error)
	Put(ctx context.Context, job *model.Job) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, opts model.JobListOptions) ([]*model.Job, error)
	// Since returns jobs created at or after t, oldest first.
	Since(ctx context.Context, t time.Time) ([]*model.Job, error)
	Stats(ctx context.Context) (model.JobStats, error)
	// Reset replaces the whole read model, used when replaying the log.
	Reset(ctx context.Context, jobs map[string]*model.Job) error
}

// LedgerRepository is the append-only economy ledger.
type LedgerRepository interface {
	// Append writes entry. When entry.RefKey is set and an entry with that key
	// exists, nothing is written and inserted is false.
	Append(ctx context.Context, entry *model.EconomyEntry) (inserted bool, err error)
	// Balance derives the balance of account from its entries.
	Balance(ctx context.Context, account string) (float64, error)
	HasRef(ctx context.Context, refKey string) (bool, error)
	// ListByAccount returns entries touching account, newest first.
	ListByAccount(ctx context.Context, account string, limit int) ([]*model.EconomyEntry, error)
	// ListAll returns every entry in append order.
	ListAll(ctx context.Context) ([]*model.EconomyEntry, error)
}

// NoteRepository stores durable operator notes.
type NoteRepository interface {
	Create(ctx context.Context, note *model.OperatorNote) error
	List(ctx context.Context, limit int) ([]*model.OperatorNote, error)
}

// AgentDirectory answers whether an account id belongs to an autonomous agent.
type AgentDirectory interface {
	IsAgent(id string) bool
}

// Broadcaster delivers state changes and operator notices to observers. Delivery is
// best-effort; implementations must not block the caller on slow observers.
type Broadcaster interface {
	StateChanged(ctx context.Context, change model.StateChange)
	OperatorNotice(ctx context.Context, notice model.OperatorNotice)
}

// RunRequest describes a sandboxed program execution.
type RunRequest struct {
	// Files are written into a fresh working directory before the run.
	Files map[string]string
	// Args is the command line; Args[0] is the program.
	Args    []string
	Stdin   string
	Timeout time.Duration
}

// RunResult is the outcome of a sandboxed execution.
type RunResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
	TimedOut bool
	Duration time.Duration
}

// CodeRunner executes untrusted code in an isolated, time-boxed process.
type CodeRunner interface {
	Run(ctx context.Context, req RunRequest) (*RunResult, error)
}

// JudgeRequest is the material handed to an external judge.
type JudgeRequest struct {
	JobID      string `json:"job_id"`
	Title      string `json:"title"`
	Body       string `json:"body"`
	Submission string `json:"submission"`
}

// JudgeVerdict is the external judge's decision.
type JudgeVerdict struct {
	OK     bool
	Reason string
}

// Judge delegates pass/fail decisions to an external service.
type Judge interface {
	Judge(ctx context.Context, req JudgeRequest) (*JudgeVerdict, error)
}
