package data

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/target/workmarket/internal/core"
	"github.com/target/workmarket/internal/domain/model"
	apperrors "github.com/target/workmarket/internal/errors"
)

// The memory repositories back the service when STORAGE_DRIVER=memory and in tests.
// They honor the same contracts as their Postgres counterparts, including the
// version compare-and-swap and ref key idempotency.

var (
	_ core.JobEventRepository = (*MemoryEventRepo)(nil)
	_ core.LedgerRepository   = (*MemoryLedgerRepo)(nil)
	_ core.NoteRepository     = (*MemoryNoteRepo)(nil)
	_ core.JobStore           = (*MemoryJobStore)(nil)
)

// MemoryEventRepo is an in-process job event log.
type MemoryEventRepo struct {
	mu       sync.RWMutex
	events   []*model.JobEvent
	versions map[string]int64
	seq      int64
}

// NewMemoryEventRepo creates an empty log.
func NewMemoryEventRepo() *MemoryEventRepo {
	return &MemoryEventRepo{versions: map[string]int64{}}
}

func (r *MemoryEventRepo) Append(_ context.Context, events ...*model.JobEvent) error {
	if err := validateAppend(events); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	jobID := events[0].JobID
	current := r.versions[jobID]
	if events[0].Version != current+1 {
		return versionConflict(jobID, current, events[0].Version)
	}
	for _, e := range events {
		r.seq++
		e.Seq = r.seq
		r.events = append(r.events, copyEvent(e))
	}
	r.versions[jobID] = events[len(events)-1].Version
	return nil
}

func (r *MemoryEventRepo) ListByJob(_ context.Context, jobID string) ([]*model.JobEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*model.JobEvent
	for _, e := range r.events {
		if e.JobID == jobID {
			out = append(out, copyEvent(e))
		}
	}
	return out, nil
}

func (r *MemoryEventRepo) ListAll(_ context.Context) ([]*model.JobEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*model.JobEvent, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, copyEvent(e))
	}
	return out, nil
}

func copyEvent(e *model.JobEvent) *model.JobEvent {
	c := *e
	c.Data = append([]byte(nil), e.Data...)
	return &c
}

// MemoryLedgerRepo is an in-process economy ledger.
type MemoryLedgerRepo struct {
	mu      sync.RWMutex
	entries []*model.EconomyEntry
	refs    map[string]struct{}
	seq     int64
}

// NewMemoryLedgerRepo creates an empty ledger.
func NewMemoryLedgerRepo() *MemoryLedgerRepo {
	return &MemoryLedgerRepo{refs: map[string]struct{}{}}
}

func (r *MemoryLedgerRepo) Append(_ context.Context, entry *model.EconomyEntry) (bool, error) {
	if err := validateEntry(entry); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry.RefKey != "" {
		if _, dup := r.refs[entry.RefKey]; dup {
			return false, nil
		}
		r.refs[entry.RefKey] = struct{}{}
	}
	r.seq++
	entry.Seq = r.seq
	c := *entry
	r.entries = append(r.entries, &c)
	return true, nil
}

func (r *MemoryLedgerRepo) Balance(_ context.Context, account string) (float64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return model.Balance(r.entries, account), nil
}

func (r *MemoryLedgerRepo) HasRef(_ context.Context, refKey string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.refs[refKey]
	return ok, nil
}

func (r *MemoryLedgerRepo) ListByAccount(_ context.Context, account string, limit int) ([]*model.EconomyEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*model.EconomyEntry
	for i := len(r.entries) - 1; i >= 0; i-- {
		e := r.entries[i]
		if e.ToID != account && e.FromID != account {
			continue
		}
		c := *e
		out = append(out, &c)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *MemoryLedgerRepo) ListAll(_ context.Context) ([]*model.EconomyEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*model.EconomyEntry, 0, len(r.entries))
	for _, e := range r.entries {
		c := *e
		out = append(out, &c)
	}
	return out, nil
}

// MemoryNoteRepo keeps operator notes in process memory.
type MemoryNoteRepo struct {
	mu    sync.RWMutex
	notes []*model.OperatorNote
}

// NewMemoryNoteRepo creates an empty note store.
func NewMemoryNoteRepo() *MemoryNoteRepo { return &MemoryNoteRepo{} }

func (r *MemoryNoteRepo) Create(_ context.Context, note *model.OperatorNote) error {
	if note == nil {
		return ErrNilNote
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *note
	r.notes = append(r.notes, &c)
	return nil
}

func (r *MemoryNoteRepo) List(_ context.Context, limit int) ([]*model.OperatorNote, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*model.OperatorNote
	for i := len(r.notes) - 1; i >= 0; i-- {
		c := *r.notes[i]
		out = append(out, &c)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// MemoryJobStore is the projected job read model. Jobs are cloned on the way in
// and out so callers never share state with the store.
type MemoryJobStore struct {
	mu   sync.RWMutex
	jobs map[string]*model.Job
}

// NewMemoryJobStore creates an empty read model.
func NewMemoryJobStore() *MemoryJobStore {
	return &MemoryJobStore{jobs: map[string]*model.Job{}}
}

func (s *MemoryJobStore) Get(_ context.Context, id string) (*model.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil, apperrors.NotFoundf("job %s not found", id)
	}
	return j.Clone(), nil
}

func (s *MemoryJobStore) Put(_ context.Context, job *model.Job) error {
	if job == nil || job.ID == "" {
		return ErrJobIDEmpty
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job.Clone()
	return nil
}

func (s *MemoryJobStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, id)
	return nil
}

// List returns matching jobs, newest first.
func (s *MemoryJobStore) List(_ context.Context, opts model.JobListOptions) ([]*model.Job, error) {
	s.mu.RLock()
	var matched []*model.Job
	for _, j := range s.jobs {
		if opts.Status != nil && j.Status != *opts.Status {
			continue
		}
		if opts.CreatedBy != "" && j.CreatedBy != opts.CreatedBy {
			continue
		}
		if opts.ClaimedBy != "" && j.ClaimedBy != opts.ClaimedBy {
			continue
		}
		matched = append(matched, j.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(a, b int) bool {
		if !matched[a].CreatedAt.Equal(matched[b].CreatedAt) {
			return matched[a].CreatedAt.After(matched[b].CreatedAt)
		}
		return matched[a].ID < matched[b].ID
	})
	if opts.Offset > 0 {
		if opts.Offset >= len(matched) {
			return nil, nil
		}
		matched = matched[opts.Offset:]
	}
	if opts.Limit > 0 && len(matched) > opts.Limit {
		matched = matched[:opts.Limit]
	}
	return matched, nil
}

// Since returns jobs created at or after t, oldest first.
func (s *MemoryJobStore) Since(_ context.Context, t time.Time) ([]*model.Job, error) {
	s.mu.RLock()
	var out []*model.Job
	for _, j := range s.jobs {
		if !j.CreatedAt.Before(t) {
			out = append(out, j.Clone())
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(a, b int) bool {
		if !out[a].CreatedAt.Equal(out[b].CreatedAt) {
			return out[a].CreatedAt.Before(out[b].CreatedAt)
		}
		return out[a].ID < out[b].ID
	})
	return out, nil
}

func (s *MemoryJobStore) Stats(_ context.Context) (model.JobStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := model.JobStats{}
	for _, j := range s.jobs {
		stats[j.Status]++
	}
	return stats, nil
}

// Reset replaces the whole read model.
func (s *MemoryJobStore) Reset(_ context.Context, jobs map[string]*model.Job) error {
	next := make(map[string]*model.Job, len(jobs))
	for id, j := range jobs {
		next[id] = j.Clone()
	}
	s.mu.Lock()
	s.jobs = next
	s.mu.Unlock()
	return nil
}
