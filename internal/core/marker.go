// Package core defines the ports of the workmarket service and the small pieces of
// business logic that only depend on them.
package core

import (
	"context"
	"sync"
	"time"
)

// MarkStore keeps once-only marks outside the process so they survive restarts
// and are shared between replicas.
type MarkStore interface {
	// MarkNX sets key unless it exists and reports whether this call set it.
	// A ttl of zero keeps the mark forever.
	MarkNX(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Exists(ctx context.Context, key string) (bool, error)
	// Ping reports whether the store is reachable.
	Ping(ctx context.Context) error
}

// MarkerService records once-only facts such as "redo cap signalled for root X".
// Marks live in process memory and, when a store is configured, in the store.
type MarkerService struct {
	store  MarkStore
	prefix string
	ttl    time.Duration

	mu    sync.Mutex
	local map[string]struct{}
}

// MarkerServiceOptions bundles dependencies for NewMarkerService.
type MarkerServiceOptions struct {
	Store  MarkStore // optional
	Prefix string
	TTL    time.Duration
}

// NewMarkerService creates a new MarkerService.
func NewMarkerService(opts MarkerServiceOptions) *MarkerService {
	prefix := opts.Prefix
	if prefix == "" {
		prefix = "workmarket:mark:"
	}
	return &MarkerService{
		store:  opts.Store,
		prefix: prefix,
		ttl:    opts.TTL,
		local:  make(map[string]struct{}),
	}
}

// MarkOnce sets key and reports whether this call was the first to do so. When the
// store errors, the in-memory mark still holds so the caller is never asked twice
// within a process.
func (s *MarkerService) MarkOnce(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, seen := s.local[key]; seen {
		return false, nil
	}
	s.local[key] = struct{}{}

	if s.store == nil {
		return true, nil
	}
	set, err := s.store.MarkNX(ctx, s.prefix+key, s.ttl)
	if err != nil {
		return true, err
	}
	return set, nil
}

// Marked reports whether key has been marked.
func (s *MarkerService) Marked(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	_, seen := s.local[key]
	s.mu.Unlock()
	if seen || s.store == nil {
		return seen, nil
	}
	return s.store.Exists(ctx, s.prefix+key)
}
