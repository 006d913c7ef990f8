package data

import "errors"

// Shared sentinel errors for data-layer repositories.
var (
	ErrNoEvents   = errors.New("append: no events")
	ErrNilEntry   = errors.New("ledger entry is nil")
	ErrNilNote    = errors.New("operator note is nil")
	ErrJobIDEmpty = errors.New("job id is required")
)
