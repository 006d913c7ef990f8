package model

// JobListOptions groups parameters for listing jobs from the read model.
type JobListOptions struct {
	Status    *JobStatus // Optional filter by status
	CreatedBy string     // Optional filter by creator
	ClaimedBy string     // Optional filter by claimant
	Limit     int        // Pagination limit (0 means no limit)
	Offset    int        // Pagination offset
}

// JobStats counts jobs per status.
type JobStats map[JobStatus]int
