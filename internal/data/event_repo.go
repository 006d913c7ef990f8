// Package data provides the persistence layer of the workmarket service: Postgres
// repositories for the job and economy logs and their in-memory counterparts.
package data

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/target/workmarket/internal/core"
	"github.com/target/workmarket/internal/data/pgxutil"
	"github.com/target/workmarket/internal/domain/model"
	apperrors "github.com/target/workmarket/internal/errors"
)

const selectEventColumns = `seq, id, version, event_type, job_id, actor, data, created_at`

// EventRepo is the Postgres job event log.
type EventRepo struct{ DB *sql.DB }

var _ core.JobEventRepository = (*EventRepo)(nil)

// NewEventRepo creates a new EventRepo.
func NewEventRepo(db *sql.DB) *EventRepo {
	return &EventRepo{DB: db}
}

// validateAppend checks that events target one job with consecutive versions.
func validateAppend(events []*model.JobEvent) error {
	if len(events) == 0 {
		return ErrNoEvents
	}
	first := events[0]
	for i, e := range events {
		if e == nil {
			return fmt.Errorf("append: event %d is nil", i)
		}
		if e.JobID != first.JobID {
			return fmt.Errorf("append: events span jobs %s and %s", first.JobID, e.JobID)
		}
		if e.Version != first.Version+int64(i) {
			return fmt.Errorf("append: event %d has version %d, want %d", i, e.Version, first.Version+int64(i))
		}
	}
	return nil
}

func versionConflict(jobID string, current, attempted int64) error {
	return apperrors.Newf(apperrors.ErrCodeVersionConflict,
		"job %s is at version %d, cannot append version %d", jobID, current, attempted)
}

// Append writes events in one transaction. The stored version is re-read inside the
// transaction; concurrent writers that pass that check still collide on the
// (job_id, version) unique key, which maps to a version conflict.
func (r *EventRepo) Append(ctx context.Context, events ...*model.JobEvent) error {
	if err := validateAppend(events); err != nil {
		return err
	}
	jobID := events[0].JobID
	seqs := make([]int64, len(events))

	err := pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{
		Opts: &sql.TxOptions{Isolation: sql.LevelReadCommitted},
		Fn: func(tx pgx.Tx) error {
			var current int64
			if err := tx.QueryRow(ctx,
				`SELECT COALESCE(MAX(version), 0) FROM job_events WHERE job_id = $1`, jobID,
			).Scan(&current); err != nil {
				return fmt.Errorf("read job version: %w", err)
			}
			if events[0].Version != current+1 {
				return versionConflict(jobID, current, events[0].Version)
			}

			batch := &pgx.Batch{}
			for _, e := range events {
				batch.Queue(`
					INSERT INTO job_events (id, job_id, version, event_type, actor, data, created_at)
					VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7)
					RETURNING seq
				`, e.ID, e.JobID, e.Version, string(e.Type), e.Actor, string(jsonOrEmpty(e.Data)), e.CreatedAt)
			}
			br := tx.SendBatch(ctx, batch)
			for i := range events {
				if err := br.QueryRow().Scan(&seqs[i]); err != nil {
					_ = br.Close()
					return fmt.Errorf("insert event %d: %w", i, err)
				}
			}
			if err := br.Close(); err != nil {
				return fmt.Errorf("batch close: %w", err)
			}
			return nil
		},
	})
	if err != nil {
		return apperrors.MapDBError(err)
	}
	for i, e := range events {
		e.Seq = seqs[i]
	}
	return nil
}

// ListByJob returns a job's events in version order.
func (r *EventRepo) ListByJob(ctx context.Context, jobID string) ([]*model.JobEvent, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+selectEventColumns+` FROM job_events WHERE job_id = $1 ORDER BY version ASC`, jobID)
	if err != nil {
		return nil, apperrors.MapDBError(fmt.Errorf("list job events: %w", err))
	}
	return scanEvents(rows)
}

// ListAll returns the whole log in append order.
func (r *EventRepo) ListAll(ctx context.Context) ([]*model.JobEvent, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+selectEventColumns+` FROM job_events ORDER BY seq ASC`)
	if err != nil {
		return nil, apperrors.MapDBError(fmt.Errorf("list all job events: %w", err))
	}
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]*model.JobEvent, error) {
	defer rows.Close()
	var out []*model.JobEvent
	for rows.Next() {
		var (
			e    model.JobEvent
			typ  string
			data []byte
		)
		if err := rows.Scan(&e.Seq, &e.ID, &e.Version, &typ, &e.JobID, &e.Actor, &data, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan job event: %w", err)
		}
		e.Type = model.EventType(typ)
		e.Data = append([]byte(nil), data...)
		e.CreatedAt = e.CreatedAt.UTC()
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate job events: %w", err)
	}
	return out, nil
}

func jsonOrEmpty(b []byte) []byte {
	if len(b) == 0 {
		return []byte("{}")
	}
	return b
}
