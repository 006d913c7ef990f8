package data

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/target/workmarket/internal/core"
	"github.com/target/workmarket/internal/domain/model"
	apperrors "github.com/target/workmarket/internal/errors"
)

// NoteRepo stores operator notes in Postgres.
type NoteRepo struct{ DB *sql.DB }

var _ core.NoteRepository = (*NoteRepo)(nil)

// NewNoteRepo creates a new NoteRepo.
func NewNoteRepo(db *sql.DB) *NoteRepo {
	return &NoteRepo{DB: db}
}

// Create inserts note.
func (r *NoteRepo) Create(ctx context.Context, note *model.OperatorNote) error {
	if note == nil {
		return ErrNilNote
	}
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO operator_notes (id, kind, importance, job_id, root_job_id, message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, note.ID, note.Kind, string(note.Importance), note.JobID, note.RootJobID, note.Message, note.CreatedAt)
	if err != nil {
		return apperrors.MapDBError(fmt.Errorf("create operator note: %w", err))
	}
	return nil
}

// List returns the newest notes first. limit <= 0 means all.
func (r *NoteRepo) List(ctx context.Context, limit int) ([]*model.OperatorNote, error) {
	query := `SELECT id, kind, importance, job_id, root_job_id, message, created_at FROM operator_notes ORDER BY seq DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.MapDBError(fmt.Errorf("list operator notes: %w", err))
	}
	defer rows.Close()

	var out []*model.OperatorNote
	for rows.Next() {
		var (
			n          model.OperatorNote
			importance string
		)
		if err := rows.Scan(&n.ID, &n.Kind, &importance, &n.JobID, &n.RootJobID, &n.Message, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan operator note: %w", err)
		}
		n.Importance = model.Importance(importance)
		n.CreatedAt = n.CreatedAt.UTC()
		out = append(out, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate operator notes: %w", err)
	}
	return out, nil
}
