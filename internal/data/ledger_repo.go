package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/target/workmarket/internal/core"
	"github.com/target/workmarket/internal/domain/model"
	apperrors "github.com/target/workmarket/internal/errors"
)

const selectEntryColumns = `seq, id, entry_type, amount::float8, from_id, to_id, memo, COALESCE(ref_key, ''), created_by, created_at`

// LedgerRepo is the Postgres economy ledger.
type LedgerRepo struct{ DB *sql.DB }

var _ core.LedgerRepository = (*LedgerRepo)(nil)

// NewLedgerRepo creates a new LedgerRepo.
func NewLedgerRepo(db *sql.DB) *LedgerRepo {
	return &LedgerRepo{DB: db}
}

func validateEntry(entry *model.EconomyEntry) error {
	if entry == nil {
		return ErrNilEntry
	}
	if !entry.Type.Valid() {
		return apperrors.ValidationField("entry_type", fmt.Sprintf("unknown entry type %q", entry.Type))
	}
	if entry.Amount < 0 {
		return apperrors.New(apperrors.ErrCodeInvalidAmount, "amount must not be negative")
	}
	return nil
}

// Append inserts entry. Entries with a ref key already present are skipped and
// reported with inserted=false.
func (r *LedgerRepo) Append(ctx context.Context, entry *model.EconomyEntry) (bool, error) {
	if err := validateEntry(entry); err != nil {
		return false, err
	}
	var ref sql.NullString
	if entry.RefKey != "" {
		ref = sql.NullString{String: entry.RefKey, Valid: true}
	}

	var seq int64
	err := r.DB.QueryRowContext(ctx, `
		INSERT INTO economy_entries (id, entry_type, amount, from_id, to_id, memo, ref_key, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (ref_key) WHERE ref_key IS NOT NULL DO NOTHING
		RETURNING seq
	`, entry.ID, string(entry.Type), entry.Amount, entry.FromID, entry.ToID, entry.Memo, ref, entry.CreatedBy, entry.CreatedAt,
	).Scan(&seq)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, apperrors.MapDBError(fmt.Errorf("append ledger entry: %w", err))
	}
	entry.Seq = seq
	return true, nil
}

// Balance derives the balance of account from its entries.
func (r *LedgerRepo) Balance(ctx context.Context, account string) (float64, error) {
	var bal float64
	err := r.DB.QueryRowContext(ctx, `
		SELECT COALESCE(
			SUM(CASE WHEN to_id = $1 THEN amount ELSE 0 END) -
			SUM(CASE WHEN from_id = $1 THEN amount ELSE 0 END), 0)::float8
		FROM economy_entries
		WHERE to_id = $1 OR from_id = $1
	`, account).Scan(&bal)
	if err != nil {
		return 0, apperrors.MapDBError(fmt.Errorf("ledger balance: %w", err))
	}
	return bal, nil
}

// HasRef reports whether an entry with refKey exists.
func (r *LedgerRepo) HasRef(ctx context.Context, refKey string) (bool, error) {
	var exists bool
	err := r.DB.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM economy_entries WHERE ref_key = $1)`, refKey).Scan(&exists)
	if err != nil {
		return false, apperrors.MapDBError(fmt.Errorf("ledger ref lookup: %w", err))
	}
	return exists, nil
}

// ListByAccount returns entries touching account, newest first. limit <= 0 means all.
func (r *LedgerRepo) ListByAccount(ctx context.Context, account string, limit int) ([]*model.EconomyEntry, error) {
	query := `SELECT ` + selectEntryColumns + ` FROM economy_entries WHERE to_id = $1 OR from_id = $1 ORDER BY seq DESC`
	args := []any{account}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.MapDBError(fmt.Errorf("list account entries: %w", err))
	}
	return scanEntries(rows)
}

// ListAll returns every entry in append order.
func (r *LedgerRepo) ListAll(ctx context.Context) ([]*model.EconomyEntry, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+selectEntryColumns+` FROM economy_entries ORDER BY seq ASC`)
	if err != nil {
		return nil, apperrors.MapDBError(fmt.Errorf("list ledger: %w", err))
	}
	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]*model.EconomyEntry, error) {
	defer rows.Close()
	var out []*model.EconomyEntry
	for rows.Next() {
		var (
			e   model.EconomyEntry
			typ string
		)
		if err := rows.Scan(&e.Seq, &e.ID, &typ, &e.Amount, &e.FromID, &e.ToID, &e.Memo, &e.RefKey, &e.CreatedBy, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		e.Type = model.EntryType(typ)
		e.CreatedAt = e.CreatedAt.UTC()
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger entries: %w", err)
	}
	return out, nil
}
