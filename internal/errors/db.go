package errors

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Constraint names from the embedded migrations that carry domain meaning.
const (
	versionConstraint = "job_events_job_id_version_key"
	refKeyConstraint  = "economy_entries_ref_key"
)

// reKeyField extracts the column list from "Key (field)=(value) already exists.".
var reKeyField = regexp.MustCompile(`Key \(([^)]+)\)=`)

// MapDBError turns driver and postgres errors into AppErrors:
//   - context deadline or cancellation: Timeout or Canceled
//   - no rows: NotFound
//   - losing the (job_id, version) unique key: VersionConflict
//   - other unique violations: Conflict
//   - check and not-null violations: Validation
//   - serialization failures and deadlocks: VersionConflict, so callers retry
//   - connection failures: Unavailable
//
// Other errors are returned unchanged.
func MapDBError(err error) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return err
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return Wrap(err, ErrCodeTimeout, "storage request timed out")
	case errors.Is(err, context.Canceled):
		return Wrap(err, ErrCodeCanceled, "storage request was canceled")
	case errors.Is(err, pgx.ErrNoRows), errors.Is(err, sql.ErrNoRows):
		return Wrap(err, ErrCodeNotFound, "record not found")
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return mapPgError(pgErr)
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) || errors.Is(err, sql.ErrConnDone) {
		return Wrap(err, ErrCodeUnavailable, "storage is unavailable")
	}
	return err
}

func mapPgError(pgErr *pgconn.PgError) error {
	switch {
	case pgErr.Code == pgerrcode.UniqueViolation:
		return mapUniqueViolation(pgErr)
	case pgErr.Code == pgerrcode.CheckViolation:
		return &AppError{
			Code:    ErrCodeValidation,
			Message: "value rejected by storage",
			Field:   fieldFromConstraint(pgErr.TableName, pgErr.ConstraintName),
			Cause:   pgErr,
		}
	case pgErr.Code == pgerrcode.NotNullViolation:
		return &AppError{Code: ErrCodeValidation, Message: "required value missing", Field: pgErr.ColumnName, Cause: pgErr}
	case pgErr.Code == pgerrcode.SerializationFailure, pgErr.Code == pgerrcode.DeadlockDetected:
		return &AppError{Code: ErrCodeVersionConflict, Message: "concurrent update, retry", Cause: pgErr}
	case pgerrcode.IsConnectionException(pgErr.Code),
		pgerrcode.IsInsufficientResources(pgErr.Code),
		pgErr.Code == pgerrcode.AdminShutdown,
		pgErr.Code == pgerrcode.CannotConnectNow:
		return &AppError{Code: ErrCodeUnavailable, Message: "storage is unavailable", Cause: pgErr}
	default:
		return &AppError{Code: ErrCodeInternal, Message: "storage error", Cause: pgErr}
	}
}

func mapUniqueViolation(pgErr *pgconn.PgError) error {
	switch pgErr.ConstraintName {
	case versionConstraint:
		return &AppError{Code: ErrCodeVersionConflict, Message: "job was modified concurrently", Field: "version", Cause: pgErr}
	case refKeyConstraint:
		return &AppError{Code: ErrCodeConflict, Message: "ledger entry already recorded", Field: "ref_key", Cause: pgErr}
	}

	field := pgErr.ColumnName
	if field == "" {
		if m := reKeyField.FindStringSubmatch(pgErr.Detail); len(m) == 2 {
			field = m[1]
		}
	}
	return &AppError{Code: ErrCodeConflict, Message: "record already exists", Field: field, Cause: pgErr}
}

// fieldFromConstraint derives the column from "<table>_<column>_check".
func fieldFromConstraint(table, constraint string) string {
	name := strings.TrimSuffix(constraint, "_check")
	if name == constraint {
		return ""
	}
	if table != "" {
		name = strings.TrimPrefix(name, table+"_")
	}
	return name
}
