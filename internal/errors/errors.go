// Package errors defines AppError, the error type that crosses layer
// boundaries in workmarket. Its Code is stable: HTTP clients, agents and the
// admin CLI branch on it, never on message text.
package errors

import (
	"errors"
	"fmt"
)

type ErrorCode string

// Generic codes.
const (
	ErrCodeNotFound    ErrorCode = "not_found"
	ErrCodeConflict    ErrorCode = "conflict"
	ErrCodeValidation  ErrorCode = "validation"
	ErrCodeForbidden   ErrorCode = "forbidden"
	ErrCodeUnavailable ErrorCode = "unavailable" // storage unreachable
	ErrCodeTimeout     ErrorCode = "timeout"
	ErrCodeCanceled    ErrorCode = "canceled"
	ErrCodeInternal    ErrorCode = "internal"
)

// Marketplace codes. Each names the rule an intent broke.
const (
	ErrCodeInvalidJob               ErrorCode = "invalid_job"
	ErrCodeDuplicateJob             ErrorCode = "duplicate_job"
	ErrCodeNotClaimable             ErrorCode = "not_claimable"
	ErrCodeAlreadyClaimed           ErrorCode = "already_claimed"
	ErrCodeRaceConditionClaimFailed ErrorCode = "race_condition_claim_failed"
	ErrCodeParentNotApproved        ErrorCode = "parent_not_approved"
	ErrCodeNotSubmittable           ErrorCode = "not_submittable"
	ErrCodeNotOwner                 ErrorCode = "not_owner"
	ErrCodeInvalidSubmission        ErrorCode = "invalid_submission"
	ErrCodeNotReviewable            ErrorCode = "not_reviewable"
	ErrCodeNotCancellable           ErrorCode = "not_cancellable"
	ErrCodeNotSubmitted             ErrorCode = "not_submitted"
	ErrCodeNotUnclaimable           ErrorCode = "not_unclaimable"
	ErrCodeNotUpdatable             ErrorCode = "not_updatable"
	ErrCodeNotPurgeable             ErrorCode = "not_purgeable"
	ErrCodeInsufficientFunds        ErrorCode = "insufficient_funds"
	ErrCodeInvalidAmount            ErrorCode = "invalid_amount"

	// ErrCodeVersionConflict means an append lost the compare-and-swap on the
	// job's event version. The caller should reload and retry.
	ErrCodeVersionConflict ErrorCode = "version_conflict"
)

// AppError carries a Code, a message safe to show callers, the offending
// input Field when there is one, and an optional Cause for errors.Is/As.
type AppError struct {
	Code    ErrorCode
	Message string
	Cause   error
	Field   string
}

func (e *AppError) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return e.Message + ": " + e.Cause.Error()
}

func (e *AppError) Unwrap() error { return e.Cause }

func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

func Newf(code ErrorCode, format string, args ...any) *AppError {
	return New(code, fmt.Sprintf(format, args...))
}

func NotFound(message string) *AppError { return New(ErrCodeNotFound, message) }

func NotFoundf(format string, args ...any) *AppError {
	return Newf(ErrCodeNotFound, format, args...)
}

func Conflict(message string) *AppError   { return New(ErrCodeConflict, message) }
func Validation(message string) *AppError { return New(ErrCodeValidation, message) }
func Forbidden(message string) *AppError  { return New(ErrCodeForbidden, message) }
func Internal(message string) *AppError   { return New(ErrCodeInternal, message) }

// ValidationField reports bad input in field.
func ValidationField(field, message string) *AppError {
	return &AppError{Code: ErrCodeValidation, Message: message, Field: field}
}

// InvalidJob reports a job request rejected at post time.
func InvalidJob(field, message string) *AppError {
	return &AppError{Code: ErrCodeInvalidJob, Message: message, Field: field}
}

// Wrap attaches code and message to err. A nil err stays nil.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{Code: code, Message: message, Cause: err}
}

func Wrapf(err error, code ErrorCode, format string, args ...any) *AppError {
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

// Is reports whether any AppError in err's chain carries code.
func Is(err error, code ErrorCode) bool {
	return GetCode(err) == code && code != ""
}

func IsNotFound(err error) bool        { return Is(err, ErrCodeNotFound) }
func IsValidation(err error) bool      { return Is(err, ErrCodeValidation) }
func IsVersionConflict(err error) bool { return Is(err, ErrCodeVersionConflict) }

// GetCode returns the code of the first AppError in err's chain, or "".
func GetCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// GetField returns the Field of the first AppError in err's chain, or "".
func GetField(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Field
	}
	return ""
}
