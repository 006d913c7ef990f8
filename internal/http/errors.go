package httpx

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/target/workmarket/internal/domain/model"
	apperrors "github.com/target/workmarket/internal/errors"
)

// StatusForCode maps a stable error code to an HTTP status.
func StatusForCode(code apperrors.ErrorCode) int {
	switch code {
	case apperrors.ErrCodeNotFound:
		return http.StatusNotFound
	case apperrors.ErrCodeValidation:
		return http.StatusBadRequest
	case apperrors.ErrCodeInvalidJob,
		apperrors.ErrCodeInvalidSubmission,
		apperrors.ErrCodeInvalidAmount:
		return http.StatusUnprocessableEntity
	case apperrors.ErrCodeInsufficientFunds:
		return http.StatusPaymentRequired
	case apperrors.ErrCodeNotOwner, apperrors.ErrCodeForbidden:
		return http.StatusForbidden
	case apperrors.ErrCodeConflict,
		apperrors.ErrCodeVersionConflict,
		apperrors.ErrCodeDuplicateJob,
		apperrors.ErrCodeNotClaimable,
		apperrors.ErrCodeAlreadyClaimed,
		apperrors.ErrCodeRaceConditionClaimFailed,
		apperrors.ErrCodeParentNotApproved,
		apperrors.ErrCodeNotSubmittable,
		apperrors.ErrCodeNotReviewable,
		apperrors.ErrCodeNotCancellable,
		apperrors.ErrCodeNotSubmitted,
		apperrors.ErrCodeNotUnclaimable,
		apperrors.ErrCodeNotUpdatable,
		apperrors.ErrCodeNotPurgeable:
		return http.StatusConflict
	case apperrors.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case apperrors.ErrCodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// WriteAppError renders err with its stable code. job, when non-nil, is the
// current state of the targeted job so callers can see why the intent failed.
// Internal errors are logged and reported without their cause.
func WriteAppError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error, job *model.Job) {
	code := apperrors.GetCode(err)
	if code == "" {
		code = apperrors.ErrCodeInternal
	}
	status := StatusForCode(code)

	p := ErrorParams{Code: status, ErrCode: string(code), Err: err, Field: apperrors.GetField(err)}
	if job != nil {
		p.Job = job
	}
	if status >= http.StatusInternalServerError {
		if logger == nil {
			logger = slog.Default()
		}
		logger.ErrorContext(r.Context(), "request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Any("error", err),
		)
		p.Err = errors.New(http.StatusText(status))
	}
	WriteError(w, p)
}
