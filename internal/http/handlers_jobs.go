// Package httpx provides the HTTP API of the job marketplace.
package httpx

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/target/workmarket/internal/domain/model"
	"github.com/target/workmarket/internal/service"
)

// JobHandlers provides HTTP handlers for job intents and job reads.
type JobHandlers struct {
	Market *service.MarketService
	// Verifier is optional; without it the verify route reports 503.
	Verifier *service.VerificationService
	Logger   *slog.Logger
}

type claimBody struct {
	Agent string `json:"agent"`
}

type submitBody struct {
	Agent      string `json:"agent"`
	Submission string `json:"submission"`
}

type actorBody struct {
	By     string `json:"by"`
	Reason string `json:"reason,omitempty"`
}

// CreateJob handles POST /api/jobs.
func (h *JobHandlers) CreateJob(w http.ResponseWriter, r *http.Request) {
	var req model.CreateJobRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	job, err := h.Market.Create(r.Context(), req)
	if err != nil {
		WriteAppError(w, r, h.Logger, err, nil)
		return
	}
	WriteJSON(w, http.StatusCreated, job)
}

// ListJobs handles GET /api/jobs.
func (h *JobHandlers) ListJobs(w http.ResponseWriter, r *http.Request) {
	opts, err := parseJobListOptions(r)
	if err != nil {
		WriteAppError(w, r, h.Logger, err, nil)
		return
	}
	jobs, err := h.Market.List(r.Context(), opts)
	if err != nil {
		WriteAppError(w, r, h.Logger, err, nil)
		return
	}
	if jobs == nil {
		jobs = []*model.Job{}
	}
	WriteJSON(w, http.StatusOK, map[string]any{"jobs": jobs, "limit": opts.Limit, "offset": opts.Offset})
}

// GetJob handles GET /api/jobs/{id}.
func (h *JobHandlers) GetJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.Market.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteAppError(w, r, h.Logger, err, nil)
		return
	}
	WriteJSON(w, http.StatusOK, job)
}

// ListEvents handles GET /api/jobs/{id}/events.
func (h *JobHandlers) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.Market.Events(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteAppError(w, r, h.Logger, err, nil)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"events": events})
}

// UpdateJob handles PATCH /api/jobs/{id}.
func (h *JobHandlers) UpdateJob(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateJobRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	h.respondJob(w, r, http.StatusOK)(h.Market.Update(r.Context(), r.PathValue("id"), req))
}

// Claim handles POST /api/jobs/{id}/claim.
func (h *JobHandlers) Claim(w http.ResponseWriter, r *http.Request) {
	var body claimBody
	if !DecodeJSON(w, r, &body) {
		return
	}
	h.respondJob(w, r, http.StatusOK)(h.Market.Claim(r.Context(), r.PathValue("id"), body.Agent))
}

// Unclaim handles POST /api/jobs/{id}/unclaim.
func (h *JobHandlers) Unclaim(w http.ResponseWriter, r *http.Request) {
	var body actorBody
	if !DecodeJSON(w, r, &body) {
		return
	}
	h.respondJob(w, r, http.StatusOK)(h.Market.Unclaim(r.Context(), r.PathValue("id"), body.By, body.Reason))
}

// Submit handles POST /api/jobs/{id}/submit.
func (h *JobHandlers) Submit(w http.ResponseWriter, r *http.Request) {
	var body submitBody
	if !DecodeJSON(w, r, &body) {
		return
	}
	h.respondJob(w, r, http.StatusOK)(h.Market.Submit(r.Context(), r.PathValue("id"), body.Agent, body.Submission))
}

// Cancel handles POST /api/jobs/{id}/cancel. Only admins reach it; the
// authenticated principal is recorded as the actor.
func (h *JobHandlers) Cancel(w http.ResponseWriter, r *http.Request) {
	var body actorBody
	if !DecodeOptionalJSON(w, r, &body) {
		return
	}
	by := actorFromContext(r.Context(), body.By)
	h.respondJob(w, r, http.StatusOK)(h.Market.Cancel(r.Context(), r.PathValue("id"), by, body.Reason))
}

// Review handles POST /api/jobs/{id}/review.
func (h *JobHandlers) Review(w http.ResponseWriter, r *http.Request) {
	var req model.ReviewRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	res, err := h.Market.Review(r.Context(), r.PathValue("id"), req)
	h.respondReview(w, r, res, err)
}

// Verify handles POST /api/jobs/{id}/verify, running automatic verification now.
func (h *JobHandlers) Verify(w http.ResponseWriter, r *http.Request) {
	if h.Verifier == nil {
		WriteError(w, ErrorParams{
			Code:    http.StatusServiceUnavailable,
			ErrCode: "verifier_unavailable",
			Err:     errors.New("automatic verification is not enabled"),
		})
		return
	}
	res, err := h.Verifier.VerifyNow(r.Context(), r.PathValue("id"))
	h.respondReview(w, r, res, err)
}

// Stats handles GET /api/jobs/stats.
func (h *JobHandlers) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Market.Stats(r.Context())
	if err != nil {
		WriteAppError(w, r, h.Logger, err, nil)
		return
	}
	WriteJSON(w, http.StatusOK, stats)
}

// respondJob writes job on success or the error together with the job state
// the service returned alongside it.
func (h *JobHandlers) respondJob(w http.ResponseWriter, r *http.Request, status int) func(*model.Job, error) {
	return func(job *model.Job, err error) {
		if err != nil {
			WriteAppError(w, r, h.Logger, err, job)
			return
		}
		WriteJSON(w, status, job)
	}
}

func (h *JobHandlers) respondReview(w http.ResponseWriter, r *http.Request, res *service.ReviewResult, err error) {
	if err != nil {
		var job *model.Job
		if res != nil {
			job = res.Job
		}
		WriteAppError(w, r, h.Logger, err, job)
		return
	}
	WriteJSON(w, http.StatusOK, res)
}
