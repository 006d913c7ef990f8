package httpx

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/target/workmarket/internal/core"
	"github.com/target/workmarket/internal/domain/model"
	apperrors "github.com/target/workmarket/internal/errors"
	"github.com/target/workmarket/internal/service"
)

// AdminHandlers serves operator-only routes. Every route is mounted behind
// RequireRole(admin) so the acting identity comes from the bearer principal.
type AdminHandlers struct {
	Market *service.MarketService
	Ledger *service.LedgerService
	Redo   *service.RedoEscalator
	Notes  core.NoteRepository
	Logger *slog.Logger
}

type purgeBody struct {
	OlderThan string `json:"older_than"`
	Reason    string `json:"reason,omitempty"`
}

type purgeResponse struct {
	Purged int64 `json:"purged"`
}

type reasonBody struct {
	Reason string `json:"reason,omitempty"`
}

// Purge handles POST /api/admin/purge, removing terminal jobs older than a duration.
func (h *AdminHandlers) Purge(w http.ResponseWriter, r *http.Request) {
	var body purgeBody
	if !DecodeJSON(w, r, &body) {
		return
	}
	age, err := time.ParseDuration(body.OlderThan)
	if err != nil || age <= 0 {
		WriteAppError(w, r, h.Logger, apperrors.ValidationField("older_than", "older_than must be a positive duration"), nil)
		return
	}
	n, err := h.Market.Purge(r.Context(), service.PurgeRequest{
		By:        actorFromContext(r.Context(), "admin"),
		Reason:    body.Reason,
		OlderThan: age,
	})
	if err != nil {
		WriteAppError(w, r, h.Logger, err, nil)
		return
	}
	WriteJSON(w, http.StatusOK, purgeResponse{Purged: n})
}

// PurgeJob handles DELETE /api/admin/jobs/{id}.
func (h *AdminHandlers) PurgeJob(w http.ResponseWriter, r *http.Request) {
	var body reasonBody
	if !DecodeOptionalJSON(w, r, &body) {
		return
	}
	id := r.PathValue("id")
	if err := h.Market.PurgeJob(r.Context(), id, actorFromContext(r.Context(), "admin"), body.Reason); err != nil {
		WriteAppError(w, r, h.Logger, err, nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Resettle handles POST /api/admin/jobs/{id}/resettle.
func (h *AdminHandlers) Resettle(w http.ResponseWriter, r *http.Request) {
	st, err := h.Market.Resettle(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteAppError(w, r, h.Logger, err, nil)
		return
	}
	WriteJSON(w, http.StatusOK, st)
}

type replayResponse struct {
	Jobs int `json:"jobs"`
}

// Replay handles POST /api/admin/replay, rebuilding the read model from the durable log.
func (h *AdminHandlers) Replay(w http.ResponseWriter, r *http.Request) {
	n, err := h.Market.Replay(r.Context())
	if err != nil {
		WriteAppError(w, r, h.Logger, err, nil)
		return
	}
	WriteJSON(w, http.StatusOK, replayResponse{Jobs: n})
}

// VerifyReplay handles GET /api/admin/replay/verify.
func (h *AdminHandlers) VerifyReplay(w http.ResponseWriter, r *http.Request) {
	report, err := h.Market.VerifyReplay(r.Context())
	if err != nil {
		WriteAppError(w, r, h.Logger, err, nil)
		return
	}
	WriteJSON(w, http.StatusOK, report)
}

// RedoScan handles POST /api/admin/redo/scan, running one escalation pass now.
func (h *AdminHandlers) RedoScan(w http.ResponseWriter, r *http.Request) {
	if h.Redo == nil {
		WriteError(w, ErrorParams{
			Code:    http.StatusServiceUnavailable,
			ErrCode: "redo_unavailable",
			Err:     errors.New("redo escalation is not enabled"),
		})
		return
	}
	res, err := h.Redo.Scan(r.Context())
	if err != nil {
		WriteAppError(w, r, h.Logger, err, nil)
		return
	}
	WriteJSON(w, http.StatusOK, res)
}

// Award handles POST /api/admin/awards, crediting an account from the treasury.
func (h *AdminHandlers) Award(w http.ResponseWriter, r *http.Request) {
	var req model.AwardRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	req.By = actorFromContext(r.Context(), req.By)
	entry, err := h.Ledger.Award(r.Context(), req)
	if err != nil {
		WriteAppError(w, r, h.Logger, err, nil)
		return
	}
	WriteJSON(w, http.StatusCreated, entry)
}

// ListNotes handles GET /api/admin/notes.
func (h *AdminHandlers) ListNotes(w http.ResponseWriter, r *http.Request) {
	if h.Notes == nil {
		WriteJSON(w, http.StatusOK, map[string]any{"notes": []*model.OperatorNote{}})
		return
	}
	limit, _ := ParseLimitOffset(r, defaultListLimit, maxListLimit)
	notes, err := h.Notes.List(r.Context(), limit)
	if err != nil {
		WriteAppError(w, r, h.Logger, err, nil)
		return
	}
	if notes == nil {
		notes = []*model.OperatorNote{}
	}
	WriteJSON(w, http.StatusOK, map[string]any{"notes": notes})
}
