package httpx

import (
	"log/slog"
	"net/http"

	"github.com/target/workmarket/internal/domain/model"
	"github.com/target/workmarket/internal/service"
)

const defaultEntriesLimit = 100

// AccountHandlers serves balances, ledger entries and voluntary transfers.
type AccountHandlers struct {
	Ledger *service.LedgerService
	Market *service.MarketService
	Logger *slog.Logger
}

type balanceResponse struct {
	Account string  `json:"account"`
	Balance float64 `json:"balance"`
}

// Balance handles GET /api/accounts/{id}/balance.
func (h *AccountHandlers) Balance(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	bal, err := h.Ledger.Balance(r.Context(), id)
	if err != nil {
		WriteAppError(w, r, h.Logger, err, nil)
		return
	}
	WriteJSON(w, http.StatusOK, balanceResponse{Account: id, Balance: bal})
}

// Entries handles GET /api/accounts/{id}/entries.
func (h *AccountHandlers) Entries(w http.ResponseWriter, r *http.Request) {
	limit, _ := ParseLimitOffset(r, defaultEntriesLimit, maxListLimit)
	entries, err := h.Ledger.Entries(r.Context(), r.PathValue("id"), limit)
	if err != nil {
		WriteAppError(w, r, h.Logger, err, nil)
		return
	}
	if entries == nil {
		entries = []*model.EconomyEntry{}
	}
	WriteJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

// Transfer handles POST /api/accounts/transfers.
func (h *AccountHandlers) Transfer(w http.ResponseWriter, r *http.Request) {
	var req model.TransferRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	entry, err := h.Ledger.Transfer(r.Context(), req)
	if err != nil {
		WriteAppError(w, r, h.Logger, err, nil)
		return
	}
	WriteJSON(w, http.StatusCreated, entry)
}

type economyResponse struct {
	Treasury        string         `json:"treasury"`
	TreasuryBalance float64        `json:"treasury_balance"`
	Jobs            model.JobStats `json:"jobs"`
}

// Economy handles GET /api/economy with a treasury and marketplace summary.
func (h *AccountHandlers) Economy(w http.ResponseWriter, r *http.Request) {
	treasury := h.Ledger.Treasury()
	bal, err := h.Ledger.Balance(r.Context(), treasury)
	if err != nil {
		WriteAppError(w, r, h.Logger, err, nil)
		return
	}
	resp := economyResponse{Treasury: treasury, TreasuryBalance: bal, Jobs: model.JobStats{}}
	if h.Market != nil {
		stats, err := h.Market.Stats(r.Context())
		if err != nil {
			WriteAppError(w, r, h.Logger, err, nil)
			return
		}
		resp.Jobs = stats
	}
	WriteJSON(w, http.StatusOK, resp)
}

// AllEntries handles GET /api/economy/entries, the most recent ledger lines across all accounts.
func (h *AccountHandlers) AllEntries(w http.ResponseWriter, r *http.Request) {
	limit, offset := ParseLimitOffset(r, defaultEntriesLimit, maxListLimit)
	all, err := h.Ledger.All(r.Context())
	if err != nil {
		WriteAppError(w, r, h.Logger, err, nil)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"entries": page(all, limit, offset)})
}

// page returns the newest-first window of entries.
func page(entries []*model.EconomyEntry, limit, offset int) []*model.EconomyEntry {
	out := make([]*model.EconomyEntry, 0, limit)
	for i := len(entries) - 1 - offset; i >= 0 && len(out) < limit; i-- {
		out = append(out, entries[i])
	}
	return out
}
