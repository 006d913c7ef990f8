package httpx

import (
	"log/slog"
	"net/http"

	"github.com/target/workmarket/internal/core"
	domainauth "github.com/target/workmarket/internal/domain/auth"
	"github.com/target/workmarket/internal/service"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Market *service.MarketService
	Ledger *service.LedgerService
	// Optional: on-demand automatic verification.
	Verifier *service.VerificationService
	// Optional: on-demand redo escalation passes.
	Redo  *service.RedoEscalator
	Notes core.NoteRepository
	// Auth guards /api/admin. Admin routes answer 503 when it is nil.
	Auth Authenticator
	// Readiness backs GET /readyz. With no checks it always answers 200.
	Readiness    []ReadinessCheck
	MaxBodyBytes int64
	Logger       *slog.Logger
}

// NewRouter creates the API router with recovery, request logging and body limits applied.
func NewRouter(services RouterServices) http.Handler {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", healthHandler)
	mux.HandleFunc("HEAD /healthz", healthHandler)
	mux.HandleFunc("GET /readyz", readyHandler(services.Readiness, logger))

	registerJobRoutes(mux, services.Auth, &JobHandlers{Market: services.Market, Verifier: services.Verifier, Logger: logger})
	registerAccountRoutes(mux, &AccountHandlers{Ledger: services.Ledger, Market: services.Market, Logger: logger})
	registerAdminRoutes(mux, services.Auth, &AdminHandlers{
		Market: services.Market,
		Ledger: services.Ledger,
		Redo:   services.Redo,
		Notes:  services.Notes,
		Logger: logger,
	})

	return Chain(mux, Recover(logger), Logging(logger), LimitBody(services.MaxBodyBytes))
}

func registerJobRoutes(mux *http.ServeMux, auth Authenticator, h *JobHandlers) {
	mux.HandleFunc("POST /api/jobs", h.CreateJob)
	mux.HandleFunc("GET /api/jobs", h.ListJobs)
	mux.HandleFunc("GET /api/jobs/stats", h.Stats)
	mux.HandleFunc("GET /api/jobs/{id}", h.GetJob)
	mux.HandleFunc("PATCH /api/jobs/{id}", h.UpdateJob)
	mux.HandleFunc("GET /api/jobs/{id}/events", h.ListEvents)
	mux.HandleFunc("POST /api/jobs/{id}/claim", h.Claim)
	mux.HandleFunc("POST /api/jobs/{id}/unclaim", h.Unclaim)
	mux.HandleFunc("POST /api/jobs/{id}/submit", h.Submit)
	mux.HandleFunc("POST /api/jobs/{id}/review", h.Review)
	mux.Handle("POST /api/jobs/{id}/cancel", RequireRole(auth, domainauth.RoleAdmin)(http.HandlerFunc(h.Cancel)))
	mux.HandleFunc("POST /api/jobs/{id}/verify", h.Verify)
}

func registerAccountRoutes(mux *http.ServeMux, h *AccountHandlers) {
	mux.HandleFunc("GET /api/accounts/{id}/balance", h.Balance)
	mux.HandleFunc("GET /api/accounts/{id}/entries", h.Entries)
	mux.HandleFunc("POST /api/accounts/transfers", h.Transfer)
	mux.HandleFunc("GET /api/economy", h.Economy)
	mux.HandleFunc("GET /api/economy/entries", h.AllEntries)
}

func registerAdminRoutes(mux *http.ServeMux, auth Authenticator, h *AdminHandlers) {
	admin := RequireRole(auth, domainauth.RoleAdmin)
	handle := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, admin(fn))
	}

	handle("POST /api/admin/purge", h.Purge)
	handle("DELETE /api/admin/jobs/{id}", h.PurgeJob)
	handle("POST /api/admin/jobs/{id}/resettle", h.Resettle)
	handle("POST /api/admin/replay", h.Replay)
	handle("GET /api/admin/replay/verify", h.VerifyReplay)
	handle("POST /api/admin/redo/scan", h.RedoScan)
	handle("POST /api/admin/awards", h.Award)
	handle("GET /api/admin/notes", h.ListNotes)
}
