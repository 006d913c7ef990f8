package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/sourcegraph/conc"
)

const (
	healthResponse = `{"status":"ok"}`
	readyTimeout   = 3 * time.Second
)

// ReadinessCheck reports whether one dependency (database, cache) is reachable.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type readiness struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// healthHandler is the liveness probe. It never touches dependencies.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	_, _ = w.Write([]byte(healthResponse))
}

// readyHandler runs every check concurrently and answers 503 if any fails.
// Failure details stay in the log; the body only names the failing check.
func readyHandler(checks []ReadinessCheck, logger *slog.Logger) http.HandlerFunc {
	checks = slices.DeleteFunc(slices.Clone(checks), func(c ReadinessCheck) bool { return c.Check == nil })
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		var (
			mu  sync.Mutex
			out = readiness{Status: "ok", Checks: make(map[string]string, len(checks))}
			wg  conc.WaitGroup
		)
		for _, c := range checks {
			wg.Go(func() {
				state := "ok"
				if err := c.Check(ctx); err != nil {
					state = "unavailable"
					logger.WarnContext(ctx, "readiness check failed", "check", c.Name, "error", err)
				}
				mu.Lock()
				out.Checks[c.Name] = state
				if state != "ok" {
					out.Status = "unavailable"
				}
				mu.Unlock()
			})
		}
		wg.Wait()

		code := http.StatusOK
		if out.Status != "ok" {
			code = http.StatusServiceUnavailable
		}
		WriteJSON(w, code, out)
	}
}
