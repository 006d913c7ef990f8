package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/workmarket/internal/adapters/authroles"
	"github.com/target/workmarket/internal/data"
	"github.com/target/workmarket/internal/domain/dedup"
	domainjob "github.com/target/workmarket/internal/domain/job"
	"github.com/target/workmarket/internal/domain/model"
	mockauth "github.com/target/workmarket/internal/mocks/auth"
	"github.com/target/workmarket/internal/service"
	"github.com/target/workmarket/internal/testutil"
)

const (
	adminToken = "admin-token"
	agentToken = "agent-token"
)

type apiHarness struct {
	handler http.Handler
	market  *service.MarketService
	ledger  *service.LedgerService
	notes   *data.MemoryNoteRepo
	clock   *testutil.TestTimeProvider
}

func newAPIHarness(t *testing.T) *apiHarness {
	t.Helper()
	clock := testutil.NewTestTimeProvider(testutil.TestTime())
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	ledger, err := service.NewLedgerService(service.LedgerServiceOptions{
		Repo:          data.NewMemoryLedgerRepo(),
		GenesisAmount: 50,
		Now:           clock.Now,
	})
	require.NoError(t, err)

	stale, err := domainjob.NewStalePolicy(time.Hour)
	require.NoError(t, err)

	market, err := service.NewMarketService(service.MarketServiceOptions{
		Events:      data.NewMemoryEventRepo(),
		Store:       data.NewMemoryJobStore(),
		Ledger:      ledger,
		Guard:       dedup.NewGuard(dedup.Options{Window: 24 * time.Hour}),
		StalePolicy: stale,
		Now:         clock.Now,
	})
	require.NoError(t, err)

	auth := service.MustNewAuthService(service.AuthServiceOptions{
		Verifier: mockauth.NewStaticTokenVerifier().
			Add(adminToken, "ops", "admins").
			Add(agentToken, "agent-7", "agents"),
		Roles: authroles.StaticRoleMapper{AdminGroup: "admins", AgentGroup: "agents"},
	})

	notes := data.NewMemoryNoteRepo()
	return &apiHarness{
		handler: NewRouter(RouterServices{
			Market:       market,
			Ledger:       ledger,
			Notes:        notes,
			Auth:         auth,
			MaxBodyBytes: 1 << 20,
			Logger:       logger,
		}),
		market: market,
		ledger: ledger,
		notes:  notes,
		clock:  clock,
	}
}

func (h *apiHarness) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), "body: %s", rec.Body.String())
	return out
}

func (h *apiHarness) createJob(t *testing.T, req *model.CreateJobRequest) *model.Job {
	t.Helper()
	rec := h.do(t, http.MethodPost, "/api/jobs", req, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[*model.Job](t, rec)
}

func TestRouter_Healthz(t *testing.T) {
	h := newAPIHarness(t)

	rec := h.do(t, http.MethodGet, "/healthz", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, healthResponse, rec.Body.String())

	rec = h.do(t, http.MethodHead, "/healthz", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, rec.Body.Len())
}

func TestRouter_JobLifecycle(t *testing.T) {
	h := newAPIHarness(t)
	job := h.createJob(t, testutil.NewJobRequest().Unique().Build())
	assert.Equal(t, model.JobStatusOpen, job.Status)

	rec := h.do(t, http.MethodPost, "/api/jobs/"+job.ID+"/claim", claimBody{Agent: "agent-7"}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, model.JobStatusClaimed, decode[*model.Job](t, rec).Status)

	rec = h.do(t, http.MethodPost, "/api/jobs/"+job.ID+"/submit",
		submitBody{Agent: "agent-7", Submission: "cost drivers: freight, labor, energy"}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, model.JobStatusSubmitted, decode[*model.Job](t, rec).Status)

	rec = h.do(t, http.MethodPost, "/api/jobs/"+job.ID+"/review",
		model.ReviewRequest{Approved: true, By: job.CreatedBy}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[service.ReviewResult](t, rec)
	require.NotNil(t, res.Job)
	assert.Equal(t, model.JobStatusApproved, res.Job.Status)
	assert.NotNil(t, res.Settlement)

	rec = h.do(t, http.MethodGet, "/api/jobs/"+job.ID+"/events", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	events := decode[map[string][]*model.JobEvent](t, rec)["events"]
	assert.Len(t, events, 4)

	rec = h.do(t, http.MethodGet, "/api/jobs?status=approved", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Jobs []*model.Job `json:"jobs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Jobs, 1)
	assert.Equal(t, job.ID, list.Jobs[0].ID)
}

func TestRouter_IntentErrors(t *testing.T) {
	h := newAPIHarness(t)
	job := h.createJob(t, testutil.NewJobRequest().Unique().Build())
	_, err := h.market.Claim(context.Background(), job.ID, "agent-1")
	require.NoError(t, err)

	tests := []struct {
		name    string
		method  string
		path    string
		body    any
		status  int
		code    string
		withJob bool
	}{
		{
			name:   "unknown job",
			method: http.MethodGet,
			path:   "/api/jobs/missing",
			status: http.StatusNotFound,
			code:   "not_found",
		},
		{
			name:    "already claimed carries current state",
			method:  http.MethodPost,
			path:    "/api/jobs/" + job.ID + "/claim",
			body:    claimBody{Agent: "agent-2"},
			status:  http.StatusConflict,
			code:    "already_claimed",
			withJob: true,
		},
		{
			name:    "submit by non-owner",
			method:  http.MethodPost,
			path:    "/api/jobs/" + job.ID + "/submit",
			body:    submitBody{Agent: "agent-2", Submission: "done"},
			status:  http.StatusForbidden,
			code:    "not_owner",
			withJob: true,
		},
		{
			name:   "empty submission",
			method: http.MethodPost,
			path:   "/api/jobs/" + job.ID + "/submit",
			body:   submitBody{Agent: "agent-1", Submission: "  "},
			status: http.StatusUnprocessableEntity,
			code:   "invalid_submission",
		},
		{
			name:   "invalid job",
			method: http.MethodPost,
			path:   "/api/jobs",
			body:   model.CreateJobRequest{Title: "t", Body: "b", CreatedBy: "x"},
			status: http.StatusUnprocessableEntity,
			code:   "invalid_job",
		},
		{
			name:   "bad status filter",
			method: http.MethodGet,
			path:   "/api/jobs?status=bogus",
			status: http.StatusBadRequest,
			code:   "validation",
		},
		{
			name:   "verifier disabled",
			method: http.MethodPost,
			path:   "/api/jobs/" + job.ID + "/verify",
			status: http.StatusServiceUnavailable,
			code:   "verifier_unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := h.do(t, tt.method, tt.path, tt.body, "")
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			var body struct {
				Error string          `json:"error"`
				Job   json.RawMessage `json:"job"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.code, body.Error)
			assert.Equal(t, tt.withJob, len(body.Job) > 0)
		})
	}
}

func TestRouter_UnknownFieldsRejected(t *testing.T) {
	h := newAPIHarness(t)
	req := httptest.NewRequest(http.MethodPost, "/api/jobs", bytes.NewBufferString(`{"title":"t","nope":1}`))
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_AccountsAndEconomy(t *testing.T) {
	h := newAPIHarness(t)
	ctx := context.Background()
	_, err := h.ledger.EnsureAccount(ctx, "alice")
	require.NoError(t, err)

	rec := h.do(t, http.MethodPost, "/api/accounts/transfers",
		model.TransferRequest{FromID: "alice", ToID: "bob", Amount: 20, Memo: "thanks"}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = h.do(t, http.MethodGet, "/api/accounts/alice/balance", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.InDelta(t, 30.0, decode[balanceResponse](t, rec).Balance, 1e-9)

	rec = h.do(t, http.MethodPost, "/api/accounts/transfers",
		model.TransferRequest{FromID: "alice", ToID: "bob", Amount: 500}, "")
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)

	rec = h.do(t, http.MethodGet, "/api/accounts/alice/entries?limit=1", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[map[string][]*model.EconomyEntry](t, rec)["entries"], 1)

	rec = h.do(t, http.MethodGet, "/api/economy", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	eco := decode[economyResponse](t, rec)
	assert.Equal(t, h.ledger.Treasury(), eco.Treasury)

	rec = h.do(t, http.MethodGet, "/api/economy/entries", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	entries := decode[map[string][]*model.EconomyEntry](t, rec)["entries"]
	require.NotEmpty(t, entries)
	assert.Equal(t, model.EntryTransfer, entries[0].Type)
}

func TestRouter_AdminAuth(t *testing.T) {
	h := newAPIHarness(t)

	tests := []struct {
		name   string
		token  string
		status int
		code   string
	}{
		{name: "missing token", status: http.StatusUnauthorized, code: "authentication_required"},
		{name: "unknown token", token: "nope", status: http.StatusUnauthorized, code: "authentication_required"},
		{name: "agent token", token: agentToken, status: http.StatusForbidden, code: "insufficient_permissions"},
		{name: "admin token", token: adminToken, status: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := h.do(t, http.MethodGet, "/api/admin/notes", nil, tt.token)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.code != "" {
				assert.Equal(t, tt.code, decode[ErrorBody](t, rec).Error)
			}
		})
	}
}

func TestRouter_CancelRequiresAdmin(t *testing.T) {
	h := newAPIHarness(t)
	job := h.createJob(t, testutil.NewJobRequest().Unique().Build())
	path := "/api/jobs/" + job.ID + "/cancel"

	rec := h.do(t, http.MethodPost, path, actorBody{By: job.CreatedBy}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.do(t, http.MethodPost, path, actorBody{By: job.CreatedBy}, agentToken)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = h.do(t, http.MethodPost, path, actorBody{Reason: "duplicate posting"}, adminToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, model.JobStatusCancelled, decode[*model.Job](t, rec).Status)

	rec = h.do(t, http.MethodGet, "/api/jobs/"+job.ID+"/events", nil, "")
	events := decode[map[string][]*model.JobEvent](t, rec)["events"]
	require.NotEmpty(t, events)
	assert.Equal(t, "ops", events[len(events)-1].Actor)

	rec = h.do(t, http.MethodPost, path, nil, adminToken)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRouter_AdminWithoutAuthenticator(t *testing.T) {
	h := newAPIHarness(t)
	handler := NewRouter(RouterServices{Market: h.market, Ledger: h.ledger})

	req := httptest.NewRequest(http.MethodPost, "/api/admin/replay", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRouter_AdminOperations(t *testing.T) {
	h := newAPIHarness(t)
	ctx := context.Background()

	job := h.createJob(t, testutil.NewJobRequest().Unique().Build())
	_, err := h.market.Cancel(ctx, job.ID, job.CreatedBy, "no longer needed")
	require.NoError(t, err)

	rec := h.do(t, http.MethodPost, "/api/admin/replay", nil, adminToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 1, decode[replayResponse](t, rec).Jobs)

	rec = h.do(t, http.MethodGet, "/api/admin/replay/verify", nil, adminToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, decode[service.ReplayReport](t, rec).Deterministic)

	rec = h.do(t, http.MethodPost, "/api/admin/purge", purgeBody{OlderThan: "soon"}, adminToken)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	h.clock.AddTime(48 * time.Hour)
	rec = h.do(t, http.MethodPost, "/api/admin/purge", purgeBody{OlderThan: "24h", Reason: "retention"}, adminToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, int64(1), decode[purgeResponse](t, rec).Purged)

	rec = h.do(t, http.MethodGet, "/api/jobs/"+job.ID, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(t, http.MethodPost, "/api/admin/awards",
		model.AwardRequest{ToID: "agent-7", Amount: 5, Reason: "bug bounty"}, adminToken)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	entry := decode[model.EconomyEntry](t, rec)
	assert.Equal(t, "ops", entry.CreatedBy)

	rec = h.do(t, http.MethodPost, "/api/admin/redo/scan", nil, adminToken)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRouter_AdminNotes(t *testing.T) {
	h := newAPIHarness(t)
	require.NoError(t, h.notes.Create(context.Background(), &model.OperatorNote{
		ID:         "n1",
		Kind:       "redo_cap",
		Importance: model.ImportanceHigh,
		Message:    "redo cap reached",
		CreatedAt:  h.clock.Now(),
	}))

	rec := h.do(t, http.MethodGet, "/api/admin/notes", nil, adminToken)
	require.Equal(t, http.StatusOK, rec.Code)
	notes := decode[map[string][]*model.OperatorNote](t, rec)["notes"]
	require.Len(t, notes, 1)
	assert.Equal(t, "redo cap reached", notes[0].Message)
}
