package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/target/workmarket/internal/core"
	"github.com/target/workmarket/internal/domain/economy"
	"github.com/target/workmarket/internal/domain/model"
	apperrors "github.com/target/workmarket/internal/errors"
	"github.com/target/workmarket/internal/observability/metrics"
	"github.com/target/workmarket/internal/observability/statsd"
)

// systemActor authors ledger entries and events the marketplace writes on its own.
const systemActor = "system"

// LedgerServiceOptions groups dependencies for LedgerService.
type LedgerServiceOptions struct {
	Repo          core.LedgerRepository // Required: append-only ledger
	Treasury      string                // Optional: treasury account id (default "treasury")
	GenesisAmount float64               // Optional: one-time starting credit; zero disables genesis
	DualAward     bool                  // Optional: pay the agent-to-agent bonus on approval
	Agents        core.AgentDirectory   // Optional: defaults to every non-treasury account
	Logger        *slog.Logger          // Optional: structured logger
	Metrics       statsd.Sink           // Optional: metrics sink
	Now           func() time.Time      // Optional: clock override for tests
}

// LedgerService derives balances from the ledger and writes every economy entry.
// Debits are serialized per account so a balance check and the entry it guards
// cannot interleave with another debit of the same account.
type LedgerService struct {
	repo          core.LedgerRepository
	treasury      string
	genesisAmount float64
	dualAward     bool
	agents        core.AgentDirectory
	logger        *slog.Logger
	metrics       statsd.Sink
	now           func() time.Time
	locks         *keyedMutex
}

// NewLedgerService constructs a new LedgerService.
func NewLedgerService(opts LedgerServiceOptions) (*LedgerService, error) {
	if opts.Repo == nil {
		return nil, errors.New("LedgerRepository is required")
	}
	if opts.GenesisAmount < 0 {
		return nil, errors.New("GenesisAmount must not be negative")
	}

	treasury := strings.TrimSpace(opts.Treasury)
	if treasury == "" {
		treasury = economy.DefaultTreasury
	}
	agents := opts.Agents
	if agents == nil {
		agents = economy.NewAgentSet(treasury, nil, nil)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &LedgerService{
		repo:          opts.Repo,
		treasury:      treasury,
		genesisAmount: economy.RoundAmount(opts.GenesisAmount),
		dualAward:     opts.DualAward,
		agents:        agents,
		logger:        logger.With("component", "ledger_service"),
		metrics:       opts.Metrics,
		now:           now,
		locks:         newKeyedMutex(),
	}, nil
}

// MustNewLedgerService constructs a new LedgerService and panics on error.
func MustNewLedgerService(opts LedgerServiceOptions) *LedgerService {
	svc, err := NewLedgerService(opts)
	if err != nil {
		//nolint:forbidigo // Must constructor fails fast when dependencies are invalid during startup
		panic(fmt.Sprintf("failed to create LedgerService: %v", err))
	}
	return svc
}

// Treasury returns the treasury account id.
func (s *LedgerService) Treasury() string { return s.treasury }

// EnsureAccount grants the one-time genesis credit to id. It reports whether the
// credit was written by this call.
func (s *LedgerService) EnsureAccount(ctx context.Context, id string) (bool, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return false, apperrors.ValidationField("account", "account id is required")
	}
	if id == s.treasury || s.genesisAmount <= 0 {
		return false, nil
	}
	entry := &model.EconomyEntry{
		Type:      model.EntryGenesis,
		Amount:    s.genesisAmount,
		ToID:      id,
		Memo:      "genesis",
		RefKey:    economy.GenesisRef(id),
		CreatedBy: systemActor,
	}
	inserted, err := s.append(ctx, entry)
	if err != nil {
		return false, fmt.Errorf("ensure account %s: %w", id, err)
	}
	if inserted {
		s.logger.InfoContext(ctx, "account opened", "account", id, "genesis", s.genesisAmount)
	}
	return inserted, nil
}

// Balance returns the derived balance of id.
func (s *LedgerService) Balance(ctx context.Context, id string) (float64, error) {
	if strings.TrimSpace(id) == "" {
		return 0, apperrors.ValidationField("account", "account id is required")
	}
	bal, err := s.repo.Balance(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("balance %s: %w", id, err)
	}
	return economy.RoundAmount(bal), nil
}

// Entries lists entries touching id, newest first.
func (s *LedgerService) Entries(ctx context.Context, id string, limit int) ([]*model.EconomyEntry, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperrors.ValidationField("account", "account id is required")
	}
	return s.repo.ListByAccount(ctx, id, limit)
}

// All returns the whole ledger in append order.
func (s *LedgerService) All(ctx context.Context) ([]*model.EconomyEntry, error) {
	return s.repo.ListAll(ctx)
}

// Transfer moves funds between two accounts. Unlike penalties, a transfer larger
// than the sender's balance fails with insufficient_funds.
func (s *LedgerService) Transfer(ctx context.Context, req model.TransferRequest) (*model.EconomyEntry, error) {
	from := strings.TrimSpace(req.FromID)
	to := strings.TrimSpace(req.ToID)
	amount := economy.RoundAmount(req.Amount)
	switch {
	case from == "":
		return nil, apperrors.ValidationField("from_id", "sender is required")
	case to == "":
		return nil, apperrors.ValidationField("to_id", "recipient is required")
	case from == to:
		return nil, apperrors.ValidationField("to_id", "cannot transfer to the same account")
	case amount <= 0:
		return nil, apperrors.New(apperrors.ErrCodeInvalidAmount, "amount must be positive")
	}

	for _, id := range []string{from, to} {
		if _, err := s.EnsureAccount(ctx, id); err != nil {
			return nil, err
		}
	}

	unlock := s.locks.Lock(from)
	defer unlock()

	if from != s.treasury {
		bal, err := s.Balance(ctx, from)
		if err != nil {
			return nil, err
		}
		if amount > bal {
			return nil, apperrors.Newf(apperrors.ErrCodeInsufficientFunds,
				"balance %.2f is below transfer amount %.2f", bal, amount)
		}
	}

	entry := &model.EconomyEntry{
		Type:      model.EntryTransfer,
		Amount:    amount,
		FromID:    from,
		ToID:      to,
		Memo:      strings.TrimSpace(req.Memo),
		CreatedBy: from,
	}
	if _, err := s.append(ctx, entry); err != nil {
		return nil, fmt.Errorf("transfer: %w", err)
	}
	return entry, nil
}

// Award credits an account from the treasury.
func (s *LedgerService) Award(ctx context.Context, req model.AwardRequest) (*model.EconomyEntry, error) {
	entry, _, err := s.award(ctx, req, "")
	return entry, err
}

func (s *LedgerService) award(ctx context.Context, req model.AwardRequest, refKey string) (*model.EconomyEntry, bool, error) {
	to := strings.TrimSpace(req.ToID)
	amount := economy.RoundAmount(req.Amount)
	if to == "" {
		return nil, false, apperrors.ValidationField("to_id", "recipient is required")
	}
	if amount <= 0 {
		return nil, false, apperrors.New(apperrors.ErrCodeInvalidAmount, "amount must be positive")
	}
	if _, err := s.EnsureAccount(ctx, to); err != nil {
		return nil, false, err
	}

	by := strings.TrimSpace(req.By)
	if by == "" {
		by = systemActor
	}
	entry := &model.EconomyEntry{
		Type:      model.EntryAward,
		Amount:    amount,
		FromID:    s.treasury,
		ToID:      to,
		Memo:      strings.TrimSpace(req.Reason),
		RefKey:    refKey,
		CreatedBy: by,
	}
	inserted, err := s.append(ctx, entry)
	if err != nil {
		return nil, false, fmt.Errorf("award %s: %w", to, err)
	}
	return entry, inserted, nil
}

// PenaltyRequest debits an agent for rejected work.
type PenaltyRequest struct {
	Agent  string
	Amount float64
	Reason string
	By     string
	// RefKey makes the penalty idempotent; optional for manual penalties.
	RefKey string
}

// ApplyPenalty debits min(amount, balance) from the agent to the treasury. A
// penalty that clamps to zero writes nothing and returns a nil entry.
func (s *LedgerService) ApplyPenalty(ctx context.Context, req PenaltyRequest) (*model.EconomyEntry, error) {
	entry, _, err := s.applyPenalty(ctx, req)
	return entry, err
}

func (s *LedgerService) applyPenalty(ctx context.Context, req PenaltyRequest) (*model.EconomyEntry, bool, error) {
	agent := strings.TrimSpace(req.Agent)
	if agent == "" {
		return nil, false, apperrors.ValidationField("agent", "agent is required")
	}
	if req.Amount < 0 {
		return nil, false, apperrors.New(apperrors.ErrCodeInvalidAmount, "penalty must not be negative")
	}

	unlock := s.locks.Lock(agent)
	defer unlock()

	if req.RefKey != "" {
		settled, err := s.repo.HasRef(ctx, req.RefKey)
		if err != nil {
			return nil, false, fmt.Errorf("check penalty ref: %w", err)
		}
		if settled {
			return nil, false, nil
		}
	}

	bal, err := s.Balance(ctx, agent)
	if err != nil {
		return nil, false, err
	}
	amount := economy.ClampPenalty(req.Amount, bal)
	if amount <= 0 {
		s.logger.DebugContext(ctx, "penalty clamped to zero", "agent", agent, "requested", req.Amount, "balance", bal)
		return nil, false, nil
	}

	by := strings.TrimSpace(req.By)
	if by == "" {
		by = systemActor
	}
	entry := &model.EconomyEntry{
		Type:      model.EntrySpend,
		Amount:    amount,
		FromID:    agent,
		ToID:      s.treasury,
		Memo:      strings.TrimSpace(req.Reason),
		RefKey:    req.RefKey,
		CreatedBy: by,
	}
	inserted, err := s.append(ctx, entry)
	if err != nil {
		return nil, false, fmt.Errorf("penalty %s: %w", agent, err)
	}
	if !inserted {
		return nil, false, nil
	}
	return entry, true, nil
}

// Settle writes the ledger effects of a review. Every entry it writes carries a
// job-scoped ref key, so settling the same review twice writes nothing new.
func (s *LedgerService) Settle(ctx context.Context, job *model.Job, review model.ReviewedData) (*model.Settlement, error) {
	if job == nil {
		return nil, errors.New("settle: job is required")
	}
	out := &model.Settlement{JobID: job.ID, Approved: review.Approved}
	executor := job.SubmittedBy

	record := func(entry *model.EconomyEntry, inserted bool, ref string) {
		if inserted && entry != nil {
			out.Entries = append(out.Entries, entry)
			return
		}
		out.Skipped = append(out.Skipped, ref)
	}

	if !review.Approved {
		if review.Penalty == nil || *review.Penalty <= 0 || executor == "" {
			return out, nil
		}
		ref := economy.PenaltyRef(job.ID)
		entry, inserted, err := s.applyPenalty(ctx, PenaltyRequest{
			Agent:  executor,
			Amount: *review.Penalty,
			Reason: "rejected: " + job.Title,
			By:     review.By,
			RefKey: ref,
		})
		if err != nil {
			return out, err
		}
		record(entry, inserted, ref)
		s.emitSettlement(out)
		return out, nil
	}

	if executor == "" {
		return out, errors.New("settle: approved job has no submitter")
	}

	if payout := economy.Payout(job.Reward, review.Payout); payout > 0 {
		ref := economy.AwardRef(job.ID)
		entry, inserted, err := s.award(ctx, model.AwardRequest{
			ToID:   executor,
			Amount: payout,
			Reason: "approved: " + job.Title,
			By:     review.By,
		}, ref)
		if err != nil {
			return out, err
		}
		record(entry, inserted, ref)
	}

	if s.dualEligible(job) {
		for _, acct := range []string{job.CreatedBy, executor} {
			ref := economy.DualAwardRef(job.ID, acct)
			entry, inserted, err := s.award(ctx, model.AwardRequest{
				ToID:   acct,
				Amount: economy.DualAwardAmount,
				Reason: "agent collaboration bonus: " + job.ID,
				By:     systemActor,
			}, ref)
			if err != nil {
				return out, err
			}
			record(entry, inserted, ref)
		}
	}

	s.emitSettlement(out)
	return out, nil
}

// dualEligible reports whether both sides of a job are distinct agents.
func (s *LedgerService) dualEligible(job *model.Job) bool {
	if !s.dualAward || job.CreatedBy == job.SubmittedBy {
		return false
	}
	if job.Source != model.SourceAgent {
		return false
	}
	return s.agents.IsAgent(job.CreatedBy) && s.agents.IsAgent(job.SubmittedBy)
}

func (s *LedgerService) append(ctx context.Context, entry *model.EconomyEntry) (bool, error) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now().UTC()
	}
	inserted, err := s.repo.Append(ctx, entry)
	metrics.EmitLedgerEntry(s.metrics, string(entry.Type), inserted, err)
	return inserted, err
}

func (s *LedgerService) emitSettlement(out *model.Settlement) {
	metrics.EmitSettlement(s.metrics, out.Approved, len(out.Entries))
}
