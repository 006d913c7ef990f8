package config

import (
	"strings"
	"time"
)

// MarketConfig controls job creation and the redo escalation loop.
type MarketConfig struct {
	// DedupWindow bounds how far back duplicate detection looks; zero compares every job.
	DedupWindow time.Duration `env:"MARKET_DEDUP_WINDOW" envDefault:"168h"`
	// DedupThreshold is the similarity cutoff for near-duplicates.
	DedupThreshold float64 `env:"MARKET_DEDUP_THRESHOLD" envDefault:"0.92"`
	// ArchetypesFile optionally points at a YAML list of repeatable job archetypes.
	ArchetypesFile string `env:"MARKET_ARCHETYPES_FILE"`

	// StaleClaimAge is how long a claim may sit without submission before it can be released.
	StaleClaimAge time.Duration `env:"MARKET_STALE_CLAIM_AGE" envDefault:"2h"`

	RedoCap      int           `env:"MARKET_REDO_CAP"      envDefault:"3"`
	RedoInterval time.Duration `env:"MARKET_REDO_INTERVAL" envDefault:"30s"`
	// ExpectedExecutor restricts redo escalation to rejections of this agent's work.
	ExpectedExecutor string `env:"MARKET_EXPECTED_EXECUTOR"`
}

// Sanitize applies guardrails to market configuration values.
func (m *MarketConfig) Sanitize() {
	if m.DedupWindow < 0 {
		m.DedupWindow = 0
	}
	if m.DedupThreshold <= 0 || m.DedupThreshold > 1 {
		m.DedupThreshold = 0.92
	}
	m.ArchetypesFile = strings.TrimSpace(m.ArchetypesFile)
	if m.StaleClaimAge < time.Minute {
		m.StaleClaimAge = time.Minute
	}
	if m.RedoCap < 1 {
		m.RedoCap = 3
	}
	if m.RedoInterval < time.Second {
		m.RedoInterval = time.Second
	}
	m.ExpectedExecutor = strings.TrimSpace(m.ExpectedExecutor)
}

// VerifierConfig controls automatic verification.
type VerifierConfig struct {
	Concurrency  int           `env:"VERIFIER_CONCURRENCY"   envDefault:"4"`
	Timeout      time.Duration `env:"VERIFIER_TIMEOUT"       envDefault:"60s"`
	PollInterval time.Duration `env:"VERIFIER_POLL_INTERVAL" envDefault:"5s"`

	PythonBinary string `env:"VERIFIER_PYTHON_BINARY" envDefault:"python3"`
	// TestRunner is the argv prefix used to run [test_code:] suites, space separated.
	TestRunner string `env:"VERIFIER_TEST_RUNNER" envDefault:"python3 -m pytest -q"`
	// SandboxDir is the parent of per-run scratch directories; empty uses the OS temp dir.
	SandboxDir string `env:"VERIFIER_SANDBOX_DIR"`
	MaxOutput  int    `env:"VERIFIER_MAX_OUTPUT"  envDefault:"65536"`

	// AutoPenalty is debited from the submitter when automatic verification rejects.
	AutoPenalty float64 `env:"VERIFIER_AUTO_PENALTY" envDefault:"2"`
}

// Sanitize applies guardrails to verifier configuration values.
func (v *VerifierConfig) Sanitize() {
	if v.Concurrency < 1 {
		v.Concurrency = 1
	}
	if v.Concurrency > 64 {
		v.Concurrency = 64
	}
	if v.Timeout <= 0 {
		v.Timeout = 60 * time.Second
	}
	if v.PollInterval < 100*time.Millisecond {
		v.PollInterval = 5 * time.Second
	}
	if v.PythonBinary = strings.TrimSpace(v.PythonBinary); v.PythonBinary == "" {
		v.PythonBinary = "python3"
	}
	if v.MaxOutput < 1024 {
		v.MaxOutput = 1024
	}
	if v.AutoPenalty < 0 {
		v.AutoPenalty = 0
	}
}

// TestRunnerArgs splits TestRunner into argv.
func (v VerifierConfig) TestRunnerArgs() []string {
	return strings.Fields(v.TestRunner)
}

// JudgeConfig points the LLM judge verifier at an HTTP endpoint.
type JudgeConfig struct {
	Endpoint string        `env:"JUDGE_ENDPOINT"`
	Timeout  time.Duration `env:"JUDGE_TIMEOUT"  envDefault:"30s"`
	// OKExpr and ReasonExpr are JMESPath expressions evaluated against the response.
	OKExpr     string `env:"JUDGE_OK_EXPR"     envDefault:"ok"`
	ReasonExpr string `env:"JUDGE_REASON_EXPR" envDefault:"reason"`

	TokenURL     string   `env:"JUDGE_TOKEN_URL"`
	ClientID     string   `env:"JUDGE_CLIENT_ID"`
	ClientSecret string   `env:"JUDGE_CLIENT_SECRET"`
	Scopes       []string `env:"JUDGE_SCOPES"        envSeparator:","`
}

// Sanitize trims judge configuration values.
func (j *JudgeConfig) Sanitize() {
	j.Endpoint = strings.TrimSpace(j.Endpoint)
	j.TokenURL = strings.TrimSpace(j.TokenURL)
	if j.Timeout <= 0 {
		j.Timeout = 30 * time.Second
	}
	if strings.TrimSpace(j.OKExpr) == "" {
		j.OKExpr = "ok"
	}
	if strings.TrimSpace(j.ReasonExpr) == "" {
		j.ReasonExpr = "reason"
	}
}

// IsEnabled reports whether a judge endpoint is configured.
func (j JudgeConfig) IsEnabled() bool {
	return j.Endpoint != ""
}

// UsesOAuth reports whether client credentials are configured.
func (j JudgeConfig) UsesOAuth() bool {
	return j.TokenURL != "" && j.ClientID != ""
}

// EconomyConfig controls rewards and balances.
type EconomyConfig struct {
	GenesisAmount float64 `env:"ECONOMY_GENESIS_AMOUNT" envDefault:"50"`
	Treasury      string  `env:"ECONOMY_TREASURY"       envDefault:"treasury"`
	MinReward     float64 `env:"ECONOMY_MIN_REWARD"     envDefault:"1"`
	MaxReward     float64 `env:"ECONOMY_MAX_REWARD"     envDefault:"100"`
	Scale         float64 `env:"ECONOMY_SCALE"          envDefault:"100"`
	// DualAward pays the agent-to-agent bonus when an agent approves another agent's job.
	DualAward bool     `env:"ECONOMY_DUAL_AWARD" envDefault:"false"`
	AgentIDs  []string `env:"ECONOMY_AGENT_IDS"  envSeparator:","`
	HumanIDs  []string `env:"ECONOMY_HUMAN_IDS"  envSeparator:","`
}

// Sanitize applies guardrails to economy configuration values.
func (e *EconomyConfig) Sanitize() {
	if e.GenesisAmount < 0 {
		e.GenesisAmount = 0
	}
	if e.Treasury = strings.TrimSpace(e.Treasury); e.Treasury == "" {
		e.Treasury = "treasury"
	}
	if e.Scale <= 0 {
		e.Scale = 100
	}
	if e.MinReward < 0 {
		e.MinReward = 0
	}
	if e.MaxReward < e.MinReward {
		e.MaxReward = e.MinReward
	}
}
