// Package sandbox runs untrusted programs in a throwaway working directory with a
// wall-clock limit, killing the whole process group when the limit is hit.
package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/target/workmarket/internal/core"
)

const (
	defaultTimeout   = 10 * time.Second
	defaultMaxOutput = 64 << 10
	// waitDelay bounds how long Wait blocks on inherited pipes after the kill.
	waitDelay = 2 * time.Second
)

// Options configures a Runner.
type Options struct {
	// BaseDir is where per-run directories are created; empty means os.TempDir.
	BaseDir string
	// MaxOutput caps captured stdout and stderr, each, in bytes.
	MaxOutput int
	// Env is appended to the minimal environment every run receives.
	Env    []string
	Logger *slog.Logger
}

// Runner implements core.CodeRunner with local subprocesses.
type Runner struct {
	baseDir   string
	maxOutput int
	env       []string
	logger    *slog.Logger
}

var _ core.CodeRunner = (*Runner)(nil)

// NewRunner constructs a Runner.
func NewRunner(opts Options) *Runner {
	if opts.MaxOutput <= 0 {
		opts.MaxOutput = defaultMaxOutput
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		baseDir:   opts.BaseDir,
		maxOutput: opts.MaxOutput,
		env:       opts.Env,
		logger:    logger.With("component", "sandbox"),
	}
}

// Run writes req.Files into a fresh directory, executes req.Args there and removes
// the directory afterwards. A non-zero exit or a timeout is reported in the result;
// an error means the program could not be run at all.
func (r *Runner) Run(ctx context.Context, req core.RunRequest) (*core.RunResult, error) {
	if len(req.Args) == 0 {
		return nil, errors.New("sandbox: no command")
	}
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	dir, err := os.MkdirTemp(r.baseDir, "workmarket-run-*")
	if err != nil {
		return nil, fmt.Errorf("sandbox: create work dir: %w", err)
	}
	defer func() {
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			r.logger.Warn("failed to remove work dir", "dir", dir, "error", rmErr)
		}
	}()

	if err := writeFiles(dir, req.Files); err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, req.Args[0], req.Args[1:]...)
	cmd.Dir = dir
	cmd.Env = r.environ(dir)
	if req.Stdin != "" {
		cmd.Stdin = strings.NewReader(req.Stdin)
	}
	stdout := &cappedBuffer{limit: r.maxOutput}
	stderr := &cappedBuffer{limit: r.maxOutput}
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	configureCommandProcess(cmd)
	cmd.Cancel = func() error {
		terminateCommandProcess(cmd)
		return nil
	}
	cmd.WaitDelay = waitDelay

	start := time.Now()
	runErr := cmd.Run()
	res := &core.RunResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	// The deadline may come from req.Timeout or from the caller; either way the
	// program ran out of time.
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		res.TimedOut = true
		res.ExitCode = -1
		return res, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	var exitErr *exec.ExitError
	switch {
	case runErr == nil:
	case errors.As(runErr, &exitErr):
		res.ExitCode = exitErr.ExitCode()
	default:
		return nil, fmt.Errorf("sandbox: run %s: %w", req.Args[0], runErr)
	}
	return res, nil
}

func (r *Runner) environ(dir string) []string {
	env := []string{
		"PATH=" + os.Getenv("PATH"),
		"HOME=" + dir,
		"TMPDIR=" + dir,
		"LANG=C.UTF-8",
		"PYTHONDONTWRITEBYTECODE=1",
		"PYTHONHASHSEED=0",
		"PYTHONIOENCODING=utf-8",
	}
	return append(env, r.env...)
}

// writeFiles rejects names that would escape dir.
func writeFiles(dir string, files map[string]string) error {
	for name, content := range files {
		if !filepath.IsLocal(name) {
			return fmt.Errorf("sandbox: file name %q escapes the work dir", name)
		}
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return fmt.Errorf("sandbox: create dir for %s: %w", name, err)
		}
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			return fmt.Errorf("sandbox: write %s: %w", name, err)
		}
	}
	return nil
}

// cappedBuffer keeps the first limit bytes and silently drops the rest so a chatty
// program cannot exhaust memory.
type cappedBuffer struct {
	buf       bytes.Buffer
	limit     int
	truncated bool
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	room := b.limit - b.buf.Len()
	if room <= 0 {
		b.truncated = true
		return len(p), nil
	}
	if len(p) > room {
		b.buf.Write(p[:room])
		b.truncated = true
		return len(p), nil
	}
	return b.buf.Write(p)
}

func (b *cappedBuffer) String() string {
	if b.truncated {
		return b.buf.String() + "\n[output truncated]"
	}
	return b.buf.String()
}
