package verify

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/target/workmarket/internal/core"
	"github.com/target/workmarket/internal/domain/jobtags"
	"github.com/target/workmarket/internal/domain/model"
)

const (
	solutionFile = "solution.py"
	testFile     = "test_solution.py"
	// outputTail bounds captured stdout/stderr kept as evidence.
	outputTail = 2000
)

// Test runners for python_test.
const (
	TestRunnerBuiltin = "builtin"
	TestRunnerPytest  = "pytest"
)

// testHarness runs module-level asserts on import and then every test_* function.
const testHarness = `

if __name__ == "__main__":
    for _name, _fn in sorted(list(globals().items())):
        if _name.startswith("test_") and callable(_fn):
            _fn()
    print("ok")
`

// PythonOptions configures the code-execution verifiers.
type PythonOptions struct {
	Runner     core.CodeRunner
	Python     string
	Timeout    time.Duration
	TestRunner string
}

func (o PythonOptions) withDefaults() PythonOptions {
	if o.Python == "" {
		o.Python = "python3"
	}
	if o.Timeout <= 0 {
		o.Timeout = 10 * time.Second
	}
	if o.TestRunner == "" {
		o.TestRunner = TestRunnerBuiltin
	}
	return o
}

type pythonBase struct {
	opts PythonOptions
}

// run executes the submitted code and converts execution failures into outcomes.
// ok is false when fail holds the final outcome.
func (b pythonBase) run(ctx context.Context, name string, files map[string]string, args []string) (*core.RunResult, model.Outcome, bool) {
	if b.opts.Runner == nil {
		return nil, Awaiting(name, "code execution is disabled"), false
	}
	res, err := b.opts.Runner.Run(ctx, core.RunRequest{
		Files:   files,
		Args:    append([]string{b.opts.Python}, args...),
		Timeout: b.opts.Timeout,
	})
	if err != nil {
		return nil, Awaiting(name, "sandbox unavailable: "+err.Error()), false
	}
	evidence := runEvidence(res)
	if res.TimedOut {
		return res, Fail(name, fmt.Sprintf("execution timed out after %s", b.opts.Timeout), evidence), false
	}
	if res.ExitCode != 0 {
		return res, Fail(name, fmt.Sprintf("execution exited with code %d", res.ExitCode), evidence), false
	}
	return res, model.Outcome{}, true
}

func submittedCode(submission string) (string, bool) {
	code, ok := ExtractCode(submission, "python", "py", "python3")
	if !ok || strings.TrimSpace(code) == "" {
		return "", false
	}
	return code, true
}

func runEvidence(res *core.RunResult) map[string]any {
	return map[string]any{
		"exit_code":   res.ExitCode,
		"timed_out":   res.TimedOut,
		"duration_ms": res.Duration.Milliseconds(),
		"stdout":      tail(res.Stdout, outputTail),
		"stderr":      tail(res.Stderr, outputTail),
	}
}

// tail keeps at most the last n bytes of s without splitting a rune.
func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	start := len(s) - n
	for start < len(s) && !utf8.RuneStart(s[start]) {
		start++
	}
	return s[start:]
}

// PythonRun passes when the submitted program exits cleanly.
type PythonRun struct{ pythonBase }

// NewPythonRun constructs the python_run verifier.
func NewPythonRun(opts PythonOptions) *PythonRun {
	return &PythonRun{pythonBase{opts.withDefaults()}}
}

func (*PythonRun) Name() string { return NamePythonRun }

func (*PythonRun) Matches(_ *model.Job, tags jobtags.Tags) bool {
	return tagged(tags, NamePythonRun)
}

func (v *PythonRun) Verify(ctx context.Context, _ *model.Job, _ jobtags.Tags, submission string) model.Outcome {
	code, ok := submittedCode(submission)
	if !ok {
		return Fail(v.Name(), "no fenced python code block in submission", nil)
	}
	res, out, ok := v.run(ctx, v.Name(), map[string]string{solutionFile: code}, []string{solutionFile})
	if !ok {
		return out
	}
	return Pass(v.Name(), "program exited cleanly", runEvidence(res))
}

// PythonAnswer passes when the program prints [expected_output].
type PythonAnswer struct{ pythonBase }

// NewPythonAnswer constructs the fixed-answer verifier.
func NewPythonAnswer(opts PythonOptions) *PythonAnswer {
	return &PythonAnswer{pythonBase{opts.withDefaults()}}
}

func (*PythonAnswer) Name() string { return NamePythonAnswer }

func (*PythonAnswer) Matches(_ *model.Job, tags jobtags.Tags) bool {
	if tagged(tags, NamePythonAnswer) {
		return true
	}
	return untagged(tags) && tags.Has(jobtags.ExpectedOutput)
}

func (v *PythonAnswer) Verify(ctx context.Context, _ *model.Job, tags jobtags.Tags, submission string) model.Outcome {
	expected := strings.TrimSpace(tags.ExpectedOutput)
	if expected == "" {
		return Awaiting(v.Name(), "job declares no expected output")
	}
	code, ok := submittedCode(submission)
	if !ok {
		return Fail(v.Name(), "no fenced python code block in submission", nil)
	}
	res, out, ok := v.run(ctx, v.Name(), map[string]string{solutionFile: code}, []string{solutionFile})
	if !ok {
		return out
	}
	evidence := runEvidence(res)
	evidence["expected"] = expected
	if got := normalizeOutput(res.Stdout); got != normalizeOutput(expected) {
		return Fail(v.Name(), fmt.Sprintf("output mismatch: expected %q, got %q", expected, tail(strings.TrimSpace(res.Stdout), 200)), evidence)
	}
	return Pass(v.Name(), "output matches expected answer", evidence)
}

func normalizeOutput(s string) string {
	lines := strings.Split(strings.TrimSpace(strings.ReplaceAll(s, "\r\n", "\n")), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t")
	}
	return strings.Join(lines, "\n")
}

// PythonTest runs the job's [test_code] against the submitted code.
type PythonTest struct{ pythonBase }

// NewPythonTest constructs the python_test verifier.
func NewPythonTest(opts PythonOptions) *PythonTest {
	return &PythonTest{pythonBase{opts.withDefaults()}}
}

func (*PythonTest) Name() string { return NamePythonTest }

func (*PythonTest) Matches(_ *model.Job, tags jobtags.Tags) bool {
	if tagged(tags, NamePythonTest) {
		return true
	}
	return untagged(tags) && tags.Has(jobtags.TestCode)
}

func (v *PythonTest) Verify(ctx context.Context, _ *model.Job, tags jobtags.Tags, submission string) model.Outcome {
	if strings.TrimSpace(tags.TestCode) == "" {
		return Awaiting(v.Name(), "job declares no test code")
	}
	code, ok := submittedCode(submission)
	if !ok {
		return Fail(v.Name(), "no fenced python code block in submission", nil)
	}

	test := "from solution import *  # noqa: F401,F403\n" + tags.TestCode
	args := []string{testFile}
	if v.opts.TestRunner == TestRunnerPytest {
		args = []string{"-m", "pytest", "-q", "-p", "no:cacheprovider", testFile}
	} else {
		test += testHarness
	}

	files := map[string]string{solutionFile: code, testFile: test}
	res, out, ok := v.run(ctx, v.Name(), files, args)
	if !ok {
		if !out.OK && !out.AwaitingReview() {
			out.Note = "tests failed: " + out.Note
		}
		return out
	}
	return Pass(v.Name(), "tests passed", runEvidence(res))
}
