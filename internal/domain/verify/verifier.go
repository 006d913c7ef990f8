// Package verify holds the pluggable verifiers that judge job submissions and the
// ordered registry that dispatches between them.
package verify

import (
	"context"
	"fmt"

	"github.com/target/workmarket/internal/domain/jobtags"
	"github.com/target/workmarket/internal/domain/model"
)

// Verifier names, as used in [verifier:<name>] tags.
const (
	NameJSONList           = "json_list"
	NameMDTable            = "md_table"
	NamePythonRun          = "python_run"
	NamePythonTest         = "python_test"
	NamePythonAnswer       = "python_answer"
	NameLLMJudge           = "llm_judge"
	NameAcceptanceCriteria = "acceptance_criteria"
)

// Verifier judges a submission against the evidence contract a job declares.
type Verifier interface {
	Name() string
	Matches(job *model.Job, tags jobtags.Tags) bool
	Verify(ctx context.Context, job *model.Job, tags jobtags.Tags, submission string) model.Outcome
}

// Registry runs the first matching verifier. Order matters: the first match is
// final even if a later verifier would also match.
type Registry struct {
	verifiers []Verifier
	fallback  Verifier
}

// NewRegistry builds a registry from the ordered verifiers, filtering nil entries.
// fallback runs when nothing matches.
func NewRegistry(fallback Verifier, verifiers ...Verifier) *Registry {
	filtered := make([]Verifier, 0, len(verifiers))
	for _, v := range verifiers {
		if v != nil {
			filtered = append(filtered, v)
		}
	}
	return &Registry{verifiers: filtered, fallback: fallback}
}

// Names returns the registered verifier names in dispatch order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.verifiers))
	for _, v := range r.verifiers {
		names = append(names, v.Name())
	}
	return names
}

// Select returns the verifier that would handle job and whether it matched
// explicitly rather than by fallback.
func (r *Registry) Select(job *model.Job) (Verifier, jobtags.Tags, bool) {
	tags := jobtags.Parse(job.Text())
	for _, v := range r.verifiers {
		if v.Matches(job, tags) {
			return v, tags, true
		}
	}
	return r.fallback, tags, false
}

// Run verifies submission for job. Verifier panics become failing outcomes.
func (r *Registry) Run(ctx context.Context, job *model.Job, submission string) (out model.Outcome) {
	v, tags, matched := r.Select(job)
	if v == nil {
		return Awaiting("none", "no verifier available")
	}

	defer func() {
		if rec := recover(); rec != nil {
			out = Fail(v.Name(), fmt.Sprintf("verifier crashed: %v", rec), nil)
			out.Matched = matched
		}
	}()

	out = v.Verify(ctx, job, tags, submission)
	out.Matched = matched
	if out.VerifierName == "" {
		out.VerifierName = v.Name()
	}
	return out
}

// Pass builds a passing outcome.
func Pass(name, note string, evidence map[string]any) model.Outcome {
	return model.Outcome{OK: true, Note: note, VerifierName: name, Evidence: evidence}
}

// Fail builds a failing outcome that warrants automatic rejection.
func Fail(name, note string, evidence map[string]any) model.Outcome {
	return model.Outcome{OK: false, Note: note, VerifierName: name, Evidence: evidence}
}

// Awaiting builds an outcome that leaves the decision to a human reviewer.
func Awaiting(name, reason string) model.Outcome {
	return model.Outcome{
		OK:           false,
		Note:         model.AwaitingHumanReview + ": " + reason,
		VerifierName: name,
	}
}

// tagged reports whether the job explicitly names verifier n.
func tagged(tags jobtags.Tags, n string) bool {
	return tags.Verifier == n
}

// untagged reports whether the job names no verifier at all.
func untagged(tags jobtags.Tags) bool {
	return tags.Verifier == ""
}
