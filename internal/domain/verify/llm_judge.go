package verify

import (
	"context"
	"strings"

	"github.com/target/workmarket/internal/core"
	"github.com/target/workmarket/internal/domain/jobtags"
	"github.com/target/workmarket/internal/domain/model"
)

// LLMJudge delegates the decision to an external judge. An unreachable judge never
// fails the pipeline; the submission waits for a human instead.
type LLMJudge struct {
	judge core.Judge
}

// NewLLMJudge constructs the llm_judge verifier. judge may be nil.
func NewLLMJudge(judge core.Judge) *LLMJudge {
	return &LLMJudge{judge: judge}
}

func (*LLMJudge) Name() string { return NameLLMJudge }

func (*LLMJudge) Matches(_ *model.Job, tags jobtags.Tags) bool {
	return tagged(tags, NameLLMJudge)
}

func (v *LLMJudge) Verify(ctx context.Context, job *model.Job, _ jobtags.Tags, submission string) model.Outcome {
	if v.judge == nil {
		return Awaiting(v.Name(), "judge unavailable: not configured")
	}
	verdict, err := v.judge.Judge(ctx, core.JudgeRequest{
		JobID:      job.ID,
		Title:      job.Title,
		Body:       job.Body,
		Submission: submission,
	})
	if err != nil {
		out := Awaiting(v.Name(), "judge unavailable: "+err.Error())
		out.Evidence = map[string]any{"error": err.Error()}
		return out
	}
	reason := strings.TrimSpace(verdict.Reason)
	evidence := map[string]any{"reason": reason}
	if verdict.OK {
		if reason == "" {
			reason = "judge approved"
		}
		return Pass(v.Name(), reason, evidence)
	}
	if reason == "" {
		reason = "judge rejected the submission"
	}
	return Fail(v.Name(), reason, evidence)
}
