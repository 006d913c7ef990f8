package verify

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"github.com/target/workmarket/internal/core"
	"github.com/target/workmarket/internal/domain/model"
	"github.com/target/workmarket/internal/mocks"
)

func TestLLMJudge(t *testing.T) {
	job := &model.Job{ID: "j1", Title: "Essay", Body: "[verifier:llm_judge] Write a haiku."}

	tests := []struct {
		name     string
		verdict  *core.JudgeVerdict
		err      error
		wantOK   bool
		awaiting bool
		wantNote string
	}{
		{name: "approved", verdict: &core.JudgeVerdict{OK: true, Reason: "meets the brief"}, wantOK: true, wantNote: "meets the brief"},
		{name: "rejected", verdict: &core.JudgeVerdict{OK: false, Reason: "not a haiku"}, wantNote: "not a haiku"},
		{name: "rejected without reason", verdict: &core.JudgeVerdict{}, wantNote: "judge rejected"},
		{name: "judge error", err: errors.New("connection refused"), awaiting: true, wantNote: "judge unavailable: connection refused"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			judge := mocks.NewMockJudge(ctrl)
			judge.EXPECT().Judge(gomock.Any(), core.JudgeRequest{
				JobID:      "j1",
				Title:      "Essay",
				Body:       job.Body,
				Submission: "old pond",
			}).Return(tt.verdict, tt.err)

			out := verifyWith(NewLLMJudge(judge), job, "old pond")
			assert.Equal(t, tt.wantOK, out.OK)
			assert.Equal(t, tt.awaiting, out.AwaitingReview())
			assert.Contains(t, out.Note, tt.wantNote)
		})
	}
}

func TestLLMJudge_NotConfigured(t *testing.T) {
	out := verifyWith(NewLLMJudge(nil), &model.Job{Body: "[verifier:llm_judge]"}, "x")
	assert.True(t, out.AwaitingReview())
	assert.False(t, out.Failed())
}
