package verify

import (
	"context"
	"fmt"
	"strings"

	"github.com/target/workmarket/internal/domain/jobtags"
	"github.com/target/workmarket/internal/domain/model"
)

const (
	criteriaHeading = "acceptance criteria"
	evidenceHeading = "evidence"
)

// AcceptanceCriteria checks that every "Acceptance criteria" bullet of the job is
// echoed in the submission's "Evidence" section. It is also the registry fallback.
type AcceptanceCriteria struct{}

func (AcceptanceCriteria) Name() string { return NameAcceptanceCriteria }

func (AcceptanceCriteria) Matches(_ *model.Job, tags jobtags.Tags) bool {
	return tagged(tags, NameAcceptanceCriteria)
}

func (v AcceptanceCriteria) Verify(_ context.Context, job *model.Job, _ jobtags.Tags, submission string) model.Outcome {
	sec, ok := jobtags.FindSection(job.Body, criteriaHeading)
	criteria := sec.Bullets()
	if !ok || len(criteria) == 0 {
		return Awaiting(v.Name(), "job declares no acceptance criteria")
	}

	ev, ok := jobtags.FindSection(submission, evidenceHeading)
	if !ok || strings.TrimSpace(ev.Text()) == "" {
		return Fail(v.Name(), "submission has no Evidence section", map[string]any{"criteria": criteria})
	}

	evidenceText := normalizeText(ev.Text())
	var missing []string
	for _, c := range criteria {
		if !strings.Contains(evidenceText, normalizeText(c)) {
			missing = append(missing, c)
		}
	}
	evidence := map[string]any{
		"criteria": criteria,
		"echoed":   len(criteria) - len(missing),
	}
	if len(missing) > 0 {
		evidence["missing"] = missing
		return Fail(v.Name(), fmt.Sprintf("evidence does not address %d of %d criteria: %s",
			len(missing), len(criteria), strings.Join(missing, "; ")), evidence)
	}
	return Pass(v.Name(), fmt.Sprintf("all %d acceptance criteria echoed in evidence", len(criteria)), evidence)
}

func normalizeText(s string) string {
	s = strings.ToLower(s)
	s = strings.Map(func(r rune) rune {
		switch r {
		case '`', '*', '_':
			return -1
		}
		return r
	}, s)
	return strings.Trim(strings.Join(strings.Fields(s), " "), ".;:,")
}
