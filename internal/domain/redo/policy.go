// Package redo decides how the marketplace reacts to rejected work: issue a
// stricter follow-up job, or give up once the per-root cap is reached.
package redo

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/target/workmarket/internal/domain/jobtags"
	"github.com/target/workmarket/internal/domain/model"
)

// DefaultCap is the number of rejections per root after which redo stops.
const DefaultCap = 3

// StrictLevel is the escalation level from which redo bodies switch to strict mode.
const StrictLevel = 2

// StrictBanner opens every strict-mode redo body.
const StrictBanner = "STRICT MODE: keep the solution minimal."

// Action is what the policy wants done about a rejection.
type Action string

const (
	ActionSkip       Action = "skip"
	ActionRedo       Action = "redo"
	ActionCapReached Action = "cap_reached"
)

// Policy holds the escalation settings.
type Policy struct {
	// Cap is the maximum number of rejections per root; zero means DefaultCap.
	Cap int
	// ExpectedExecutor restricts escalation to rejections of this agent's work; empty accepts any.
	ExpectedExecutor string
}

// Decision is the outcome of Decide.
type Decision struct {
	Action     Action
	Reason     string
	RootID     string
	Rejections int
	Level      int
	Strict     bool
	Redo       *model.CreateJobRequest
}

// RootID returns the id of the job family j belongs to.
func RootID(j *model.Job) string {
	if tags := jobtags.Parse(j.Text()); tags.RedoFor != "" {
		return tags.RedoFor
	}
	return j.ID
}

// Decide evaluates a rejected job against the rest of its family. jobs may
// contain any jobs; only those sharing the root are considered.
func (p Policy) Decide(rejected *model.Job, jobs []*model.Job) Decision {
	if rejected == nil || rejected.Status != model.JobStatusRejected {
		return Decision{Action: ActionSkip, Reason: "job is not rejected"}
	}
	if p.ExpectedExecutor != "" && rejected.SubmittedBy != p.ExpectedExecutor {
		return Decision{Action: ActionSkip, Reason: "submitted by " + rejected.SubmittedBy}
	}

	limit := p.Cap
	if limit <= 0 {
		limit = DefaultCap
	}

	root := RootID(rejected)
	d := Decision{RootID: root, Rejections: 1}

	var rootJob *model.Job
	for _, j := range jobs {
		if j.ID == root {
			rootJob = j
		}
		if j.ID == rejected.ID || RootID(j) != root {
			continue
		}
		if j.Status == model.JobStatusRejected {
			d.Rejections++
		}
		if issuedAfter(j, rejected) {
			d.Action = ActionSkip
			d.Reason = "redo " + j.ID + " already issued"
			return d
		}
	}

	if d.Rejections >= limit {
		d.Action = ActionCapReached
		d.Reason = fmt.Sprintf("%d rejections reached cap %d", d.Rejections, limit)
		return d
	}

	tags := jobtags.Parse(rejected.Text())
	d.Action = ActionRedo
	d.Level = tags.RedoLevel + 1
	d.Strict = d.Level >= StrictLevel
	source := rejected
	if rootJob != nil {
		source = rootJob
	}
	d.Redo = buildRedo(source, rejected, root, d.Level, d.Strict)
	return d
}

// issuedAfter reports whether j is a redo created after rejected was reviewed.
func issuedAfter(j, rejected *model.Job) bool {
	if rejected.ReviewedAt == nil || j.ID == RootID(j) {
		return false
	}
	return !j.CreatedAt.Before(*rejected.ReviewedAt)
}

// droppedTags are never copied from the original into a redo.
var droppedTags = map[string]bool{
	jobtags.RedoFor:   true,
	jobtags.RedoLevel: true,
	jobtags.RepeatOK:  true,
}

func buildRedo(original, rejected *model.Job, root string, level int, strict bool) *model.CreateJobRequest {
	title := strings.TrimSpace(jobtags.Strip(original.Title, dropped()...))
	title = strings.TrimPrefix(title, "Redo: ")

	var b strings.Builder
	if strict {
		b.WriteString(StrictBanner + "\n")
		fmt.Fprintf(&b, "Redo of job %s, level %d. Satisfy exactly the bullets below and nothing else.\n", root, level)
		writeBullets(&b, original.Body, "Acceptance criteria")
		writeBullets(&b, original.Body, "Evidence")
	} else {
		fmt.Fprintf(&b, "Redo of job %s: the previous attempt (%s) was rejected.\n", root, rejected.ID)
		if note := strings.TrimSpace(rejected.ReviewNote); note != "" {
			fmt.Fprintf(&b, "Reviewer note: %s\n", note)
		}
		b.WriteString("\n")
		b.WriteString(strings.TrimSpace(jobtags.Strip(original.Body, dropped()...)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if strict {
		// Strict bodies drop the free text, so the evidence contract tags are re-emitted.
		for _, tag := range jobtags.Scan(original.Body) {
			if !droppedTags[tag.Name] {
				b.WriteString(jobtags.Format(tag.Name, tag.Value) + " ")
			}
		}
	}
	b.WriteString(jobtags.Format(jobtags.RedoFor, root) + " ")
	b.WriteString(jobtags.Format(jobtags.RedoLevel, strconv.Itoa(level)))

	prefix := "Redo: "
	if strict {
		prefix = "Redo (strict): "
	}
	return &model.CreateJobRequest{
		Title:      prefix + title,
		Body:       b.String(),
		Reward:     rejected.Reward,
		CreatedBy:  rejected.CreatedBy,
		Source:     rejected.Source,
		RewardMode: model.RewardModeManual,
	}
}

func writeBullets(b *strings.Builder, body, heading string) {
	sec, ok := jobtags.FindSection(body, heading)
	if !ok {
		return
	}
	bullets := sec.Bullets()
	if len(bullets) == 0 && sec.Inline != "" {
		bullets = []string{sec.Inline}
	}
	if len(bullets) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%s:\n", heading)
	for _, item := range bullets {
		b.WriteString("- " + item + "\n")
	}
}

func dropped() []string {
	names := make([]string, 0, len(droppedTags))
	for n := range droppedTags {
		names = append(names, n)
	}
	return names
}
