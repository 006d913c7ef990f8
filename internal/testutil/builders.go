// Package testutil provides testing utilities and helpers for the workmarket service.
package testutil

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/target/workmarket/internal/domain/model"
)

// JobRequestBuilder provides a fluent interface for building CreateJobRequest objects for testing.
type JobRequestBuilder struct {
	req  *model.CreateJobRequest
	tags []string
}

// NewJobRequest creates a new JobRequestBuilder with sensible defaults.
func NewJobRequest() *JobRequestBuilder {
	return &JobRequestBuilder{
		req: &model.CreateJobRequest{
			Title:     "Summarize the quarterly report",
			Body:      "Read the attached report and list the three largest cost drivers.",
			Reward:    10,
			CreatedBy: "agent-proposer",
			Source:    model.SourceAgent,
		},
	}
}

// WithTitle sets the title.
func (b *JobRequestBuilder) WithTitle(title string) *JobRequestBuilder {
	b.req.Title = title
	return b
}

// WithBody sets the body.
func (b *JobRequestBuilder) WithBody(body string) *JobRequestBuilder {
	b.req.Body = body
	return b
}

// WithReward sets a manual reward.
func (b *JobRequestBuilder) WithReward(reward float64) *JobRequestBuilder {
	b.req.Reward = reward
	b.req.RewardMode = model.RewardModeManual
	return b
}

// WithCreator sets the creator.
func (b *JobRequestBuilder) WithCreator(creator string) *JobRequestBuilder {
	b.req.CreatedBy = creator
	return b
}

// WithParent sets the parent job.
func (b *JobRequestBuilder) WithParent(parentID string) *JobRequestBuilder {
	b.req.ParentJobID = &parentID
	return b
}

// WithSource sets the source.
func (b *JobRequestBuilder) WithSource(source model.Source) *JobRequestBuilder {
	b.req.Source = source
	return b
}

// WithRatings switches the request to auto_ratings mode.
func (b *JobRequestBuilder) WithRatings(r model.RewardRatings) *JobRequestBuilder {
	b.req.RewardMode = model.RewardModeAutoRatings
	b.req.Ratings = &r
	return b
}

// WithTag appends [name:value] to the body.
func (b *JobRequestBuilder) WithTag(name, value string) *JobRequestBuilder {
	b.tags = append(b.tags, fmt.Sprintf("[%s:%s]", name, value))
	return b
}

// Unique appends a random run tag so the request never collides with the dedup guard.
func (b *JobRequestBuilder) Unique() *JobRequestBuilder {
	b.req.Body += "\nReference " + uuid.NewString()
	return b
}

// Build returns the request.
func (b *JobRequestBuilder) Build() *model.CreateJobRequest {
	req := *b.req
	if len(b.tags) > 0 {
		req.Body = strings.TrimSpace(req.Body + "\n" + strings.Join(b.tags, " "))
	}
	return &req
}

// AcceptanceJobRequest returns a job with an acceptance-criteria contract.
func AcceptanceJobRequest() *model.CreateJobRequest {
	return NewJobRequest().
		WithTitle("Write a release checklist").
		WithBody("Produce a checklist for the next release.\n\n" +
			"Acceptance criteria:\n" +
			"- lists the database migration step\n" +
			"- names the rollback owner\n").
		Build()
}

// AcceptanceSubmission satisfies AcceptanceJobRequest.
func AcceptanceSubmission() string {
	return "Checklist attached.\n\nEvidence:\n" +
		"- lists the database migration step: step 3 runs migrate\n" +
		"- names the rollback owner: the on-call lead\n"
}

// JSONListJobRequest returns a json_list job requiring minItems items with keys.
func JSONListJobRequest(minItems int, keys ...string) *model.CreateJobRequest {
	b := NewJobRequest().
		WithTitle("Collect vendor price quotes").
		WithBody("Return a JSON array of vendor quotes.").
		WithTag("verifier", "json_list").
		WithTag("json_min_items", fmt.Sprint(minItems))
	if len(keys) > 0 {
		b.WithTag("json_required_keys", strings.Join(keys, ","))
	}
	return b.Build()
}

// EventSequence builds a consistent event stream for one job.
type EventSequence struct {
	jobID   string
	version int64
	at      time.Time
	events  []*model.JobEvent
}

// NewEventSequence starts a sequence for jobID; every event is one second after the previous.
func NewEventSequence(jobID string, start time.Time) *EventSequence {
	return &EventSequence{jobID: jobID, at: start}
}

func (s *EventSequence) add(typ model.EventType, actor string, payload any) *EventSequence {
	s.version++
	ev, err := model.NewJobEvent(s.jobID, s.version, typ, actor, payload, s.at)
	if err != nil {
		//nolint:forbidigo // test fixtures only carry encodable payloads
		panic(err)
	}
	s.events = append(s.events, ev)
	s.at = s.at.Add(time.Second)
	return s
}

// Created appends a created event.
func (s *EventSequence) Created(title, creator string, reward float64) *EventSequence {
	return s.add(model.EventCreated, creator, model.CreatedData{
		Title:      title,
		Body:       title + " body",
		Reward:     reward,
		CreatedBy:  creator,
		Source:     model.SourceAgent,
		RewardMode: model.RewardModeManual,
	})
}

// Claimed appends a claimed event.
func (s *EventSequence) Claimed(agent string) *EventSequence {
	return s.add(model.EventClaimed, agent, model.ClaimedData{Agent: agent})
}

// Submitted appends a submitted event.
func (s *EventSequence) Submitted(agent, submission string) *EventSequence {
	return s.add(model.EventSubmitted, agent, model.SubmittedData{Agent: agent, Submission: submission})
}

// Reviewed appends a reviewed event.
func (s *EventSequence) Reviewed(by string, approved bool) *EventSequence {
	return s.add(model.EventReviewed, by, model.ReviewedData{Approved: approved, By: by})
}

// Cancelled appends a cancelled event.
func (s *EventSequence) Cancelled(by string) *EventSequence {
	return s.add(model.EventCancelled, by, model.CancelledData{By: by})
}

// Events returns the built events.
func (s *EventSequence) Events() []*model.JobEvent {
	return s.events
}
