package model

import "strings"

// AwaitingHumanReview prefixes outcome notes that must not trigger an automatic review.
const AwaitingHumanReview = "awaiting human review"

// Outcome is the result of running a verifier against a submission.
type Outcome struct {
	Matched      bool           `json:"matched"`
	OK           bool           `json:"ok"`
	Note         string         `json:"note"`
	VerifierName string         `json:"verifier_name"`
	Evidence     map[string]any `json:"evidence,omitempty"`
}

// AwaitingReview reports whether the outcome defers the decision to a human.
func (o Outcome) AwaitingReview() bool {
	return !o.OK && strings.HasPrefix(strings.ToLower(strings.TrimSpace(o.Note)), AwaitingHumanReview)
}

// Failed reports whether the outcome is a real failure that warrants automatic rejection.
func (o Outcome) Failed() bool {
	return !o.OK && !o.AwaitingReview()
}
