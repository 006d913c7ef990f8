// Package dedup guards job creation against near-duplicate proposals.
package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/target/workmarket/internal/domain/jobtags"
	"github.com/target/workmarket/internal/domain/model"
	apperrors "github.com/target/workmarket/internal/errors"
)

// DefaultThreshold is the Jaccard similarity at or above which a scoped job counts as a duplicate.
const DefaultThreshold = 0.92

// Options configures a Guard.
type Options struct {
	// Threshold is the token-set similarity cutoff; zero means DefaultThreshold.
	Threshold float64
	// Window bounds how far back "recent" reaches; zero compares against every job.
	Window time.Duration
	// Archetypes lists job kinds that may opt out with [repeat_ok:1].
	Archetypes []jobtags.ArchetypeRule
}

// Guard rejects proposals that duplicate a recent job.
type Guard struct {
	threshold  float64
	window     time.Duration
	archetypes []jobtags.ArchetypeRule
}

// NewGuard constructs a Guard.
func NewGuard(opts Options) *Guard {
	th := opts.Threshold
	if th <= 0 || th > 1 {
		th = DefaultThreshold
	}
	arch := opts.Archetypes
	if len(arch) == 0 {
		arch = jobtags.DefaultArchetypes()
	}
	return &Guard{threshold: th, window: opts.Window, archetypes: arch}
}

// Window returns how far back the guard looks; zero means unbounded.
func (g *Guard) Window() time.Duration {
	return g.window
}

// Proposal is the content under test.
type Proposal struct {
	Title     string
	Body      string
	CreatedBy string
	// ExcludeID skips the job being edited when re-checking an update.
	ExcludeID string
}

// Verdict is the result of a successful check.
type Verdict struct {
	Fingerprint string
	// Bypassed is set when [repeat_ok:1] and a repeatable archetype skipped the comparison.
	Bypassed  bool
	Archetype string
}

// Check computes the proposal fingerprint and compares it against recent jobs.
// It returns a duplicate_job error naming the matched job.
func (g *Guard) Check(p Proposal, recent []*model.Job, now time.Time) (Verdict, error) {
	text := p.Title + "\n" + p.Body
	tags := jobtags.Parse(text)
	v := Verdict{Fingerprint: Fingerprint(p.Title, p.Body)}

	if tags.RepeatOK {
		if arch := jobtags.MatchArchetype(g.archetypes, p.Title, tags); arch != "" {
			v.Bypassed = true
			v.Archetype = arch
			return v, nil
		}
	}

	tokens := Tokens(Normalize(p.Title, p.Body))
	family := tags.RedoFor

	for _, j := range recent {
		if j == nil || j.ID == p.ExcludeID || j.Status == model.JobStatusCancelled {
			continue
		}
		if g.window > 0 && now.Sub(j.CreatedAt) > g.window {
			continue
		}
		otherTags := jobtags.Parse(j.Text())
		if family != "" && (j.ID == family || otherTags.RedoFor == family) {
			continue
		}

		if j.Fingerprint != "" && j.Fingerprint == v.Fingerprint {
			return v, duplicate(j.ID, "identical content")
		}
		if !inScope(p.CreatedBy, tags.Run, j, otherTags.Run) {
			continue
		}
		sim := Jaccard(tokens, Tokens(Normalize(j.Title, j.Body)))
		if sim >= g.threshold {
			return v, duplicate(j.ID, fmt.Sprintf("similarity %.2f", sim))
		}
	}
	return v, nil
}

func inScope(creator, run string, j *model.Job, otherRun string) bool {
	if creator != "" && j.CreatedBy == creator {
		return true
	}
	return run != "" && run == otherRun
}

func duplicate(jobID, reason string) error {
	return &apperrors.AppError{
		Code:    apperrors.ErrCodeDuplicateJob,
		Message: "duplicate of job " + jobID + " (" + reason + ")",
		Field:   "body",
	}
}

// Normalize lowercases the text, removes run tags and collapses whitespace.
func Normalize(title, body string) string {
	text := jobtags.Strip(title+"\n"+body, jobtags.Run)
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// Fingerprint is the hex sha256 of the normalized title and body.
func Fingerprint(title, body string) string {
	sum := sha256.Sum256([]byte(Normalize(title, body)))
	return hex.EncodeToString(sum[:])
}

// Tokens splits normalized text into its set of alphanumeric words.
func Tokens(normalized string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.FieldsFunc(normalized, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		set[tok] = struct{}{}
	}
	return set
}

// Jaccard returns |a ∩ b| / |a ∪ b|; two empty sets are identical.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	inter := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}
