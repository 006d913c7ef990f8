// Package economy holds the pure parts of the marketplace economy: the reward
// calculator, payout rules and the ledger reference keys that make settlement idempotent.
package economy

import (
	"math"

	"github.com/target/workmarket/internal/domain/model"
)

// Weights applied to normalized ratings. Value-adding factors sum to 1; external
// tool need and risk subtract.
var Weights = map[string]float64{
	"complexity":         0.10,
	"difficulty":         0.10,
	"uniqueness":         0.08,
	"usefulness":         0.15,
	"money_potential":    0.12,
	"clarity":            0.07,
	"verifiability":      0.10,
	"impact":             0.12,
	"time_cost":          0.08,
	"learning_value":     0.08,
	"external_tool_need": -0.08,
	"risk":               -0.10,
}

// RewardBounds scales and clamps computed rewards.
type RewardBounds struct {
	Scale float64
	Min   float64
	Max   float64
}

// DefaultRewardBounds returns the bounds used when configuration leaves them unset.
func DefaultRewardBounds() RewardBounds {
	return RewardBounds{Scale: 100, Min: 1, Max: 100}
}

// ComputeReward derives a reward from ratings. Ratings must already be validated.
func ComputeReward(r model.RewardRatings, b RewardBounds) model.RewardCalc {
	if b.Scale <= 0 {
		b.Scale = DefaultRewardBounds().Scale
	}
	if b.Max < b.Min {
		b.Max = b.Min
	}

	var score float64
	for _, nr := range r.Named() {
		score += Weights[nr.Name] * normalize(nr.Value)
	}
	score = clamp(score, 0, 1)
	raw := score * b.Scale

	return model.RewardCalc{
		Ratings: r,
		Score:   round2(score),
		Raw:     round2(raw),
		Reward:  clamp(round2(raw), b.Min, b.Max),
		Min:     b.Min,
		Max:     b.Max,
	}
}

func normalize(v int) float64 {
	return clamp(float64(v-1)/9, 0, 1)
}

// Payout returns the approval payout: the requested amount when given, otherwise
// the full reward, never more than the reward.
func Payout(reward float64, requested *float64) float64 {
	p := reward
	if requested != nil {
		p = *requested
	}
	return clamp(round2(math.Min(p, reward)), 0, math.Max(reward, 0))
}

// ClampPenalty limits a penalty to what the account can pay.
func ClampPenalty(amount, balance float64) float64 {
	if amount <= 0 || balance <= 0 {
		return 0
	}
	return round2(math.Min(amount, balance))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// RoundAmount rounds a ledger amount to cents.
func RoundAmount(v float64) float64 {
	return round2(v)
}
