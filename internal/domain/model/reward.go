package model

import "fmt"

// RewardRatings are the twelve 1-10 ratings used by the auto_ratings reward mode.
type RewardRatings struct {
	Complexity       int `json:"complexity"        yaml:"complexity"`
	Difficulty       int `json:"difficulty"        yaml:"difficulty"`
	ExternalToolNeed int `json:"external_tool_need" yaml:"external_tool_need"`
	Uniqueness       int `json:"uniqueness"        yaml:"uniqueness"`
	Usefulness       int `json:"usefulness"        yaml:"usefulness"`
	MoneyPotential   int `json:"money_potential"   yaml:"money_potential"`
	Clarity          int `json:"clarity"           yaml:"clarity"`
	Verifiability    int `json:"verifiability"     yaml:"verifiability"`
	Impact           int `json:"impact"            yaml:"impact"`
	TimeCost         int `json:"time_cost"         yaml:"time_cost"`
	Risk             int `json:"risk"              yaml:"risk"`
	LearningValue    int `json:"learning_value"    yaml:"learning_value"`
}

// Named returns the ratings keyed by their wire names, in a fixed order.
func (r RewardRatings) Named() []NamedRating {
	return []NamedRating{
		{"complexity", r.Complexity},
		{"difficulty", r.Difficulty},
		{"external_tool_need", r.ExternalToolNeed},
		{"uniqueness", r.Uniqueness},
		{"usefulness", r.Usefulness},
		{"money_potential", r.MoneyPotential},
		{"clarity", r.Clarity},
		{"verifiability", r.Verifiability},
		{"impact", r.Impact},
		{"time_cost", r.TimeCost},
		{"risk", r.Risk},
		{"learning_value", r.LearningValue},
	}
}

// NamedRating pairs a rating with its name.
type NamedRating struct {
	Name  string
	Value int
}

// Validate checks every rating is within 1..10.
func (r RewardRatings) Validate() error {
	for _, nr := range r.Named() {
		if nr.Value < 1 || nr.Value > 10 {
			return fmt.Errorf("%s must be between 1 and 10, got %d", nr.Name, nr.Value)
		}
	}
	return nil
}

// RewardCalc records how an automatic reward was derived.
type RewardCalc struct {
	Ratings RewardRatings `json:"ratings"`
	// Score is the clamped weighted sum in [0,1].
	Score float64 `json:"score"`
	// Raw is Score multiplied by the scale before clamping to the reward bounds.
	Raw    float64 `json:"raw"`
	Reward float64 `json:"reward"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}
