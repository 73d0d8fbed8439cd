package content

import "github.com/paes-prep/backend/internal/models"

// DifficultyDistribution holds percentages per difficulty tier.
type DifficultyDistribution struct {
	Basic        int `json:"basic"`
	Intermediate int `json:"intermediate"`
	Advanced     int `json:"advanced"`
}

// ExamDistribution is the empirical mix of the real exam.
var ExamDistribution = DifficultyDistribution{Basic: 30, Intermediate: 50, Advanced: 20}

// Single puts the whole request on one tier.
func Single(d models.Difficulty) DifficultyDistribution {
	switch d {
	case models.DifficultyBasic:
		return DifficultyDistribution{Basic: 100}
	case models.DifficultyAdvanced:
		return DifficultyDistribution{Advanced: 100}
	default:
		return DifficultyDistribution{Intermediate: 100}
	}
}

// Split turns the percentages into counts. Basic and advanced are floored
// and intermediate absorbs the remainder, so the counts always sum to n.
func (d DifficultyDistribution) Split(n int) map[models.Difficulty]int {
	if n <= 0 {
		return map[models.Difficulty]int{}
	}
	basic := n * d.Basic / 100
	advanced := n * d.Advanced / 100
	if basic+advanced > n {
		advanced = n - basic
	}
	return map[models.Difficulty]int{
		models.DifficultyBasic:        basic,
		models.DifficultyIntermediate: n - basic - advanced,
		models.DifficultyAdvanced:     advanced,
	}
}
