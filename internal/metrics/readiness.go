package metrics

import (
	"math"

	"github.com/paes-prep/backend/internal/models"
)

// Tier cutoffs on the global weighted score.
const (
	ExcellentCutoff = 650
	GoodCutoff      = 550
	RegularCutoff   = 450
)

// DefaultSubjectWeight applies to any subject without a category weight.
const DefaultSubjectWeight = 0.2

var subjectWeights = map[models.Subject]float64{
	models.SubjectReading: 0.25,
	models.SubjectMath1:   0.35,
	models.SubjectMath2:   0.35,
	models.SubjectScience: 0.25,
	models.SubjectHistory: 0.15,
}

// SubjectWeight returns the weight of a subject in the global score.
func SubjectWeight(s models.Subject) float64 {
	if w, ok := subjectWeights[s]; ok {
		return w
	}
	return DefaultSubjectWeight
}

// Readiness is the tier classification derived from a global score.
type Readiness struct {
	Tier        models.ReadinessTier
	Confidence  int
	WeeklyHours int
}

// ClassifyReadiness maps a global score to its tier. Checks run in strictly
// descending order so the four tiers partition the score line.
func ClassifyReadiness(globalScore int) Readiness {
	switch {
	case globalScore >= ExcellentCutoff:
		return Readiness{Tier: models.ReadinessExcellent, Confidence: 90, WeeklyHours: 20}
	case globalScore >= GoodCutoff:
		return Readiness{Tier: models.ReadinessGood, Confidence: 75, WeeklyHours: 60}
	case globalScore >= RegularCutoff:
		return Readiness{Tier: models.ReadinessRegular, Confidence: 60, WeeklyHours: 100}
	default:
		return Readiness{Tier: models.ReadinessNeedsWork, Confidence: 40, WeeklyHours: 160}
	}
}

// AdmissionChance is a crude linear proxy, clamp((score-450)/4, 5, 95).
// It is not a calibrated probability.
func AdmissionChance(globalScore int) int {
	chance := float64(globalScore-RegularCutoff) / 4
	if chance < 5 {
		chance = 5
	}
	if chance > 95 {
		chance = 95
	}
	return int(math.Round(chance))
}
