package scoring

import "math"

const (
	MinProjectedScore = 150
	MaxProjectedScore = 850

	// CriticalThreshold: a skill with fewer correct answers than this is a critical area.
	CriticalThreshold = 2
	// StrengthThreshold: a skill with at least this many correct answers is a strength.
	StrengthThreshold = 3
)

// ProjectedScore maps accuracy (0-100) onto the exam's 150-850 scale.
// Every projected score in the system goes through this function.
//
// accuracy=0:   150
// accuracy=50:  500
// accuracy=100: 850
func ProjectedScore(accuracy float64) int {
	if math.IsNaN(accuracy) {
		return MinProjectedScore
	}
	score := math.Round(MinProjectedScore + (accuracy/100)*(MaxProjectedScore-MinProjectedScore))
	if score < MinProjectedScore {
		score = MinProjectedScore
	}
	if score > MaxProjectedScore {
		score = MaxProjectedScore
	}
	return int(score)
}

// Accuracy returns correct/total as a percentage, 0 when nothing was answered.
func Accuracy(correct, total int) float64 {
	if total <= 0 {
		return 0
	}
	acc := float64(correct) / float64(total) * 100
	if acc > 100 {
		return 100
	}
	if acc < 0 {
		return 0
	}
	return acc
}
