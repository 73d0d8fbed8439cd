package metrics

import (
	"math"

	"github.com/paes-prep/backend/internal/models"
)

// SimulationTrend summarizes results ordered oldest first. LastDelta is the
// predicted-score change between the two most recent results.
func SimulationTrend(results []models.SimulationResult) models.SimulationHistory {
	h := models.SimulationHistory{Results: results}
	if h.Results == nil {
		h.Results = []models.SimulationResult{}
	}
	if len(results) == 0 {
		return h
	}

	total := 0
	for _, r := range results {
		total += r.Score
		if r.PredictedScore > h.BestPredictedScore {
			h.BestPredictedScore = r.PredictedScore
		}
	}
	h.AverageScore = math.Round(float64(total)/float64(len(results))*100) / 100

	if n := len(results); n >= 2 {
		h.LastDelta = results[n-1].PredictedScore - results[n-2].PredictedScore
	}
	return h
}
