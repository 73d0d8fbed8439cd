package metrics

import (
	"fmt"
	"math"
	"sort"

	"github.com/paes-prep/backend/internal/models"
)

const priorityCount = 2

// GlobalScore is the weighted sum of projected scores. Weights are not
// renormalized, so missing subjects deflate the score on purpose.
func GlobalScore(performances []models.SubjectPerformance) int {
	var total float64
	for _, p := range performances {
		total += float64(p.ProjectedScore) * SubjectWeight(p.SubjectID)
	}
	return int(math.Round(total))
}

// Aggregate combines per-subject results into UnifiedMetrics. An empty
// input yields a zero global score rather than an error.
func Aggregate(performances []models.SubjectPerformance) models.UnifiedMetrics {
	global := GlobalScore(performances)
	r := ClassifyReadiness(global)
	priority := PrioritySubjects(performances)

	return models.UnifiedMetrics{
		GlobalScore:      global,
		Readiness:        r.Tier,
		Confidence:       r.Confidence,
		WeeklyHours:      r.WeeklyHours,
		PrioritySubjects: priority,
		NextAction:       nextAction(r.Tier, priority),
		AdmissionChance:  AdmissionChance(global),
	}
}

// PrioritySubjects returns the two lowest-accuracy subjects, ascending.
// Ties keep input order.
func PrioritySubjects(performances []models.SubjectPerformance) []models.Subject {
	sorted := make([]models.SubjectPerformance, len(performances))
	copy(sorted, performances)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Accuracy < sorted[j].Accuracy
	})

	n := min(priorityCount, len(sorted))
	out := make([]models.Subject, 0, n)
	for _, p := range sorted[:n] {
		out = append(out, p.SubjectID)
	}
	return out
}

func nextAction(tier models.ReadinessTier, priority []models.Subject) string {
	if len(priority) == 0 {
		return "Completa tu primer diagnóstico para obtener recomendaciones personalizadas."
	}
	focus := priority[0].DisplayName()
	switch tier {
	case models.ReadinessExcellent:
		return fmt.Sprintf("Mantén tu ritmo con un ensayo completo semanal y pule %s.", focus)
	case models.ReadinessGood:
		return fmt.Sprintf("Practica ejercicios de nivel avanzado en %s.", focus)
	case models.ReadinessRegular:
		return fmt.Sprintf("Refuerza los contenidos base de %s con sesiones diarias.", focus)
	default:
		return fmt.Sprintf("Comienza un plan intensivo de %s desde los fundamentos.", focus)
	}
}
