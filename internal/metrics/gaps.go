package metrics

import (
	"sort"

	"github.com/paes-prep/backend/internal/models"
	"github.com/paes-prep/backend/internal/scoring"
)

const hoursPerAffectedSubject = 8

// AnalyzeSkillGaps counts, for every skill seen in any breakdown, how many
// subjects show fewer than scoring.CriticalThreshold correct answers.
func AnalyzeSkillGaps(performances []models.SubjectPerformance) []models.SkillGap {
	affected := make(map[models.Skill][]models.Subject)
	var order []models.Skill

	for _, p := range performances {
		skills := make([]models.Skill, 0, len(p.SkillCorrect))
		for skill := range p.SkillCorrect {
			skills = append(skills, skill)
		}
		sort.Slice(skills, func(i, j int) bool { return skills[i] < skills[j] })

		for _, skill := range skills {
			if _, ok := affected[skill]; !ok {
				affected[skill] = []models.Subject{}
				order = append(order, skill)
			}
			if p.SkillCorrect[skill] < scoring.CriticalThreshold {
				affected[skill] = append(affected[skill], p.SubjectID)
			}
		}
	}

	gaps := make([]models.SkillGap, 0, len(order))
	for _, skill := range order {
		subjects := affected[skill]
		gaps = append(gaps, models.SkillGap{
			Skill:            skill,
			AffectedSubjects: subjects,
			Severity:         severity(len(subjects)),
			RecommendedHours: len(subjects) * hoursPerAffectedSubject,
		})
	}

	sort.SliceStable(gaps, func(i, j int) bool {
		return len(gaps[i].AffectedSubjects) > len(gaps[j].AffectedSubjects)
	})
	return gaps
}

func severity(affected int) models.Severity {
	switch {
	case affected >= 3:
		return models.SeverityHigh
	case affected == 2:
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}

// Compare runs the comparative-analysis variant: unified metrics plus skill
// gaps and the extreme subjects by accuracy.
func Compare(performances []models.SubjectPerformance) models.ComparativeAnalysis {
	out := models.ComparativeAnalysis{
		Metrics:   Aggregate(performances),
		SkillGaps: AnalyzeSkillGaps(performances),
	}
	if len(performances) == 0 {
		return out
	}

	strongest, weakest := performances[0], performances[0]
	for _, p := range performances[1:] {
		if p.Accuracy > strongest.Accuracy {
			strongest = p
		}
		if p.Accuracy < weakest.Accuracy {
			weakest = p
		}
	}
	out.StrongestSubject = &strongest.SubjectID
	out.WeakestSubject = &weakest.SubjectID
	return out
}
