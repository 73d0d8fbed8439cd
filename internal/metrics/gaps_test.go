package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paes-prep/backend/internal/models"
)

func withSkills(p models.SubjectPerformance, skills map[models.Skill]int) models.SubjectPerformance {
	p.SkillCorrect = skills
	return p
}

func TestAnalyzeSkillGaps_Severity(t *testing.T) {
	perfs := []models.SubjectPerformance{
		withSkills(perf(models.SubjectMath1, 40, 430), map[models.Skill]int{
			models.SkillSolveProblems: 1,
			models.SkillModel:         4,
		}),
		withSkills(perf(models.SubjectMath2, 30, 360), map[models.Skill]int{
			models.SkillSolveProblems: 0,
			models.SkillModel:         1,
		}),
		withSkills(perf(models.SubjectScience, 50, 500), map[models.Skill]int{
			models.SkillSolveProblems:   1,
			models.SkillApplyPrinciples: 2,
		}),
	}

	gaps := AnalyzeSkillGaps(perfs)
	require.Len(t, gaps, 3)

	assert.Equal(t, models.SkillSolveProblems, gaps[0].Skill)
	assert.Equal(t, models.SeverityHigh, gaps[0].Severity)
	assert.Equal(t, 24, gaps[0].RecommendedHours)
	assert.Equal(t, []models.Subject{models.SubjectMath1, models.SubjectMath2, models.SubjectScience}, gaps[0].AffectedSubjects)

	byskill := map[models.Skill]models.SkillGap{}
	for _, g := range gaps {
		byskill[g.Skill] = g
	}
	assert.Equal(t, models.SeverityLow, byskill[models.SkillModel].Severity)
	assert.Equal(t, 8, byskill[models.SkillModel].RecommendedHours)
	assert.Equal(t, models.SeverityLow, byskill[models.SkillApplyPrinciples].Severity)
	assert.Equal(t, 0, byskill[models.SkillApplyPrinciples].RecommendedHours)
}

func TestAnalyzeSkillGaps_Medium(t *testing.T) {
	perfs := []models.SubjectPerformance{
		withSkills(perf(models.SubjectReading, 40, 430), map[models.Skill]int{models.SkillCriticalThinking: 0}),
		withSkills(perf(models.SubjectHistory, 40, 430), map[models.Skill]int{models.SkillCriticalThinking: 1}),
	}
	gaps := AnalyzeSkillGaps(perfs)
	require.Len(t, gaps, 1)
	assert.Equal(t, models.SeverityMedium, gaps[0].Severity)
	assert.Equal(t, 16, gaps[0].RecommendedHours)
}

func TestCompare(t *testing.T) {
	empty := Compare(nil)
	assert.Nil(t, empty.StrongestSubject)
	assert.Nil(t, empty.WeakestSubject)
	assert.Empty(t, empty.SkillGaps)

	c := Compare([]models.SubjectPerformance{
		perf(models.SubjectReading, 80, 710),
		perf(models.SubjectMath1, 40, 430),
		perf(models.SubjectHistory, 90, 780),
	})
	require.NotNil(t, c.StrongestSubject)
	require.NotNil(t, c.WeakestSubject)
	assert.Equal(t, models.SubjectHistory, *c.StrongestSubject)
	assert.Equal(t, models.SubjectMath1, *c.WeakestSubject)
	assert.Equal(t, Aggregate([]models.SubjectPerformance{
		perf(models.SubjectReading, 80, 710),
		perf(models.SubjectMath1, 40, 430),
		perf(models.SubjectHistory, 90, 780),
	}), c.Metrics)
}
