package generator

import (
	"strings"
	"testing"

	"github.com/paes-prep/backend/internal/models"
)

func TestAllSubjectsHaveGuidelines(t *testing.T) {
	for _, subject := range models.AllSubjects {
		if subjectGuidelines[subject] == "" {
			t.Errorf("subject %q has no guidelines", subject)
		}
	}
}

func TestAllSkillsHaveDescriptions(t *testing.T) {
	for skill := range models.ValidSkills {
		if skillDescriptions[skill] == "" {
			t.Errorf("skill %q has no description", skill)
		}
	}
}

func TestSystemPrompt(t *testing.T) {
	prompt := SystemPrompt(models.SubjectMath1)

	required := []string{"PAES", "Matemática M1", "Exactly 4 answer options", "correct_answer", "JSON"}
	for _, keyword := range required {
		if !strings.Contains(prompt, keyword) {
			t.Errorf("system prompt missing keyword %q", keyword)
		}
	}
}

func TestBuildQuestionPrompt(t *testing.T) {
	prompt := BuildQuestionPrompt(models.SubjectReading, models.SkillInterpretRelate, models.DifficultyAdvanced, nil)

	required := []string{"exactly 1", "Competencia Lectora", "Interpretar-relacionar", "advanced", `"options"`, `"correct_answer"`}
	for _, keyword := range required {
		if !strings.Contains(prompt, keyword) {
			t.Errorf("question prompt missing keyword %q", keyword)
		}
	}
	if strings.Contains(prompt, "Personalization") {
		t.Error("prompt without user context should not be personalized")
	}
}

func TestBuildQuestionPrompt_Personalized(t *testing.T) {
	userCtx := &models.UserContext{
		WeakSkills:   []models.Skill{models.SkillModel},
		RecentErrors: []string{"confunde porcentaje con proporción"},
		TargetCareer: "Ingeniería Civil",
	}
	prompt := BuildQuestionPrompt(models.SubjectMath1, models.SkillModel, models.DifficultyBasic, userCtx)

	for _, keyword := range []string{"Personalization", "MODEL", "porcentaje", "Ingeniería Civil"} {
		if !strings.Contains(prompt, keyword) {
			t.Errorf("personalized prompt missing %q", keyword)
		}
	}
}

func TestSkillDescription_Unknown(t *testing.T) {
	if got := SkillDescription(models.Skill("X")); got != "X" {
		t.Errorf("expected raw skill name, got %q", got)
	}
}
