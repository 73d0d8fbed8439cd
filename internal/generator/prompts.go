package generator

import (
	"fmt"
	"strings"

	"github.com/paes-prep/backend/internal/models"
)

var subjectGuidelines = map[models.Subject]string{
	models.SubjectReading: `COMPETENCIA LECTORA:
- Include a short text (60-150 words) inside the prompt: news excerpt, essay fragment, infographic description or literary passage
- The question must be answerable from the text alone
- Vary the text genre across questions`,

	models.SubjectMath1: `MATEMÁTICA M1:
- Numbers, algebra and functions, geometry, probability and statistics at the level of the common curriculum
- Quantities must be exact; prefer integers or simple fractions
- Show units when the context has them`,

	models.SubjectMath2: `MATEMÁTICA M2:
- Elective content: logarithms, trigonometry, advanced probability, real-number properties, advanced geometry
- Multi-step reasoning is expected at intermediate and advanced difficulty
- Quantities must be exact`,

	models.SubjectScience: `CIENCIAS:
- Biology, chemistry or physics from the common curriculum
- Prefer questions built around an experiment, a table of results or a described phenomenon
- Avoid trivia that depends on memorizing isolated data`,

	models.SubjectHistory: `HISTORIA Y CIENCIAS SOCIALES:
- Chilean and world history, geography and civic education
- Prefer questions that quote or describe a source and ask for analysis
- Never ask for isolated dates without context`,
}

var skillDescriptions = map[models.Skill]string{
	models.SkillTrackLocate:       "Rastrear-localizar: find explicit information in the text",
	models.SkillInterpretRelate:   "Interpretar-relacionar: infer meaning and relate parts of the text",
	models.SkillEvaluateReflect:   "Evaluar-reflexionar: judge the form, purpose or validity of the text",
	models.SkillSolveProblems:     "Resolver problemas: apply procedures to reach a numeric or algebraic result",
	models.SkillModel:             "Modelar: translate a situation into a mathematical model",
	models.SkillRepresent:         "Representar: move between tables, graphs, symbols and words",
	models.SkillArgueCommunicate:  "Argumentar y comunicar: evaluate the validity of a mathematical claim",
	models.SkillIdentifyTheories:  "Identificar teorías: recognize the scientific model behind a phenomenon",
	models.SkillProcessAnalyze:    "Procesar y analizar evidencia: read experimental data and draw conclusions",
	models.SkillApplyPrinciples:   "Aplicar principios: use a scientific law to predict an outcome",
	models.SkillAnalyzeSources:    "Analizar fuentes: extract and compare information from historical sources",
	models.SkillHistoricalThought: "Pensamiento temporal y espacial: place processes in time and space",
	models.SkillCriticalThinking:  "Pensamiento crítico: evaluate interpretations and multiple perspectives",
}

var difficultyGuidance = map[models.Difficulty]string{
	models.DifficultyBasic:        "One reasoning step. The correct option is clearly better than the distractors.",
	models.DifficultyIntermediate: "Two reasoning steps. At least one distractor reflects a common mistake.",
	models.DifficultyAdvanced:     "Three or more steps or subtle reading. Two distractors must be genuinely tempting.",
}

// SystemPrompt is the fixed role prompt for a subject.
func SystemPrompt(subject models.Subject) string {
	return fmt.Sprintf(`You are an expert item writer for the Chilean university admission exam (PAES), test: %s.
You write questions in Spanish that are indistinguishable from official DEMRE material.

STRUCTURE:
- One self-contained prompt; any text, data or source needed is included in the prompt
- Exactly 4 answer options, each a plain string without letter labels
- Exactly ONE correct option; correct_answer must repeat that option's text verbatim
- Distractors must each be wrong for an identifiable reason
- No catch-all options such as "Todas las anteriores" or "Ninguna de las anteriores"

EXPLANATION:
- 2-4 sentences explaining why the correct option is right and naming the mistake behind the strongest distractor

%s

You must respond with valid JSON only. No markdown, no explanation outside the JSON.`,
		subject.DisplayName(), subjectGuidelines[subject])
}

// BuildQuestionPrompt describes a single generation slot.
func BuildQuestionPrompt(subject models.Subject, skill models.Skill, difficulty models.Difficulty, userCtx *models.UserContext) string {
	var personalization string
	if userCtx != nil {
		var lines []string
		if len(userCtx.WeakSkills) > 0 {
			weak := make([]string, len(userCtx.WeakSkills))
			for i, s := range userCtx.WeakSkills {
				weak[i] = string(s)
			}
			lines = append(lines, "- Student weak skills: "+strings.Join(weak, ", "))
		}
		if len(userCtx.RecentErrors) > 0 {
			lines = append(lines, "- Recent mistakes to target: "+strings.Join(userCtx.RecentErrors, "; "))
		}
		if userCtx.TargetCareer != "" {
			lines = append(lines, "- Use contexts related to the student's target career: "+userCtx.TargetCareer)
		}
		if len(lines) > 0 {
			personalization = "\nPersonalization:\n" + strings.Join(lines, "\n") + "\n"
		}
	}

	return fmt.Sprintf(`Generate exactly 1 PAES question.

Test: %s
Skill: %s
Difficulty: %s (%s)
%s
Respond with this exact JSON structure:
{
  "prompt": "...",
  "options": ["...", "...", "...", "..."],
  "correct_answer": "...",
  "explanation": "..."
}`,
		subject.DisplayName(), skillDescriptions[skill], string(difficulty), difficultyGuidance[difficulty], personalization)
}

// SkillDescription returns the prompt wording used for a skill.
func SkillDescription(skill models.Skill) string {
	if d, ok := skillDescriptions[skill]; ok {
		return d
	}
	return string(skill)
}
