package scoring

import (
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/paes-prep/backend/internal/models"
)

// Engine scores answer submissions against a composed question set.
type Engine struct {
	log *slog.Logger
	now func() time.Time
}

type Option func(*Engine)

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithClock overrides the time source used for LastActivity/CompletedAt.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{log: slog.Default(), now: time.Now}
	for _, o := range opts {
		o(e)
	}
	return e
}

type tally struct {
	answered  int
	correct   int
	timeSpent float64
	results   []models.AnswerResult
	attempted map[models.Skill]int
	skillOK   map[models.Skill]int
}

// grade matches answers to questions by id. Unknown ids and repeated
// answers to the same question are skipped so they never reach the
// accuracy denominator.
func (e *Engine) grade(scope string, questions []models.Question, answers []models.AnswerSubmission) tally {
	byID := make(map[string]*models.Question, len(questions))
	for i := range questions {
		byID[questions[i].ID] = &questions[i]
	}

	t := tally{
		results:   make([]models.AnswerResult, 0, len(answers)),
		attempted: make(map[models.Skill]int),
		skillOK:   make(map[models.Skill]int),
	}
	seen := make(map[string]bool, len(answers))

	for _, a := range answers {
		q, ok := byID[a.QuestionID]
		if !ok {
			e.log.Warn("skipping answer for unknown question", "scope", scope, "question_id", a.QuestionID)
			continue
		}
		if seen[a.QuestionID] {
			e.log.Warn("skipping duplicate answer", "scope", scope, "question_id", a.QuestionID)
			continue
		}
		seen[a.QuestionID] = true

		correct := a.SelectedOption == q.CorrectAnswer
		spent := a.TimeSpentSeconds
		if spent < 0 || math.IsNaN(spent) {
			spent = 0
		}

		t.answered++
		t.timeSpent += spent
		t.attempted[q.Skill]++
		if correct {
			t.correct++
			t.skillOK[q.Skill]++
		}
		t.results = append(t.results, models.AnswerResult{
			QuestionID:       q.ID,
			SelectedOption:   a.SelectedOption,
			Correct:          correct,
			TimeSpentSeconds: spent,
		})
	}
	return t
}

// Score computes a SubjectPerformance for a diagnostic. Accuracy only counts
// answered questions; completion is reported separately via Completed.
func (e *Engine) Score(d models.ComposedDiagnostic, answers []models.AnswerSubmission) models.SubjectPerformance {
	t := e.grade(d.ID, d.Questions, answers)
	return e.performance(d.Subject, len(d.Questions), t)
}

// ScoreSimulation grades a simulation submission into a SimulationResult.
func (e *Engine) ScoreSimulation(sim models.Simulation, userID string, answers []models.AnswerSubmission) models.SimulationResult {
	t := e.grade(sim.ID, sim.Questions, answers)
	acc := Accuracy(t.correct, t.answered)

	skillPerf := make(map[models.Skill]float64, len(t.attempted))
	for skill, n := range t.attempted {
		skillPerf[skill] = math.Round(Accuracy(t.skillOK[skill], n)*100) / 100
	}

	return models.SimulationResult{
		SimulationID:     sim.ID,
		UserID:           userID,
		Subject:          sim.Subject,
		Score:            int(math.Round(acc)),
		TotalQuestions:   len(sim.Questions),
		CorrectAnswers:   t.correct,
		TimeSpentSeconds: t.timeSpent,
		Answers:          t.results,
		SkillPerformance: skillPerf,
		PredictedScore:   ProjectedScore(acc),
		CompletedAt:      e.now().UTC(),
	}
}

func (e *Engine) performance(subject models.Subject, total int, t tally) models.SubjectPerformance {
	acc := Accuracy(t.correct, t.answered)

	skillCorrect := make(map[models.Skill]int, len(t.attempted))
	for skill := range t.attempted {
		skillCorrect[skill] = t.skillOK[skill]
	}
	critical, strengths := ClassifySkills(skillCorrect)

	return models.SubjectPerformance{
		SubjectID:      subject,
		SubjectName:    subject.DisplayName(),
		SubjectCode:    subject.Code(),
		TotalQuestions: total,
		Completed:      t.answered,
		Correct:        t.correct,
		Accuracy:       acc,
		ProjectedScore: ProjectedScore(acc),
		LastActivity:   e.now().UTC(),
		SkillCorrect:   skillCorrect,
		CriticalAreas:  critical,
		Strengths:      strengths,
	}
}

// ClassifySkills splits a per-skill correct-count map into critical areas
// (< CriticalThreshold) and strengths (>= StrengthThreshold), each sorted.
func ClassifySkills(skillCorrect map[models.Skill]int) (critical, strengths []models.Skill) {
	critical = []models.Skill{}
	strengths = []models.Skill{}
	for skill, n := range skillCorrect {
		if n < CriticalThreshold {
			critical = append(critical, skill)
		}
		if n >= StrengthThreshold {
			strengths = append(strengths, skill)
		}
	}
	sort.Slice(critical, func(i, j int) bool { return critical[i] < critical[j] })
	sort.Slice(strengths, func(i, j int) bool { return strengths[i] < strengths[j] })
	return critical, strengths
}
