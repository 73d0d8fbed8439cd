package diagnostic

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/paes-prep/backend/internal/content"
	"github.com/paes-prep/backend/internal/models"
)

// SimulationSpecs mirror the real exam's fixed shape per test.
var SimulationSpecs = map[models.Subject]models.SimulationSpec{
	models.SubjectReading: {DurationMinutes: 90, TotalQuestions: 65},
	models.SubjectMath1:   {DurationMinutes: 140, TotalQuestions: 65},
	models.SubjectMath2:   {DurationMinutes: 140, TotalQuestions: 65},
	models.SubjectScience: {DurationMinutes: 140, TotalQuestions: 80},
	models.SubjectHistory: {DurationMinutes: 120, TotalQuestions: 65},
}

const (
	// ScheduledWeeks is the length of a simulation plan.
	ScheduledWeeks = 4
	scheduleHour   = 9
)

// SimulationComposer builds full-length exam simulations.
type SimulationComposer struct {
	source  content.Source
	log     *slog.Logger
	now     func() time.Time
	shuffle func([]models.Question)
	newID   func() string
}

func NewSimulationComposer(source content.Source, opts ...ComposerOption) *SimulationComposer {
	// Options are shared with Composer; apply them to a scratch value.
	base := NewComposer(source, opts...)
	return &SimulationComposer{
		source:  source,
		log:     base.log,
		now:     base.now,
		shuffle: base.shuffle,
		newID:   base.newID,
	}
}

// Generate pulls an official simulation using the exam difficulty mix. When
// the bank is empty the subject's template set is served instead, and the
// simulation reports the template count with a proportionally shorter time.
func (c *SimulationComposer) Generate(ctx context.Context, userID string, subject models.Subject, mode models.SimulationMode) (models.Simulation, error) {
	spec, ok := SimulationSpecs[subject]
	if !ok {
		return models.Simulation{}, fmt.Errorf("%w: no simulation shape for subject %q", models.ErrInvalidConfig, subject)
	}

	questions, err := c.source.FetchOfficialMix(ctx, subject, spec.TotalQuestions, content.ExamDistribution)
	if err != nil {
		c.log.Warn("official fetch failed for simulation", "subject", subject, "error", err)
		questions = nil
	}
	if len(questions) < spec.TotalQuestions {
		c.log.Warn("simulation shortfall", "subject", subject, "requested", spec.TotalQuestions, "received", len(questions))
	}
	shape := spec
	if len(questions) == 0 {
		questions = content.TemplateQuestions(subject)
		shape = spec.ScaledTo(len(questions))
		c.log.Warn("simulation served from templates", "subject", subject,
			"total_questions", shape.TotalQuestions, "duration_minutes", shape.DurationMinutes)
	}
	c.shuffle(questions)

	official := mode == models.ModeOfficial
	return models.Simulation{
		ID:              c.newID(),
		UserID:          userID,
		Title:           fmt.Sprintf("Simulacro %s", subject.DisplayName()),
		Subject:         subject,
		Mode:            mode,
		DurationMinutes: shape.DurationMinutes,
		TotalQuestions:  shape.TotalQuestions,
		TimedMode:       official,
		AllowNavigation: !official,
		ShowAnswers:     !official,
		Questions:       questions,
		CreatedAt:       c.now().UTC(),
	}, nil
}

// Schedule plans one official simulation per week for ScheduledWeeks weeks,
// cycling subjects in exam order. It only computes dates; nothing is stored.
func (c *SimulationComposer) Schedule(userID string) []models.ScheduledSimulation {
	first := NextSaturday(c.now())
	out := make([]models.ScheduledSimulation, 0, ScheduledWeeks)
	for week := 0; week < ScheduledWeeks; week++ {
		subject := models.AllSubjects[week%len(models.AllSubjects)]
		spec := SimulationSpecs[subject]
		out = append(out, models.ScheduledSimulation{
			Week:            week + 1,
			UserID:          userID,
			Subject:         subject,
			Title:           fmt.Sprintf("Simulacro semana %d: %s", week+1, subject.DisplayName()),
			Mode:            models.ModeOfficial,
			DurationMinutes: spec.DurationMinutes,
			TotalQuestions:  spec.TotalQuestions,
			ScheduledFor:    first.AddDate(0, 0, week*7),
		})
	}
	return out
}

// NextSaturday returns the upcoming Saturday at 09:00 in now's location.
// A Saturday before 09:00 counts as upcoming.
func NextSaturday(now time.Time) time.Time {
	days := (int(time.Saturday) - int(now.Weekday()) + 7) % 7
	candidate := time.Date(now.Year(), now.Month(), now.Day()+days, scheduleHour, 0, 0, 0, now.Location())
	if !candidate.After(now) {
		candidate = candidate.AddDate(0, 0, 7)
	}
	return candidate
}
