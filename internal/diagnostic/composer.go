package diagnostic

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/paes-prep/backend/internal/content"
	"github.com/paes-prep/backend/internal/models"
)

const (
	// CostPerQuestionCents is the generation cost avoided by every official question.
	CostPerQuestionCents = 2
	// PremiumRatioThreshold is the minimum official ratio for the premium tier.
	PremiumRatioThreshold = 70
	// maxConcurrentSlots bounds the generated-slot fan-out.
	maxConcurrentSlots = 4
)

// Composer blends official and generated content into a diagnostic.
type Composer struct {
	source  content.Source
	log     *slog.Logger
	now     func() time.Time
	shuffle func([]models.Question)
	newID   func() string
}

type ComposerOption func(*Composer)

func WithLogger(l *slog.Logger) ComposerOption {
	return func(c *Composer) { c.log = l }
}

func WithClock(now func() time.Time) ComposerOption {
	return func(c *Composer) { c.now = now }
}

// WithShuffle replaces the Fisher-Yates shuffle, mostly for tests.
func WithShuffle(fn func([]models.Question)) ComposerOption {
	return func(c *Composer) { c.shuffle = fn }
}

func WithIDGenerator(fn func() string) ComposerOption {
	return func(c *Composer) { c.newID = fn }
}

func NewComposer(source content.Source, opts ...ComposerOption) *Composer {
	c := &Composer{
		source:  source,
		log:     slog.Default(),
		now:     time.Now,
		shuffle: shuffleQuestions,
		newID:   uuid.NewString,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func shuffleQuestions(qs []models.Question) {
	rand.Shuffle(len(qs), func(i, j int) { qs[i], qs[j] = qs[j], qs[i] })
}

type slotResult struct {
	question models.Question
	fallback bool
	ok       bool
}

// Compose builds a diagnostic for cfg. Content shortfalls never surface as
// errors; only an invalid config does.
func (c *Composer) Compose(ctx context.Context, cfg models.DiagnosticConfig) (models.ComposedDiagnostic, error) {
	if err := cfg.Validate(); err != nil {
		return models.ComposedDiagnostic{}, err
	}
	officialCount, generatedCount := cfg.Counts()

	official, err := c.source.FetchOfficial(ctx, cfg.Subject, officialCount, cfg.Difficulty)
	if err != nil {
		c.log.Warn("official fetch failed", "subject", cfg.Subject, "error", err)
		official = nil
	}
	if len(official) < officialCount {
		// Ratio wins over total count: the deficit is not topped up.
		c.log.Warn("official content shortfall",
			"subject", cfg.Subject, "requested", officialCount, "received", len(official))
	}

	slots := c.fillGeneratedSlots(ctx, cfg, generatedCount)

	generated := 0
	fallbacks := 0
	questions := make([]models.Question, 0, len(official)+len(slots))
	for _, q := range official {
		questions = append(questions, q.Clone())
	}
	for _, s := range slots {
		if !s.ok {
			continue
		}
		if s.fallback {
			fallbacks++
		} else {
			generated++
		}
		questions = append(questions, s.question)
	}

	if len(official) == 0 && generated == 0 {
		c.log.Warn("no content from any source, composing fallback diagnostic", "subject", cfg.Subject)
		return c.fallbackDiagnostic(cfg), nil
	}

	c.shuffle(questions)

	tier := models.QualityStandard
	if cfg.OfficialRatio >= PremiumRatioThreshold {
		tier = models.QualityPremium
	}

	return models.ComposedDiagnostic{
		ID:          c.newID(),
		UserID:      userIDOf(cfg.UserContext),
		Title:       fmt.Sprintf("Diagnóstico %s", cfg.Subject.DisplayName()),
		Description: fmt.Sprintf("%d preguntas oficiales y %d generadas", len(official), generated+fallbacks),
		Subject:     cfg.Subject,
		Questions:   questions,
		Metadata: models.DiagnosticMetadata{
			OfficialCount:        len(official),
			GeneratedCount:       generated,
			FallbackCount:        fallbacks,
			EstimatedCostSavings: len(official) * CostPerQuestionCents,
			QualityTier:          tier,
		},
		CreatedAt: c.now().UTC(),
	}, nil
}

// fillGeneratedSlots requests one question per slot concurrently. A failed
// or empty slot is replaced by a template question so the count holds.
func (c *Composer) fillGeneratedSlots(ctx context.Context, cfg models.DiagnosticConfig, n int) []slotResult {
	results := make([]slotResult, n)
	if n == 0 {
		return results
	}

	skills := slotSkills(cfg)

	var g errgroup.Group
	g.SetLimit(maxConcurrentSlots)
	for i := 0; i < n; i++ {
		skill := skills[i%len(skills)]
		g.Go(func() error {
			qs, err := c.source.FetchGenerated(ctx, content.GenerationRequest{
				Subject:     cfg.Subject,
				Count:       1,
				Difficulty:  cfg.Difficulty,
				Skill:       skill,
				UserContext: cfg.UserContext,
			})
			if err == nil && len(qs) > 0 {
				results[i] = slotResult{question: qs[0], ok: true}
				return nil
			}
			c.log.Warn("generated slot failed, using template", "subject", cfg.Subject, "slot", i, "skill", skill, "error", err)
			if q, ok := content.FallbackQuestion(cfg.Subject, skill, i); ok {
				results[i] = slotResult{question: q, fallback: true, ok: true}
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// slotSkills picks the skills generated slots cycle through. Adaptive mode
// targets the user's weak skills for this subject first.
func slotSkills(cfg models.DiagnosticConfig) []models.Skill {
	subjectSkills := models.SubjectSkills[cfg.Subject]
	if cfg.Adaptive && cfg.UserContext != nil {
		allowed := make(map[models.Skill]bool, len(subjectSkills))
		for _, s := range subjectSkills {
			allowed[s] = true
		}
		var weak []models.Skill
		for _, s := range cfg.UserContext.WeakSkills {
			if allowed[s] {
				weak = append(weak, s)
			}
		}
		if len(weak) > 0 {
			return weak
		}
	}
	return subjectSkills
}

func (c *Composer) fallbackDiagnostic(cfg models.DiagnosticConfig) models.ComposedDiagnostic {
	skills := models.SubjectSkills[cfg.Subject]
	questions := make([]models.Question, 0, cfg.TotalQuestions)
	for i := 0; i < cfg.TotalQuestions; i++ {
		if q, ok := content.FallbackQuestion(cfg.Subject, skills[i%len(skills)], i); ok {
			questions = append(questions, q)
		}
	}
	c.shuffle(questions)

	return models.ComposedDiagnostic{
		ID:          c.newID(),
		UserID:      userIDOf(cfg.UserContext),
		Title:       fmt.Sprintf("Diagnóstico %s", cfg.Subject.DisplayName()),
		Description: "Diagnóstico de respaldo con preguntas modelo",
		Subject:     cfg.Subject,
		Questions:   questions,
		Metadata: models.DiagnosticMetadata{
			FallbackCount: len(questions),
			QualityTier:   models.QualityBasic,
		},
		CreatedAt: c.now().UTC(),
	}
}

func userIDOf(u *models.UserContext) string {
	if u == nil {
		return ""
	}
	return u.UserID
}
