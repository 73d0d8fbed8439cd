package content

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/paes-prep/backend/internal/models"
)

// Bank is the validated official question bank.
type Bank interface {
	QueryValidatedQuestions(ctx context.Context, subject models.Subject, count int, dist DifficultyDistribution) ([]models.Question, error)
}

// Generative produces one question per call and may fail per call.
type Generative interface {
	GenerateQuestion(ctx context.Context, subject models.Subject, skill models.Skill, difficulty models.Difficulty, userCtx *models.UserContext) (models.Question, error)
}

// GenerationRequest describes generated content for one subject.
type GenerationRequest struct {
	Subject     models.Subject
	Count       int
	Difficulty  models.Difficulty
	Skill       models.Skill
	UserContext *models.UserContext
}

// Source returns between 0 and count questions. A short result is not an
// error; it tells the caller to fall back.
type Source interface {
	FetchOfficial(ctx context.Context, subject models.Subject, count int, difficulty models.Difficulty) ([]models.Question, error)
	FetchOfficialMix(ctx context.Context, subject models.Subject, count int, dist DifficultyDistribution) ([]models.Question, error)
	FetchGenerated(ctx context.Context, req GenerationRequest) ([]models.Question, error)
}

// Adapter normalizes both providers into uniform Question records.
type Adapter struct {
	bank Bank
	gen  Generative
	log  *slog.Logger
}

func NewAdapter(bank Bank, gen Generative, log *slog.Logger) *Adapter {
	if log == nil {
		log = slog.Default()
	}
	return &Adapter{bank: bank, gen: gen, log: log}
}

func (a *Adapter) FetchOfficial(ctx context.Context, subject models.Subject, count int, difficulty models.Difficulty) ([]models.Question, error) {
	return a.FetchOfficialMix(ctx, subject, count, Single(difficulty))
}

func (a *Adapter) FetchOfficialMix(ctx context.Context, subject models.Subject, count int, dist DifficultyDistribution) ([]models.Question, error) {
	if count <= 0 || a.bank == nil {
		return []models.Question{}, nil
	}
	rows, err := a.bank.QueryValidatedQuestions(ctx, subject, count, dist)
	if err != nil {
		return nil, fmt.Errorf("fetch official %s: %w", subject, err)
	}

	out := make([]models.Question, 0, min(len(rows), count))
	for _, q := range rows {
		if len(out) == count {
			break
		}
		q.Provenance.Source = models.SourceOfficial
		q.Provenance.CostEstimate = 0
		if q.Provenance.OriginalID == nil {
			id := q.ID
			q.Provenance.OriginalID = &id
		}
		if err := q.Validate(); err != nil {
			a.log.Warn("dropping invalid official question", "subject", subject, "question_id", q.ID, "error", err)
			continue
		}
		out = append(out, q.Clone())
	}
	return out, nil
}

// FetchGenerated issues one provider call per requested question. A failed
// call is logged and skipped; the remaining calls still run.
func (a *Adapter) FetchGenerated(ctx context.Context, req GenerationRequest) ([]models.Question, error) {
	if req.Count <= 0 || a.gen == nil {
		return []models.Question{}, nil
	}

	out := make([]models.Question, 0, req.Count)
	for i := 0; i < req.Count; i++ {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		skill := req.Skill
		if skill == "" {
			skill = SkillForSlot(req.Subject, i)
		}
		q, err := a.gen.GenerateQuestion(ctx, req.Subject, skill, req.Difficulty, req.UserContext)
		if err != nil {
			a.log.Warn("generation failed", "subject", req.Subject, "skill", skill, "error", err)
			continue
		}
		q.Provenance.Source = models.SourceGenerated
		if err := q.Validate(); err != nil {
			a.log.Warn("dropping invalid generated question", "subject", req.Subject, "error", err)
			continue
		}
		out = append(out, q)
	}
	return out, nil
}

// SkillForSlot cycles through the subject's skills so a batch covers all of them.
func SkillForSlot(subject models.Subject, slot int) models.Skill {
	skills := models.SubjectSkills[subject]
	if len(skills) == 0 {
		return ""
	}
	return skills[slot%len(skills)]
}
