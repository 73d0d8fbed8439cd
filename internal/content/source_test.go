package content

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paes-prep/backend/internal/models"
)

type fakeBank struct {
	questions []models.Question
	err       error
	lastDist  DifficultyDistribution
}

func (b *fakeBank) QueryValidatedQuestions(_ context.Context, _ models.Subject, count int, dist DifficultyDistribution) ([]models.Question, error) {
	b.lastDist = dist
	if b.err != nil {
		return nil, b.err
	}
	return b.questions, nil
}

type fakeGen struct {
	failOn map[int]bool
	calls  int
	skills []models.Skill
}

func (g *fakeGen) GenerateQuestion(_ context.Context, subject models.Subject, skill models.Skill, difficulty models.Difficulty, _ *models.UserContext) (models.Question, error) {
	n := g.calls
	g.calls++
	g.skills = append(g.skills, skill)
	if g.failOn[n] {
		return models.Question{}, errors.New("provider unavailable")
	}
	return models.Question{
		ID:            fmt.Sprintf("gen-%d", n),
		Prompt:        "generated prompt",
		Options:       []string{"a", "b"},
		CorrectAnswer: "a",
		Explanation:   "because",
		Difficulty:    difficulty,
		Skill:         skill,
		Subject:       subject,
	}, nil
}

func officialQuestion(id string) models.Question {
	return models.Question{
		ID:            id,
		Prompt:        "official prompt",
		Options:       []string{"1", "2", "3", "4"},
		CorrectAnswer: "2",
		Explanation:   "explanation",
		Difficulty:    models.DifficultyIntermediate,
		Skill:         models.SkillSolveProblems,
		Subject:       models.SubjectMath1,
	}
}

func TestFetchOfficial_TagsProvenance(t *testing.T) {
	bank := &fakeBank{questions: []models.Question{officialQuestion("q1"), officialQuestion("q2")}}
	a := NewAdapter(bank, nil, nil)

	got, err := a.FetchOfficial(context.Background(), models.SubjectMath1, 5, models.DifficultyAdvanced)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, Single(models.DifficultyAdvanced), bank.lastDist)
	for _, q := range got {
		assert.Equal(t, models.SourceOfficial, q.Provenance.Source)
		require.NotNil(t, q.Provenance.OriginalID)
		assert.Equal(t, q.ID, *q.Provenance.OriginalID)
	}
}

func TestFetchOfficial_CapsAndDropsInvalid(t *testing.T) {
	bad := officialQuestion("bad")
	bad.CorrectAnswer = "99"
	bank := &fakeBank{questions: []models.Question{bad, officialQuestion("q1"), officialQuestion("q2"), officialQuestion("q3")}}
	a := NewAdapter(bank, nil, nil)

	got, err := a.FetchOfficialMix(context.Background(), models.SubjectMath1, 2, ExamDistribution)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "q1", got[0].ID)
	assert.Equal(t, "q2", got[1].ID)
}

func TestFetchOfficial_ZeroCountSkipsBank(t *testing.T) {
	bank := &fakeBank{err: errors.New("should not be called")}
	a := NewAdapter(bank, nil, nil)

	got, err := a.FetchOfficial(context.Background(), models.SubjectMath1, 0, models.DifficultyBasic)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFetchOfficial_BankError(t *testing.T) {
	a := NewAdapter(&fakeBank{err: errors.New("connection refused")}, nil, nil)

	_, err := a.FetchOfficial(context.Background(), models.SubjectMath1, 3, models.DifficultyBasic)
	assert.ErrorContains(t, err, "connection refused")
}

func TestFetchGenerated_IndividualFailuresDoNotAbort(t *testing.T) {
	gen := &fakeGen{failOn: map[int]bool{1: true}}
	a := NewAdapter(nil, gen, nil)

	got, err := a.FetchGenerated(context.Background(), GenerationRequest{
		Subject:    models.SubjectMath1,
		Count:      4,
		Difficulty: models.DifficultyBasic,
	})
	require.NoError(t, err)
	assert.Len(t, got, 3)
	assert.Equal(t, 4, gen.calls)
	assert.Equal(t, []models.Skill{
		models.SkillSolveProblems, models.SkillModel, models.SkillRepresent, models.SkillArgueCommunicate,
	}, gen.skills)
	for _, q := range got {
		assert.Equal(t, models.SourceGenerated, q.Provenance.Source)
	}
}

func TestFetchGenerated_FixedSkill(t *testing.T) {
	gen := &fakeGen{}
	a := NewAdapter(nil, gen, nil)

	_, err := a.FetchGenerated(context.Background(), GenerationRequest{
		Subject:    models.SubjectReading,
		Count:      2,
		Difficulty: models.DifficultyBasic,
		Skill:      models.SkillEvaluateReflect,
	})
	require.NoError(t, err)
	assert.Equal(t, []models.Skill{models.SkillEvaluateReflect, models.SkillEvaluateReflect}, gen.skills)
}

func TestFetchGenerated_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	gen := &fakeGen{}
	a := NewAdapter(nil, gen, nil)

	got, err := a.FetchGenerated(ctx, GenerationRequest{Subject: models.SubjectMath1, Count: 3, Difficulty: models.DifficultyBasic})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, got)
	assert.Zero(t, gen.calls)
}
