package diagnostic

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paes-prep/backend/internal/models"
)

func config(total, ratio int) models.DiagnosticConfig {
	return models.DiagnosticConfig{
		Subject:        models.SubjectMath1,
		TotalQuestions: total,
		OfficialRatio:  ratio,
		Difficulty:     models.DifficultyIntermediate,
		UserContext:    &models.UserContext{UserID: "u1"},
	}
}

func TestCompose_BlendsByRatio(t *testing.T) {
	src := &fakeSource{official: officialPool(models.SubjectMath1, 20)}
	c := NewComposer(src, testComposerOpts()...)

	d, err := c.Compose(context.Background(), config(10, 70))
	require.NoError(t, err)

	assert.Len(t, d.Questions, 10)
	assert.Equal(t, 7, d.Metadata.OfficialCount)
	assert.Equal(t, 3, d.Metadata.GeneratedCount)
	assert.Equal(t, 0, d.Metadata.FallbackCount)
	assert.Equal(t, 14, d.Metadata.EstimatedCostSavings)
	assert.Equal(t, models.QualityPremium, d.Metadata.QualityTier)
	assert.Equal(t, "u1", d.UserID)
	assert.Equal(t, fixedNow, d.CreatedAt)
	assert.False(t, d.IsCompleted)

	srcs := countSources(d.Questions)
	assert.Equal(t, 7, srcs[models.SourceOfficial])
	assert.Equal(t, 3, srcs[models.SourceGenerated])
}

func TestCompose_StandardTierBelowThreshold(t *testing.T) {
	src := &fakeSource{official: officialPool(models.SubjectMath1, 20)}
	d, err := NewComposer(src, testComposerOpts()...).Compose(context.Background(), config(10, 50))
	require.NoError(t, err)

	assert.Equal(t, 5, d.Metadata.OfficialCount)
	assert.Equal(t, models.QualityStandard, d.Metadata.QualityTier)
}

func TestCompose_OfficialShortfallIsNotToppedUp(t *testing.T) {
	src := &fakeSource{official: officialPool(models.SubjectMath1, 2)}
	d, err := NewComposer(src, testComposerOpts()...).Compose(context.Background(), config(10, 70))
	require.NoError(t, err)

	assert.Len(t, d.Questions, 5)
	assert.Equal(t, 2, d.Metadata.OfficialCount)
	assert.Equal(t, 3, d.Metadata.GeneratedCount)
	assert.Equal(t, 4, d.Metadata.EstimatedCostSavings)
}

func TestCompose_OfficialErrorCountsAsEmpty(t *testing.T) {
	src := &fakeSource{officialErr: errors.New("bank down")}
	d, err := NewComposer(src, testComposerOpts()...).Compose(context.Background(), config(10, 70))
	require.NoError(t, err)

	assert.Len(t, d.Questions, 3)
	assert.Equal(t, 0, d.Metadata.OfficialCount)
	assert.Equal(t, 3, d.Metadata.GeneratedCount)
}

func TestCompose_FailedSlotsUseTemplates(t *testing.T) {
	src := &fakeSource{official: officialPool(models.SubjectMath1, 20), genFailAll: true}
	d, err := NewComposer(src, testComposerOpts()...).Compose(context.Background(), config(10, 70))
	require.NoError(t, err)

	assert.Len(t, d.Questions, 10)
	assert.Equal(t, 7, d.Metadata.OfficialCount)
	assert.Equal(t, 0, d.Metadata.GeneratedCount)
	assert.Equal(t, 3, d.Metadata.FallbackCount)
	assert.Equal(t, models.QualityPremium, d.Metadata.QualityTier)

	seen := map[string]bool{}
	for _, q := range d.Questions {
		assert.False(t, seen[q.ID], "duplicate id %s", q.ID)
		seen[q.ID] = true
	}
}

func TestCompose_NoContentAnywhereReturnsFallbackDiagnostic(t *testing.T) {
	src := &fakeSource{genFailAll: true}
	d, err := NewComposer(src, testComposerOpts()...).Compose(context.Background(), config(10, 70))
	require.NoError(t, err)

	assert.Len(t, d.Questions, 10)
	assert.Equal(t, models.QualityBasic, d.Metadata.QualityTier)
	assert.Equal(t, 0, d.Metadata.OfficialCount)
	assert.Equal(t, 0, d.Metadata.GeneratedCount)
	assert.Equal(t, 10, d.Metadata.FallbackCount)
	assert.Equal(t, 0, d.Metadata.EstimatedCostSavings)
	for _, q := range d.Questions {
		assert.Equal(t, models.SourceFallbackTemplate, q.Provenance.Source)
		assert.NoError(t, q.Validate())
	}
}

func TestCompose_InvalidConfig(t *testing.T) {
	c := NewComposer(&fakeSource{}, testComposerOpts()...)
	cases := map[string]models.DiagnosticConfig{
		"zero total":     config(0, 70),
		"above cap":      config(models.MaxTotalQuestions+1, 70),
		"huge total":     config(1<<40, 70),
		"ratio too high": config(10, 101),
		"negative ratio": config(10, -1),
		"bad subject":    {Subject: "LATIN", TotalQuestions: 5, OfficialRatio: 50, Difficulty: models.DifficultyBasic},
		"bad difficulty": {Subject: models.SubjectMath1, TotalQuestions: 5, OfficialRatio: 50, Difficulty: "insane"},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := c.Compose(context.Background(), cfg)
			assert.ErrorIs(t, err, models.ErrInvalidConfig)
		})
	}
}

func TestCompose_AllOfficialAndAllGenerated(t *testing.T) {
	src := &fakeSource{official: officialPool(models.SubjectMath1, 20)}
	c := NewComposer(src, testComposerOpts()...)

	d, err := c.Compose(context.Background(), config(6, 100))
	require.NoError(t, err)
	assert.Equal(t, 6, d.Metadata.OfficialCount)
	assert.Equal(t, 0, d.Metadata.GeneratedCount)
	assert.Empty(t, src.genSkills)

	d, err = c.Compose(context.Background(), config(6, 0))
	require.NoError(t, err)
	assert.Equal(t, 0, d.Metadata.OfficialCount)
	assert.Equal(t, 6, d.Metadata.GeneratedCount)
	assert.Equal(t, models.QualityStandard, d.Metadata.QualityTier)
}

func TestCompose_AdaptiveTargetsWeakSkills(t *testing.T) {
	src := &fakeSource{}
	cfg := config(4, 0)
	cfg.Adaptive = true
	cfg.UserContext.WeakSkills = []models.Skill{models.SkillModel, models.SkillTrackLocate}

	_, err := NewComposer(src, testComposerOpts()...).Compose(context.Background(), cfg)
	require.NoError(t, err)

	// TRACK_LOCATE belongs to reading and is ignored for MATH1.
	require.Len(t, src.genSkills, 4)
	for _, s := range src.genSkills {
		assert.Equal(t, models.SkillModel, s)
	}
}

func TestCompose_NonAdaptiveCyclesSubjectSkills(t *testing.T) {
	src := &fakeSource{}
	_, err := NewComposer(src, testComposerOpts()...).Compose(context.Background(), config(4, 0))
	require.NoError(t, err)

	assert.ElementsMatch(t, models.SubjectSkills[models.SubjectMath1], src.genSkills)
}

func TestCompose_ShufflesBlend(t *testing.T) {
	src := &fakeSource{official: officialPool(models.SubjectMath1, 20)}
	called := false
	opts := append(testComposerOpts(), WithShuffle(func(qs []models.Question) {
		called = true
		for i, j := 0, len(qs)-1; i < j; i, j = i+1, j-1 {
			qs[i], qs[j] = qs[j], qs[i]
		}
	}))

	d, err := NewComposer(src, opts...).Compose(context.Background(), config(10, 70))
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, models.SourceGenerated, d.Questions[0].Provenance.Source)
}
