package diagnostic

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/paes-prep/backend/internal/content"
	"github.com/paes-prep/backend/internal/database"
	"github.com/paes-prep/backend/internal/models"
)

var fixedNow = time.Date(2026, 3, 11, 15, 0, 0, 0, time.UTC) // a Wednesday

func clock() time.Time { return fixedNow }

func noShuffle([]models.Question) {}

// fakeSource serves a fixed official pool and a generator that fails on
// selected skills or entirely.
type fakeSource struct {
	mu          sync.Mutex
	official    []models.Question
	officialErr error
	genFailAll  bool
	genSkills   []models.Skill
	mixCalls    []content.DifficultyDistribution
}

func (s *fakeSource) FetchOfficial(ctx context.Context, subject models.Subject, count int, difficulty models.Difficulty) ([]models.Question, error) {
	return s.FetchOfficialMix(ctx, subject, count, content.Single(difficulty))
}

func (s *fakeSource) FetchOfficialMix(_ context.Context, _ models.Subject, count int, dist content.DifficultyDistribution) ([]models.Question, error) {
	s.mu.Lock()
	s.mixCalls = append(s.mixCalls, dist)
	s.mu.Unlock()
	if s.officialErr != nil {
		return nil, s.officialErr
	}
	n := min(count, len(s.official))
	out := make([]models.Question, n)
	copy(out, s.official[:n])
	return out, nil
}

func (s *fakeSource) FetchGenerated(_ context.Context, req content.GenerationRequest) ([]models.Question, error) {
	s.mu.Lock()
	s.genSkills = append(s.genSkills, req.Skill)
	idx := len(s.genSkills)
	s.mu.Unlock()
	if s.genFailAll {
		return nil, errors.New("generator offline")
	}
	q := models.Question{
		ID:            fmt.Sprintf("gen-%d", idx),
		Prompt:        "generated prompt",
		Options:       []string{"a", "b", "c", "d"},
		CorrectAnswer: "a",
		Explanation:   "explanation",
		Difficulty:    req.Difficulty,
		Skill:         req.Skill,
		Subject:       req.Subject,
		Provenance:    models.Provenance{Source: models.SourceGenerated, CostEstimate: 2},
	}
	return []models.Question{q}, nil
}

func officialPool(subject models.Subject, n int) []models.Question {
	skills := models.SubjectSkills[subject]
	out := make([]models.Question, n)
	for i := range out {
		origin := fmt.Sprintf("bank-%d", i)
		out[i] = models.Question{
			ID:            fmt.Sprintf("off-%d", i),
			Prompt:        "official prompt",
			Options:       []string{"1", "2", "3", "4"},
			CorrectAnswer: "2",
			Explanation:   "explanation",
			Difficulty:    models.DifficultyIntermediate,
			Skill:         skills[i%len(skills)],
			Subject:       subject,
			Provenance:    models.Provenance{Source: models.SourceOfficial, OriginalID: &origin},
		}
	}
	return out
}

func countSources(qs []models.Question) map[models.Source]int {
	out := map[models.Source]int{}
	for _, q := range qs {
		out[q.Provenance.Source]++
	}
	return out
}

func testComposerOpts() []ComposerOption {
	n := 0
	var mu sync.Mutex
	return []ComposerOption{
		WithClock(clock),
		WithShuffle(noShuffle),
		WithIDGenerator(func() string {
			mu.Lock()
			defer mu.Unlock()
			n++
			return fmt.Sprintf("id-%d", n)
		}),
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := database.Open(context.Background(), database.DriverSQLite, "file::memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db, database.DriverSQLite, nil))
	return NewStore(db)
}
