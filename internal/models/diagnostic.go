package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type QualityTier string

const (
	QualityPremium  QualityTier = "premium"
	QualityStandard QualityTier = "standard"
	QualityBasic    QualityTier = "basic"
)

var ErrInvalidConfig = errors.New("invalid diagnostic config")

// MaxTotalQuestions bounds a single diagnostic. The longest simulation form has 80.
const MaxTotalQuestions = 100

type DiagnosticConfig struct {
	Subject        Subject      `json:"subject"`
	TotalQuestions int          `json:"total_questions"`
	OfficialRatio  int          `json:"official_ratio"`
	Difficulty     Difficulty   `json:"difficulty"`
	Adaptive       bool         `json:"adaptive"`
	UserContext    *UserContext `json:"user_context,omitempty"`
}

func (c DiagnosticConfig) Validate() error {
	var errs []string
	if !ValidSubjects[c.Subject] {
		errs = append(errs, fmt.Sprintf("unknown subject %q", c.Subject))
	}
	if c.TotalQuestions <= 0 {
		errs = append(errs, fmt.Sprintf("total_questions must be positive, got %d", c.TotalQuestions))
	} else if c.TotalQuestions > MaxTotalQuestions {
		errs = append(errs, fmt.Sprintf("total_questions must be at most %d, got %d", MaxTotalQuestions, c.TotalQuestions))
	}
	if c.OfficialRatio < 0 || c.OfficialRatio > 100 {
		errs = append(errs, fmt.Sprintf("official_ratio must be within [0, 100], got %d", c.OfficialRatio))
	}
	if !ValidDifficulties[c.Difficulty] {
		errs = append(errs, fmt.Sprintf("unknown difficulty %q", c.Difficulty))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(errs, "; "))
	}
	return nil
}

// Counts splits the total by the official ratio. The official share is
// floored; the remainder goes to generated content.
func (c DiagnosticConfig) Counts() (official, generated int) {
	if c.TotalQuestions <= 0 {
		return 0, 0
	}
	ratio := min(max(c.OfficialRatio, 0), 100)
	official = c.TotalQuestions * ratio / 100
	return official, c.TotalQuestions - official
}

type DiagnosticMetadata struct {
	OfficialCount        int         `json:"official_count"`
	GeneratedCount       int         `json:"generated_count"`
	FallbackCount        int         `json:"fallback_count"`
	EstimatedCostSavings int         `json:"estimated_cost_savings_cents"`
	QualityTier          QualityTier `json:"quality_tier"`
}

// ComposedDiagnostic is created once per composition. Only IsCompleted
// changes afterwards.
type ComposedDiagnostic struct {
	ID          string             `json:"id"`
	UserID      string             `json:"user_id,omitempty"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Subject     Subject            `json:"subject"`
	Questions   []Question         `json:"questions"`
	IsCompleted bool               `json:"is_completed"`
	Metadata    DiagnosticMetadata `json:"metadata"`
	CreatedAt   time.Time          `json:"created_at"`
}

// QuestionIndex maps question ids to their position.
func (d ComposedDiagnostic) QuestionIndex() map[string]int {
	idx := make(map[string]int, len(d.Questions))
	for i, q := range d.Questions {
		idx[q.ID] = i
	}
	return idx
}

// ── Request Types ─────────────────────────────────────

type ComposeRequest struct {
	Subject        string       `json:"subject"`
	TotalQuestions int          `json:"total_questions"`
	OfficialRatio  *int         `json:"official_ratio,omitempty"`
	Difficulty     Difficulty   `json:"difficulty"`
	Adaptive       bool         `json:"adaptive"`
	UserContext    *UserContext `json:"user_context,omitempty"`
}

type SubmitAnswersRequest struct {
	Answers []AnswerSubmission `json:"answers"`
}

type DiagnosticListResponse struct {
	Diagnostics []ComposedDiagnostic `json:"diagnostics"`
	Total       int                  `json:"total"`
}
