package diagnostic

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/paes-prep/backend/internal/content"
	"github.com/paes-prep/backend/internal/models"
)

var ErrNotFound = errors.New("not found")

// Store persists diagnostics, simulations and results, and serves the
// official question bank. Queries use $n placeholders, which both the
// Postgres drivers and modernc sqlite accept. Timestamps are unix millis.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// ── Question Bank ───────────────────────────────────────

func (s *Store) SaveQuestion(ctx context.Context, q models.Question, validated bool) error {
	opts, err := json.Marshal(q.Options)
	if err != nil {
		return fmt.Errorf("marshal options: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO questions (id, subject, skill, difficulty, prompt, options, correct_answer, explanation, validated, times_served, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		q.ID, q.Subject, q.Skill, q.Difficulty, q.Prompt, string(opts), q.CorrectAnswer, q.Explanation,
		validated, 0, time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("save question: %w", err)
	}
	return nil
}

// QueryValidatedQuestions returns up to count validated questions split by
// dist, least-served first, and bumps their served counter.
func (s *Store) QueryValidatedQuestions(ctx context.Context, subject models.Subject, count int, dist content.DifficultyDistribution) ([]models.Question, error) {
	var out []models.Question
	for _, d := range []models.Difficulty{models.DifficultyBasic, models.DifficultyIntermediate, models.DifficultyAdvanced} {
		n := dist.Split(count)[d]
		if n == 0 {
			continue
		}
		rows, err := s.db.QueryContext(ctx,
			`SELECT id, subject, skill, difficulty, prompt, options, correct_answer, explanation
			 FROM questions
			 WHERE subject = $1 AND difficulty = $2 AND validated = $3
			 ORDER BY times_served ASC, created_at ASC
			 LIMIT $4`,
			subject, d, true, n,
		)
		if err != nil {
			return nil, fmt.Errorf("query validated questions: %w", err)
		}
		qs, err := scanQuestions(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, qs...)
	}

	for _, q := range out {
		if _, err := s.db.ExecContext(ctx,
			`UPDATE questions SET times_served = times_served + 1 WHERE id = $1`, q.ID,
		); err != nil {
			return nil, fmt.Errorf("increment served: %w", err)
		}
	}
	return out, nil
}

func scanQuestions(rows *sql.Rows) ([]models.Question, error) {
	defer rows.Close()

	var out []models.Question
	for rows.Next() {
		var q models.Question
		var opts string
		if err := rows.Scan(&q.ID, &q.Subject, &q.Skill, &q.Difficulty, &q.Prompt, &opts, &q.CorrectAnswer, &q.Explanation); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		if err := json.Unmarshal([]byte(opts), &q.Options); err != nil {
			return nil, fmt.Errorf("decode options for %s: %w", q.ID, err)
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate questions: %w", err)
	}
	return out, nil
}

// ── Diagnostics ─────────────────────────────────────────

func (s *Store) SaveDiagnostic(ctx context.Context, d models.ComposedDiagnostic) error {
	qs, err := json.Marshal(d.Questions)
	if err != nil {
		return fmt.Errorf("marshal questions: %w", err)
	}
	meta, err := json.Marshal(d.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO diagnostics (id, user_id, title, description, subject, questions, is_completed, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		d.ID, d.UserID, d.Title, d.Description, d.Subject, string(qs), d.IsCompleted, string(meta), d.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("save diagnostic: %w", err)
	}
	return nil
}

const diagnosticCols = `id, user_id, title, description, subject, questions, is_completed, metadata, created_at`

func (s *Store) GetDiagnostic(ctx context.Context, id string) (*models.ComposedDiagnostic, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+diagnosticCols+` FROM diagnostics WHERE id = $1`, id)
	d, err := scanDiagnostic(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get diagnostic %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get diagnostic: %w", err)
	}
	return d, nil
}

func (s *Store) ListDiagnostics(ctx context.Context, userID string) ([]models.ComposedDiagnostic, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+diagnosticCols+` FROM diagnostics WHERE user_id = $1 ORDER BY created_at DESC, id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list diagnostics: %w", err)
	}
	defer rows.Close()

	out := []models.ComposedDiagnostic{}
	for rows.Next() {
		d, err := scanDiagnostic(rows)
		if err != nil {
			return nil, fmt.Errorf("list diagnostics: %w", err)
		}
		out = append(out, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list diagnostics: %w", err)
	}
	return out, nil
}

// MarkDiagnosticCompleted is the only in-place update on a diagnostic.
func (s *Store) MarkDiagnosticCompleted(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE diagnostics SET is_completed = $1 WHERE id = $2`, true, id)
	if err != nil {
		return fmt.Errorf("mark diagnostic completed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark diagnostic completed: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("mark diagnostic %s completed: %w", id, ErrNotFound)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDiagnostic(sc scanner) (*models.ComposedDiagnostic, error) {
	var d models.ComposedDiagnostic
	var qs, meta string
	var created int64
	if err := sc.Scan(&d.ID, &d.UserID, &d.Title, &d.Description, &d.Subject, &qs, &d.IsCompleted, &meta, &created); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(qs), &d.Questions); err != nil {
		return nil, fmt.Errorf("decode questions: %w", err)
	}
	if err := json.Unmarshal([]byte(meta), &d.Metadata); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	d.CreatedAt = time.UnixMilli(created).UTC()
	return &d, nil
}

// ── Simulations ─────────────────────────────────────────

func (s *Store) SaveSimulation(ctx context.Context, sim models.Simulation) error {
	qs, err := json.Marshal(sim.Questions)
	if err != nil {
		return fmt.Errorf("marshal questions: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO simulations (id, user_id, title, subject, mode, duration_minutes, total_questions,
		                          timed_mode, allow_navigation, show_answers, questions, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		sim.ID, sim.UserID, sim.Title, sim.Subject, sim.Mode, sim.DurationMinutes, sim.TotalQuestions,
		sim.TimedMode, sim.AllowNavigation, sim.ShowAnswers, string(qs), sim.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("save simulation: %w", err)
	}
	return nil
}

func (s *Store) GetSimulation(ctx context.Context, id string) (*models.Simulation, error) {
	var sim models.Simulation
	var qs string
	var created int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, title, subject, mode, duration_minutes, total_questions,
		        timed_mode, allow_navigation, show_answers, questions, created_at
		 FROM simulations WHERE id = $1`, id,
	).Scan(&sim.ID, &sim.UserID, &sim.Title, &sim.Subject, &sim.Mode, &sim.DurationMinutes, &sim.TotalQuestions,
		&sim.TimedMode, &sim.AllowNavigation, &sim.ShowAnswers, &qs, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get simulation %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get simulation: %w", err)
	}
	if err := json.Unmarshal([]byte(qs), &sim.Questions); err != nil {
		return nil, fmt.Errorf("decode simulation questions: %w", err)
	}
	sim.CreatedAt = time.UnixMilli(created).UTC()
	return &sim, nil
}

// ── Simulation Results (append-only) ────────────────────

func (s *Store) SaveSimulationResult(ctx context.Context, r models.SimulationResult) error {
	answers, err := json.Marshal(r.Answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}
	skills, err := json.Marshal(r.SkillPerformance)
	if err != nil {
		return fmt.Errorf("marshal skill performance: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO simulation_results (id, simulation_id, user_id, subject, score, total_questions, correct_answers,
		                                 time_spent_seconds, answers, skill_performance, predicted_score, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		r.ID, r.SimulationID, r.UserID, r.Subject, r.Score, r.TotalQuestions, r.CorrectAnswers,
		r.TimeSpentSeconds, string(answers), string(skills), r.PredictedScore, r.CompletedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("save simulation result: %w", err)
	}
	return nil
}

// ListSimulationResults returns a user's results, oldest first.
func (s *Store) ListSimulationResults(ctx context.Context, userID string) ([]models.SimulationResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, simulation_id, user_id, subject, score, total_questions, correct_answers,
		        time_spent_seconds, answers, skill_performance, predicted_score, completed_at
		 FROM simulation_results WHERE user_id = $1
		 ORDER BY completed_at ASC, id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list simulation results: %w", err)
	}
	defer rows.Close()

	out := []models.SimulationResult{}
	for rows.Next() {
		var r models.SimulationResult
		var answers, skills string
		var completed int64
		if err := rows.Scan(&r.ID, &r.SimulationID, &r.UserID, &r.Subject, &r.Score, &r.TotalQuestions, &r.CorrectAnswers,
			&r.TimeSpentSeconds, &answers, &skills, &r.PredictedScore, &completed); err != nil {
			return nil, fmt.Errorf("scan simulation result: %w", err)
		}
		if err := json.Unmarshal([]byte(answers), &r.Answers); err != nil {
			return nil, fmt.Errorf("decode answers: %w", err)
		}
		if err := json.Unmarshal([]byte(skills), &r.SkillPerformance); err != nil {
			return nil, fmt.Errorf("decode skill performance: %w", err)
		}
		r.CompletedAt = time.UnixMilli(completed).UTC()
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list simulation results: %w", err)
	}
	return out, nil
}

// ── Subject Performances (append-only history) ──────────

func (s *Store) SavePerformance(ctx context.Context, id, userID, diagnosticID string, p models.SubjectPerformance) error {
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal performance: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO subject_performances (id, user_id, diagnostic_id, subject, accuracy, projected_score, performance, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		id, userID, diagnosticID, p.SubjectID, p.Accuracy, p.ProjectedScore, string(body), p.LastActivity.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("save performance: %w", err)
	}
	return nil
}

// LatestPerformances returns the most recent performance per subject, in
// exam subject order.
func (s *Store) LatestPerformances(ctx context.Context, userID string) ([]models.SubjectPerformance, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT subject, performance FROM subject_performances
		 WHERE user_id = $1 ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("latest performances: %w", err)
	}
	defer rows.Close()

	latest := make(map[models.Subject]models.SubjectPerformance)
	for rows.Next() {
		var subject models.Subject
		var body string
		if err := rows.Scan(&subject, &body); err != nil {
			return nil, fmt.Errorf("scan performance: %w", err)
		}
		if _, seen := latest[subject]; seen {
			continue
		}
		var p models.SubjectPerformance
		if err := json.Unmarshal([]byte(body), &p); err != nil {
			return nil, fmt.Errorf("decode performance: %w", err)
		}
		latest[subject] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("latest performances: %w", err)
	}

	out := make([]models.SubjectPerformance, 0, len(latest))
	for _, subject := range models.AllSubjects {
		if p, ok := latest[subject]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}
