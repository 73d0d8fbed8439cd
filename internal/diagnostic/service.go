package diagnostic

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/paes-prep/backend/internal/content"
	"github.com/paes-prep/backend/internal/metrics"
	"github.com/paes-prep/backend/internal/models"
	"github.com/paes-prep/backend/internal/scoring"
)

// Defaults fills in omitted compose request fields.
type Defaults struct {
	OfficialRatio  int
	TotalQuestions int
	Difficulty     models.Difficulty
}

var DefaultSettings = Defaults{
	OfficialRatio:  70,
	TotalQuestions: 10,
	Difficulty:     models.DifficultyIntermediate,
}

// Service wires composition, scoring, aggregation and persistence. It also
// serves as the real backend behind the fallback controller.
type Service struct {
	store      *Store
	composer   *Composer
	simulation *SimulationComposer
	engine     *scoring.Engine
	defaults   Defaults
	log        *slog.Logger
}

func NewService(store *Store, composer *Composer, simulation *SimulationComposer, engine *scoring.Engine, defaults Defaults, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	if defaults.TotalQuestions <= 0 {
		defaults.TotalQuestions = DefaultSettings.TotalQuestions
	}
	if !models.ValidDifficulties[defaults.Difficulty] {
		defaults.Difficulty = DefaultSettings.Difficulty
	}
	return &Service{
		store:      store,
		composer:   composer,
		simulation: simulation,
		engine:     engine,
		defaults:   defaults,
		log:        log,
	}
}

// ── Diagnostics ─────────────────────────────────────────

// ComposeForUser composes and persists a diagnostic. Content shortfalls are
// absorbed by the composer; persistence failures are returned.
func (s *Service) ComposeForUser(ctx context.Context, userID string, req models.ComposeRequest) (*models.ComposedDiagnostic, error) {
	cfg, err := s.configFromRequest(userID, req)
	if err != nil {
		return nil, err
	}

	d, err := s.composer.Compose(ctx, cfg)
	if err != nil {
		return nil, err
	}
	d.UserID = userID

	if err := s.store.SaveDiagnostic(ctx, d); err != nil {
		return nil, err
	}
	s.log.Info("diagnostic composed",
		"user_id", userID, "diagnostic_id", d.ID, "subject", d.Subject,
		"official", d.Metadata.OfficialCount, "generated", d.Metadata.GeneratedCount,
		"fallback", d.Metadata.FallbackCount, "quality", d.Metadata.QualityTier)
	return &d, nil
}

func (s *Service) configFromRequest(userID string, req models.ComposeRequest) (models.DiagnosticConfig, error) {
	subject, err := models.ParseSubject(req.Subject)
	if err != nil {
		return models.DiagnosticConfig{}, fmt.Errorf("%w: %v", models.ErrInvalidConfig, err)
	}

	cfg := models.DiagnosticConfig{
		Subject:        subject,
		TotalQuestions: req.TotalQuestions,
		OfficialRatio:  s.defaults.OfficialRatio,
		Difficulty:     models.Difficulty(strings.ToLower(string(req.Difficulty))),
		Adaptive:       req.Adaptive,
		UserContext:    req.UserContext,
	}
	if cfg.TotalQuestions == 0 {
		cfg.TotalQuestions = s.defaults.TotalQuestions
	}
	if req.OfficialRatio != nil {
		cfg.OfficialRatio = *req.OfficialRatio
	}
	if cfg.Difficulty == "" {
		cfg.Difficulty = s.defaults.Difficulty
	}
	if cfg.UserContext == nil {
		cfg.UserContext = &models.UserContext{}
	} else {
		uc := *cfg.UserContext
		cfg.UserContext = &uc
	}
	cfg.UserContext.UserID = userID

	if err := cfg.Validate(); err != nil {
		return models.DiagnosticConfig{}, err
	}
	return cfg, nil
}

func (s *Service) ListDiagnostics(ctx context.Context, userID string) ([]models.ComposedDiagnostic, error) {
	return s.store.ListDiagnostics(ctx, userID)
}

// SubmitDiagnostic scores a diagnostic, appends the performance and marks
// the diagnostic completed.
// Demo diagnostics handed out by the fallback controller are scored from
// their static content; the performance is kept but nothing is marked completed.
func (s *Service) SubmitDiagnostic(ctx context.Context, userID, diagnosticID string, answers []models.AnswerSubmission) (*models.SubjectPerformance, error) {
	if strings.HasPrefix(diagnosticID, content.DemoIDPrefix) {
		return s.submitDemoDiagnostic(ctx, userID, diagnosticID, answers)
	}
	d, err := s.store.GetDiagnostic(ctx, diagnosticID)
	if err != nil {
		return nil, err
	}
	if d.UserID != userID {
		return nil, fmt.Errorf("diagnostic %s: %w", diagnosticID, ErrNotFound)
	}

	perf := s.engine.Score(*d, answers)

	if err := s.store.SavePerformance(ctx, uuid.NewString(), userID, d.ID, perf); err != nil {
		return nil, err
	}
	if err := s.store.MarkDiagnosticCompleted(ctx, d.ID); err != nil {
		return nil, err
	}
	s.log.Info("diagnostic scored",
		"user_id", userID, "diagnostic_id", d.ID, "accuracy", perf.Accuracy, "projected", perf.ProjectedScore)
	return &perf, nil
}

func (s *Service) submitDemoDiagnostic(ctx context.Context, userID, diagnosticID string, answers []models.AnswerSubmission) (*models.SubjectPerformance, error) {
	d, ok := content.DemoDiagnostic(diagnosticID, userID, time.Now())
	if !ok {
		return nil, fmt.Errorf("diagnostic %s: %w", diagnosticID, ErrNotFound)
	}
	perf := s.engine.Score(d, answers)
	if err := s.store.SavePerformance(ctx, uuid.NewString(), userID, d.ID, perf); err != nil {
		return nil, err
	}
	s.log.Info("demo diagnostic scored", "user_id", userID, "diagnostic_id", d.ID, "accuracy", perf.Accuracy)
	return &perf, nil
}

// ── Simulations ─────────────────────────────────────────

func (s *Service) CreateSimulation(ctx context.Context, userID string, req models.CreateSimulationRequest) (*models.Simulation, error) {
	subject, err := models.ParseSubject(req.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidConfig, err)
	}
	mode, err := models.ParseSimulationMode(req.Mode)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidConfig, err)
	}

	sim, err := s.simulation.Generate(ctx, userID, subject, mode)
	if err != nil {
		return nil, err
	}
	if err := s.store.SaveSimulation(ctx, sim); err != nil {
		return nil, err
	}
	return &sim, nil
}

// SubmitSimulation scores and appends a result. A failed write is returned
// so a user's exam result is never dropped silently.
func (s *Service) SubmitSimulation(ctx context.Context, userID, simulationID string, answers []models.AnswerSubmission) (*models.SimulationResult, error) {
	sim, err := s.store.GetSimulation(ctx, simulationID)
	if err != nil {
		return nil, err
	}
	if sim.UserID != userID {
		return nil, fmt.Errorf("simulation %s: %w", simulationID, ErrNotFound)
	}

	result := s.engine.ScoreSimulation(*sim, userID, answers)
	result.ID = uuid.NewString()

	if err := s.store.SaveSimulationResult(ctx, result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *Service) ScheduleSimulations(userID string) []models.ScheduledSimulation {
	return s.simulation.Schedule(userID)
}

func (s *Service) SimulationHistory(ctx context.Context, userID string) (models.SimulationHistory, error) {
	results, err := s.store.ListSimulationResults(ctx, userID)
	if err != nil {
		return models.SimulationHistory{}, err
	}
	return metrics.SimulationTrend(results), nil
}

// ── Metrics ─────────────────────────────────────────────

func (s *Service) UnifiedMetrics(ctx context.Context, userID string) (models.UnifiedMetrics, error) {
	perfs, err := s.store.LatestPerformances(ctx, userID)
	if err != nil {
		return models.UnifiedMetrics{}, err
	}
	return metrics.Aggregate(perfs), nil
}

func (s *Service) ComparativeAnalysis(ctx context.Context, userID string) (models.ComparativeAnalysis, error) {
	perfs, err := s.store.LatestPerformances(ctx, userID)
	if err != nil {
		return models.ComparativeAnalysis{}, err
	}
	return metrics.Compare(perfs), nil
}

// ── Fallback backend ────────────────────────────────────

func (s *Service) LoadDiagnostics(ctx context.Context, userID string) ([]models.ComposedDiagnostic, error) {
	return s.store.ListDiagnostics(ctx, userID)
}

// GenerateDefaults composes and stores one diagnostic per subject at the
// configured ratio. It fails only if nothing could be stored.
func (s *Service) GenerateDefaults(ctx context.Context, userID string) error {
	ratio := s.defaults.OfficialRatio
	var firstErr error
	stored := 0
	for _, subject := range models.AllSubjects {
		_, err := s.ComposeForUser(ctx, userID, models.ComposeRequest{
			Subject:        string(subject),
			TotalQuestions: s.defaults.TotalQuestions,
			OfficialRatio:  &ratio,
			Difficulty:     s.defaults.Difficulty,
		})
		if err != nil {
			s.log.Warn("default diagnostic failed", "user_id", userID, "subject", subject, "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		stored++
	}
	if stored == 0 && firstErr != nil {
		return fmt.Errorf("generate default diagnostics: %w", firstErr)
	}
	return nil
}
