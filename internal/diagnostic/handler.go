package diagnostic

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/paes-prep/backend/internal/fallback"
	"github.com/paes-prep/backend/internal/middleware"
	"github.com/paes-prep/backend/internal/models"
)

// DefaultRequestTimeout bounds composition requests, which may fan out to
// the question generator.
const DefaultRequestTimeout = 60 * time.Second

// ControllerIdleTTL is how long a settled bootstrap controller is kept after
// its last use. Later calls start over from INIT.
const ControllerIdleTTL = 30 * time.Minute

type trackedController struct {
	*fallback.Controller
	lastUsed time.Time
}

type Handler struct {
	service *Service
	log     *slog.Logger
	timeout time.Duration
	now     func() time.Time

	mu          sync.Mutex
	controllers map[string]*trackedController
}

func NewHandler(service *Service, timeout time.Duration, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &Handler{
		service:     service,
		log:         log,
		timeout:     timeout,
		now:         time.Now,
		controllers: make(map[string]*trackedController),
	}
}

// RegisterRoutes mounts every endpoint on r. Routes expect the auth
// middleware to have put a user id in the context.
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/diagnostics", h.ComposeDiagnostic).Methods("POST")
	r.HandleFunc("/diagnostics", h.ListDiagnostics).Methods("GET")
	r.HandleFunc("/diagnostics/bootstrap", h.Bootstrap).Methods("POST")
	r.HandleFunc("/diagnostics/bootstrap/retry", h.RetryBootstrap).Methods("POST")
	r.HandleFunc("/diagnostics/bootstrap/status", h.BootstrapStatus).Methods("GET")
	r.HandleFunc("/diagnostics/{id}/submit", h.SubmitDiagnostic).Methods("POST")

	r.HandleFunc("/simulations", h.CreateSimulation).Methods("POST")
	r.HandleFunc("/simulations/schedule", h.ScheduleSimulations).Methods("GET")
	r.HandleFunc("/simulations/history", h.SimulationHistory).Methods("GET")
	r.HandleFunc("/simulations/{id}/submit", h.SubmitSimulation).Methods("POST")

	r.HandleFunc("/metrics", h.UnifiedMetrics).Methods("GET")
	r.HandleFunc("/metrics/comparative", h.ComparativeAnalysis).Methods("GET")
}

func (h *Handler) withTimeout(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), h.timeout)
}

func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Unauthorized"})
	}
	return userID, ok
}

// writeServiceError maps service errors onto status codes.
func (h *Handler) writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, models.ErrInvalidConfig):
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
	case errors.Is(err, ErrNotFound):
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "Not found"})
	case errors.Is(err, context.DeadlineExceeded):
		writeJSON(w, http.StatusGatewayTimeout, models.ErrorResponse{Error: "Request timed out"})
	default:
		h.log.Error(op+" failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to " + op})
	}
}

// ── Diagnostics ─────────────────────────────────────────

func (h *Handler) ComposeDiagnostic(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req models.ComposeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	ctx, cancel := h.withTimeout(r)
	defer cancel()

	d, err := h.service.ComposeForUser(ctx, userID, req)
	if err != nil {
		h.writeServiceError(w, "compose diagnostic", err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

func (h *Handler) ListDiagnostics(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	diags, err := h.service.ListDiagnostics(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, "list diagnostics", err)
		return
	}
	writeJSON(w, http.StatusOK, models.DiagnosticListResponse{Diagnostics: diags, Total: len(diags)})
}

func (h *Handler) SubmitDiagnostic(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req models.SubmitAnswersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	perf, err := h.service.SubmitDiagnostic(r.Context(), userID, mux.Vars(r)["id"], req.Answers)
	if err != nil {
		h.writeServiceError(w, "submit diagnostic", err)
		return
	}
	writeJSON(w, http.StatusOK, perf)
}

// ── Bootstrap ───────────────────────────────────────────

func (h *Handler) controllerFor(userID string) *fallback.Controller {
	h.mu.Lock()
	defer h.mu.Unlock()
	now := h.now()
	h.evictIdleLocked(now)

	c, ok := h.controllers[userID]
	if !ok {
		log := h.log.With("user_id", userID)
		c = &trackedController{Controller: fallback.NewController(h.service,
			fallback.WithLogger(log),
			fallback.WithObserver(func(s fallback.Status) {
				log.Debug("bootstrap transition", "state", s.State, "progress", s.Progress)
			}),
		)}
		h.controllers[userID] = c
	}
	c.lastUsed = now
	return c.Controller
}

// evictIdleLocked drops controllers unused for ControllerIdleTTL. A
// controller with a run in flight is kept regardless of age.
func (h *Handler) evictIdleLocked(now time.Time) {
	for userID, c := range h.controllers {
		if now.Sub(c.lastUsed) < ControllerIdleTTL || c.Running() {
			continue
		}
		delete(h.controllers, userID)
		h.log.Debug("bootstrap controller evicted", "user_id", userID)
	}
}

// Bootstrap resolves the user's starting diagnostics, degrading to default
// then demo content. It always answers 200 unless a run is in flight.
func (h *Handler) Bootstrap(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	ctx, cancel := h.withTimeout(r)
	defer cancel()

	res, err := h.controllerFor(userID).Start(ctx, userID)
	h.writeBootstrap(w, res, err)
}

func (h *Handler) RetryBootstrap(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	ctx, cancel := h.withTimeout(r)
	defer cancel()

	c := h.controllerFor(userID)
	var (
		res fallback.Result
		err error
	)
	if c.Status().State == fallback.StateInit {
		res, err = c.Start(ctx, userID)
	} else {
		res, err = c.Retry(ctx)
	}
	h.writeBootstrap(w, res, err)
}

func (h *Handler) BootstrapStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.controllerFor(userID).Status())
}

func (h *Handler) writeBootstrap(w http.ResponseWriter, res fallback.Result, err error) {
	if errors.Is(err, fallback.ErrInFlight) {
		writeJSON(w, http.StatusConflict, models.ErrorResponse{Error: err.Error()})
		return
	}
	if res.Diagnostics == nil {
		res.Diagnostics = []models.ComposedDiagnostic{}
	}
	writeJSON(w, http.StatusOK, res)
}

// ── Simulations ─────────────────────────────────────────

func (h *Handler) CreateSimulation(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req models.CreateSimulationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	ctx, cancel := h.withTimeout(r)
	defer cancel()

	sim, err := h.service.CreateSimulation(ctx, userID, req)
	if err != nil {
		h.writeServiceError(w, "create simulation", err)
		return
	}
	writeJSON(w, http.StatusCreated, redactSimulation(*sim))
}

// redactSimulation hides answers and explanations from a simulation that
// does not show them. The stored copy keeps them for scoring.
func redactSimulation(sim models.Simulation) models.Simulation {
	if sim.ShowAnswers {
		return sim
	}
	qs := make([]models.Question, len(sim.Questions))
	for i, q := range sim.Questions {
		c := q.Clone()
		c.CorrectAnswer = ""
		c.Explanation = ""
		qs[i] = c
	}
	sim.Questions = qs
	return sim
}

func (h *Handler) SubmitSimulation(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req models.SubmitAnswersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	result, err := h.service.SubmitSimulation(r.Context(), userID, mux.Vars(r)["id"], req.Answers)
	if err != nil {
		h.writeServiceError(w, "submit simulation", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) ScheduleSimulations(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.service.ScheduleSimulations(userID))
}

func (h *Handler) SimulationHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	hist, err := h.service.SimulationHistory(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, "load simulation history", err)
		return
	}
	writeJSON(w, http.StatusOK, hist)
}

// ── Metrics ─────────────────────────────────────────────

func (h *Handler) UnifiedMetrics(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	m, err := h.service.UnifiedMetrics(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, "compute metrics", err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *Handler) ComparativeAnalysis(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	a, err := h.service.ComparativeAnalysis(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, "compute comparative analysis", err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
