package diagnostic

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paes-prep/backend/internal/content"
	"github.com/paes-prep/backend/internal/fallback"
	"github.com/paes-prep/backend/internal/middleware"
	"github.com/paes-prep/backend/internal/models"
)

func newTestRouter(t *testing.T, src *fakeSource) *mux.Router {
	t.Helper()
	svc, _ := newTestService(t, src)
	r := mux.NewRouter()
	NewHandler(svc, 5*time.Second, nil).RegisterRoutes(r)
	return r
}

func do(t *testing.T, r http.Handler, method, path, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if userID != "" {
		req = req.WithContext(middleware.WithUserID(req.Context(), userID))
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestHandler_RequiresUser(t *testing.T) {
	r := newTestRouter(t, &fakeSource{})
	rec := do(t, r, http.MethodGet, "/diagnostics", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandler_ComposeAndSubmit(t *testing.T) {
	r := newTestRouter(t, &fakeSource{official: officialPool(models.SubjectReading, 20)})

	rec := do(t, r, http.MethodPost, "/diagnostics", "u1", models.ComposeRequest{Subject: "READING", TotalQuestions: 5})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	d := decode[models.ComposedDiagnostic](t, rec)
	assert.Len(t, d.Questions, 5)

	rec = do(t, r, http.MethodGet, "/diagnostics", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[models.DiagnosticListResponse](t, rec)
	assert.Equal(t, 1, list.Total)

	rec = do(t, r, http.MethodPost, "/diagnostics/"+d.ID+"/submit", "u1",
		models.SubmitAnswersRequest{Answers: allCorrect(d.Questions)})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	perf := decode[models.SubjectPerformance](t, rec)
	assert.Equal(t, 100.0, perf.Accuracy)

	rec = do(t, r, http.MethodGet, "/metrics", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	m := decode[models.UnifiedMetrics](t, rec)
	assert.Greater(t, m.GlobalScore, 0)

	rec = do(t, r, http.MethodGet, "/metrics/comparative", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestHandler_ErrorCodes(t *testing.T) {
	r := newTestRouter(t, &fakeSource{})

	rec := do(t, r, http.MethodPost, "/diagnostics", "u1", models.ComposeRequest{Subject: "LATIN"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, r, http.MethodPost, "/diagnostics", "u1", models.ComposeRequest{Subject: "MATH1", TotalQuestions: 1 << 40})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[models.ErrorResponse](t, rec).Error, "total_questions")

	req := httptest.NewRequest(http.MethodPost, "/diagnostics", bytes.NewBufferString("{not json"))
	req = req.WithContext(middleware.WithUserID(req.Context(), "u1"))
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, r, http.MethodPost, "/diagnostics/missing/submit", "u1", models.SubmitAnswersRequest{})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, r, http.MethodPost, "/simulations/missing/submit", "u1", models.SubmitAnswersRequest{})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_OfficialSimulationHidesAnswers(t *testing.T) {
	r := newTestRouter(t, &fakeSource{official: officialPool(models.SubjectMath2, 100)})

	rec := do(t, r, http.MethodPost, "/simulations", "u1", models.CreateSimulationRequest{Subject: "MATH2", Mode: "official"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	sim := decode[models.Simulation](t, rec)
	require.NotEmpty(t, sim.Questions)
	for _, q := range sim.Questions {
		assert.Empty(t, q.CorrectAnswer)
		assert.Empty(t, q.Explanation)
	}

	// Scoring still uses the stored answers.
	answers := make([]models.AnswerSubmission, len(sim.Questions))
	for i, q := range sim.Questions {
		answers[i] = models.AnswerSubmission{QuestionID: q.ID, SelectedOption: "2"}
	}
	rec = do(t, r, http.MethodPost, "/simulations/"+sim.ID+"/submit", "u1", models.SubmitAnswersRequest{Answers: answers})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[models.SimulationResult](t, rec)
	assert.Equal(t, 100, res.Score)

	rec = do(t, r, http.MethodGet, "/simulations/history", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	hist := decode[models.SimulationHistory](t, rec)
	assert.Len(t, hist.Results, 1)
}

func TestHandler_PracticeSimulationShowsAnswers(t *testing.T) {
	r := newTestRouter(t, &fakeSource{official: officialPool(models.SubjectMath2, 100)})

	rec := do(t, r, http.MethodPost, "/simulations", "u1", models.CreateSimulationRequest{Subject: "MATH2", Mode: "practice"})
	require.Equal(t, http.StatusCreated, rec.Code)
	sim := decode[models.Simulation](t, rec)
	for _, q := range sim.Questions {
		assert.Equal(t, "2", q.CorrectAnswer)
	}
}

func TestHandler_Schedule(t *testing.T) {
	r := newTestRouter(t, &fakeSource{})

	rec := do(t, r, http.MethodGet, "/simulations/schedule", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	plan := decode[[]models.ScheduledSimulation](t, rec)
	assert.Len(t, plan, ScheduledWeeks)
}

func TestHandler_Bootstrap(t *testing.T) {
	r := newTestRouter(t, &fakeSource{official: officialPool(models.SubjectReading, 50)})

	rec := do(t, r, http.MethodGet, "/diagnostics/bootstrap/status", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, fallback.StateInit, decode[fallback.Status](t, rec).State)

	rec = do(t, r, http.MethodPost, "/diagnostics/bootstrap", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[fallback.Result](t, rec)
	assert.Equal(t, fallback.StateReady, res.State)
	assert.Equal(t, 100, res.Progress)
	assert.False(t, res.IsDemoMode)
	assert.Len(t, res.Diagnostics, len(models.AllSubjects))

	rec = do(t, r, http.MethodPost, "/diagnostics/bootstrap/retry", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	res = decode[fallback.Result](t, rec)
	assert.Equal(t, 1, res.Retries)
	assert.Len(t, res.Diagnostics, len(models.AllSubjects), "defaults are not generated twice")
}

func TestHandler_SubmitDemoDiagnostic(t *testing.T) {
	r := newTestRouter(t, &fakeSource{})
	demo := content.DemoDiagnostics("u1", fixedNow)[0]

	rec := do(t, r, http.MethodPost, "/diagnostics/"+demo.ID+"/submit", "u1",
		models.SubmitAnswersRequest{Answers: allCorrect(demo.Questions)})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 100.0, decode[models.SubjectPerformance](t, rec).Accuracy)

	rec = do(t, r, http.MethodGet, "/metrics", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Greater(t, decode[models.UnifiedMetrics](t, rec).GlobalScore, 0)
}

func TestHandler_EvictsIdleBootstrapControllers(t *testing.T) {
	svc, _ := newTestService(t, &fakeSource{official: officialPool(models.SubjectReading, 50)})
	h := NewHandler(svc, 5*time.Second, nil)
	now := fixedNow
	h.now = func() time.Time { return now }
	r := mux.NewRouter()
	h.RegisterRoutes(r)

	users := []string{"u0", "u1", "u2", "u3", "u4"}
	for _, u := range users {
		rec := do(t, r, http.MethodPost, "/diagnostics/bootstrap", u, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}
	assert.Len(t, h.controllers, len(users))

	now = now.Add(ControllerIdleTTL - time.Minute)
	rec := do(t, r, http.MethodGet, "/diagnostics/bootstrap/status", "u0", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, fallback.StateReady, decode[fallback.Status](t, rec).State)
	assert.Len(t, h.controllers, len(users), "nothing is idle long enough yet")

	now = now.Add(2 * time.Minute)
	rec = do(t, r, http.MethodGet, "/diagnostics/bootstrap/status", "u9", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, h.controllers, 2)
	assert.Contains(t, h.controllers, "u0")
	assert.Contains(t, h.controllers, "u9")

	rec = do(t, r, http.MethodGet, "/diagnostics/bootstrap/status", "u1", nil)
	assert.Equal(t, fallback.StateInit, decode[fallback.Status](t, rec).State, "evicted users start over")

	rec = do(t, r, http.MethodPost, "/diagnostics/bootstrap/retry", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	res := decode[fallback.Result](t, rec)
	assert.Equal(t, fallback.StateReady, res.State)
	assert.Len(t, res.Diagnostics, len(models.AllSubjects), "persisted defaults are found again")
}

func TestRedactSimulation_LeavesOriginalIntact(t *testing.T) {
	sim := models.Simulation{Questions: officialPool(models.SubjectMath1, 2)}
	out := redactSimulation(sim)

	assert.Empty(t, out.Questions[0].CorrectAnswer)
	assert.Equal(t, "2", sim.Questions[0].CorrectAnswer)
}
