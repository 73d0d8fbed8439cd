package fallback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/paes-prep/backend/internal/content"
	"github.com/paes-prep/backend/internal/models"
)

type State string

const (
	StateInit            State = "INIT"
	StateLoadingReal     State = "LOADING_REAL"
	StateLoadingDefaults State = "LOADING_DEFAULTS"
	StateSuccess         State = "SUCCESS"
	StateDemoMode        State = "DEMO_MODE"
	StateReady           State = "READY"
)

// ErrInFlight is returned when a run is requested while another is active.
var ErrInFlight = errors.New("diagnostic initialization already in progress")

// Backend is the real data source the controller degrades from.
type Backend interface {
	LoadDiagnostics(ctx context.Context, userID string) ([]models.ComposedDiagnostic, error)
	GenerateDefaults(ctx context.Context, userID string) error
}

type Status struct {
	State      State  `json:"state"`
	Progress   int    `json:"progress"`
	Step       string `json:"step"`
	Retries    int    `json:"retries"`
	IsDemoMode bool   `json:"is_demo_mode"`
}

type Result struct {
	Status
	Diagnostics []models.ComposedDiagnostic `json:"diagnostics"`
}

// Observer receives every transition. Side effects such as notifications
// belong here, outside the transition logic.
type Observer func(Status)

// Controller runs the real → defaults → demo initialization path. It never
// ends in an error state: any failure resolves to demo content.
type Controller struct {
	backend Backend
	log     *slog.Logger
	now     func() time.Time

	mu          sync.Mutex
	running     bool
	userID      string
	status      Status
	diagnostics []models.ComposedDiagnostic
	observers   []Observer
}

type Option func(*Controller)

func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.log = l }
}

func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

func WithObserver(o Observer) Option {
	return func(c *Controller) { c.observers = append(c.observers, o) }
}

func NewController(backend Backend, opts ...Option) *Controller {
	c := &Controller{
		backend: backend,
		log:     slog.Default(),
		now:     time.Now,
		status:  Status{State: StateInit, Step: "Inicializando"},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Start runs the state machine for userID.
func (c *Controller) Start(ctx context.Context, userID string) (Result, error) {
	if err := c.acquire(userID, false); err != nil {
		return Result{}, err
	}
	return c.run(ctx), nil
}

// Retry re-runs the whole machine from INIT for the last user. Calls made
// while a run is in flight are ignored and return ErrInFlight.
func (c *Controller) Retry(ctx context.Context) (Result, error) {
	if err := c.acquire("", true); err != nil {
		return Result{}, err
	}
	return c.run(ctx), nil
}

func (c *Controller) acquire(userID string, retry bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return ErrInFlight
	}
	c.running = true
	if retry {
		c.status.Retries++
	} else {
		c.userID = userID
	}
	return nil
}

// Running reports whether a run is in flight.
func (c *Controller) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Status returns a snapshot of the current status.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Diagnostics returns the content resolved by the last completed run.
func (c *Controller) Diagnostics() []models.ComposedDiagnostic {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.ComposedDiagnostic(nil), c.diagnostics...)
}

func (c *Controller) run(ctx context.Context) Result {
	defer func() {
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
	}()

	c.mu.Lock()
	userID := c.userID
	c.diagnostics = nil
	c.status.IsDemoMode = false
	c.mu.Unlock()

	c.transition(StateInit, 0, "Inicializando")
	c.transition(StateLoadingReal, 10, "Cargando tus diagnósticos")

	diags, err := c.backend.LoadDiagnostics(ctx, userID)
	if err != nil {
		return c.demo(userID, fmt.Errorf("load diagnostics: %w", err))
	}
	if len(diags) > 0 {
		return c.succeed(diags)
	}

	c.transition(StateLoadingDefaults, 30, "Generando diagnósticos iniciales")
	if err := c.backend.GenerateDefaults(ctx, userID); err != nil {
		return c.demo(userID, fmt.Errorf("generate defaults: %w", err))
	}

	c.transition(StateLoadingDefaults, 50, "Cargando diagnósticos generados")
	diags, err = c.backend.LoadDiagnostics(ctx, userID)
	if err != nil {
		return c.demo(userID, fmt.Errorf("reload diagnostics: %w", err))
	}
	if len(diags) > 0 {
		return c.succeed(diags)
	}
	return c.demo(userID, nil)
}

func (c *Controller) succeed(diags []models.ComposedDiagnostic) Result {
	c.transition(StateSuccess, 80, "Diagnósticos cargados")
	return c.ready(diags, false)
}

func (c *Controller) demo(userID string, cause error) Result {
	if cause != nil {
		c.log.Warn("falling back to demo mode", "user_id", userID, "error", cause)
	} else {
		c.log.Warn("no diagnostics available, falling back to demo mode", "user_id", userID)
	}
	c.mu.Lock()
	c.status.IsDemoMode = true
	c.mu.Unlock()
	c.transition(StateDemoMode, 80, "Modo demostración")
	return c.ready(content.DemoDiagnostics(userID, c.now()), true)
}

func (c *Controller) ready(diags []models.ComposedDiagnostic, demo bool) Result {
	c.mu.Lock()
	c.diagnostics = diags
	c.mu.Unlock()

	st := c.transition(StateReady, 100, "Listo")
	c.log.Info("diagnostic initialization finished", "diagnostics", len(diags), "demo", demo, "retries", st.Retries)
	return Result{Status: st, Diagnostics: append([]models.ComposedDiagnostic(nil), diags...)}
}

func (c *Controller) transition(state State, progress int, step string) Status {
	c.mu.Lock()
	c.status.State = state
	c.status.Progress = progress
	c.status.Step = step
	st := c.status
	observers := append([]Observer(nil), c.observers...)
	c.mu.Unlock()

	for _, o := range observers {
		o(st)
	}
	return st
}
