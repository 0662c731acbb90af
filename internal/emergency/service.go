// Package emergency owns the evidence pipeline: the panic trigger, the
// cancellation countdown, and the staged run through capture, encryption,
// upload, notification, and wipe. Mode changes go through the coordination
// core; this service owns the run itself.
package emergency

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"haven/internal/adapters"
	"haven/internal/emergency/metrics"
	"haven/internal/settings"
	"haven/pkg/domain"
	derrors "haven/pkg/domain-errors"
	"haven/pkg/platform/clock"
	"haven/pkg/requestcontext"
)

// Core is the slice of the coordination core the pipeline needs.
type Core interface {
	ArmEmergency(ctx context.Context, runID domain.RunID, source string) (covert bool, err error)
	NoteStage(ctx context.Context, runID domain.RunID, stage domain.Stage) error
	CancelEmergency(ctx context.Context, runID domain.RunID) error
	NoteTerminal(ctx context.Context, runID domain.RunID, outcome string) error
}

// Ports bundles the adapter collaborators the pipeline drives.
type Ports struct {
	Capture  adapters.Capture
	Sealer   adapters.Sealer
	Vault    adapters.Vault
	Notifier adapters.Notifier
	Wiper    adapters.Wiper
}

func (p Ports) validate() error {
	switch {
	case p.Capture == nil:
		return errors.New("capture port is required")
	case p.Sealer == nil:
		return errors.New("sealer port is required")
	case p.Vault == nil:
		return errors.New("vault port is required")
	case p.Notifier == nil:
		return errors.New("notifier port is required")
	case p.Wiper == nil:
		return errors.New("wiper port is required")
	}
	return nil
}

// PipelineConfig bounds the run: how long the user has to cancel, how long
// each stage attempt may take, and how many retries a stage gets before
// the run fails at it.
type PipelineConfig struct {
	CountdownWindow time.Duration
	StageTimeout    time.Duration
	StageRetries    int
	RetryBackoff    time.Duration // base for exponential backoff; 0 retries immediately
}

func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		CountdownWindow: 5 * time.Second,
		StageTimeout:    30 * time.Second,
		StageRetries:    2,
		RetryBackoff:    500 * time.Millisecond,
	}
}

// LocationFunc supplies a best-effort device location for notifications.
// Returning nil is fine; escalation never blocks on a GPS fix.
type LocationFunc func(ctx context.Context) *adapters.Coords

// Service is the emergency session manager.
type Service struct {
	core   Core
	store  settings.Store
	ports  Ports
	clk    clock.Clock
	logger *slog.Logger
	m      *metrics.Metrics
	tracer trace.Tracer
	cfg    PipelineConfig
	locate LocationFunc
	device string

	mu           sync.Mutex
	run          *Run
	countdown    clock.Timer
	countdownGen uint64
	contacts     []Contact
}

// Option configures a Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithClock(clk clock.Clock) Option {
	return func(s *Service) { s.clk = clk }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.m = m }
}

func WithPipelineConfig(cfg PipelineConfig) Option {
	return func(s *Service) { s.cfg = cfg }
}

func WithLocation(fn LocationFunc) Option {
	return func(s *Service) { s.locate = fn }
}

// WithDevice sets the device description attached to notifications.
func WithDevice(device string) Option {
	return func(s *Service) { s.device = device }
}

// New loads the persisted contact list and constructs the service. A
// corrupt or missing list resolves to empty; startup never fails on bad
// contact state.
func New(ctx context.Context, core Core, store settings.Store, ports Ports, opts ...Option) (*Service, error) {
	if core == nil {
		return nil, errors.New("coordination core is required")
	}
	if store == nil {
		return nil, errors.New("settings store is required")
	}
	if err := ports.validate(); err != nil {
		return nil, err
	}

	s := &Service{
		core:   core,
		store:  store,
		ports:  ports,
		clk:    clock.System(),
		logger: slog.Default(),
		tracer: otel.Tracer("haven/emergency"),
		cfg:    DefaultPipelineConfig(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.contacts = s.loadContacts(ctx)
	return s, nil
}

// Trigger fires the panic trigger. While a run is active the trigger
// coalesces: the caller gets the existing run back, same ID, and nothing
// restarts. Otherwise a new run arms, enters its countdown, and the
// pipeline proceeds on its own once the window elapses.
func (s *Service) Trigger(ctx context.Context, source TriggerSource) (Snapshot, error) {
	if !source.Valid() {
		return Snapshot{}, derrors.Newf(derrors.CodeValidation, "unknown trigger source %q", source)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.run.Active() {
		if s.m != nil {
			s.m.TriggersCoalesced.Inc()
		}
		s.logger.Info("trigger coalesced into active run",
			"run_id", s.run.ID, "stage", s.run.Stage, "source", source)
		return s.run.snapshot(), nil
	}

	id := domain.NewRunID()
	covert, err := s.core.ArmEmergency(ctx, id, string(source))
	if err != nil {
		return Snapshot{}, err
	}

	now := requestcontext.Now(ctx)
	run := &Run{
		ID:        id,
		Stage:     domain.StageArmed,
		Covert:    covert,
		Source:    source,
		StartedAt: now,
		UpdatedAt: now,
		Attempts:  make(map[domain.Stage]int),
	}
	s.run = run

	run.Stage = domain.StageCountdown
	run.UpdatedAt = now
	if err := s.core.NoteStage(ctx, id, domain.StageCountdown); err != nil {
		s.logger.Error("countdown stage note failed", "run_id", id, "error", err)
	}

	s.countdownGen++
	gen := s.countdownGen
	s.countdown = s.clk.AfterFunc(s.cfg.CountdownWindow, func() { s.onCountdownElapsed(gen) })

	s.logger.Info("emergency run armed",
		"run_id", id, "source", source, "covert", covert,
		"countdown", s.cfg.CountdownWindow)
	return run.snapshot(), nil
}

// Cancel aborts the active run. Honored only during the countdown window;
// once capture starts the pipeline runs to its own end and cancellation is
// rejected.
func (s *Service) Cancel(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.run.Active() {
		return Snapshot{}, derrors.New(derrors.CodeNotFound, "no active emergency run")
	}
	if !s.run.Stage.Cancelable() {
		if s.m != nil {
			s.m.CancelsRejected.Inc()
		}
		return s.run.snapshot(), derrors.New(derrors.CodeTransitionRejected, "capture already started")
	}

	s.stopCountdownLocked()
	if err := s.core.CancelEmergency(ctx, s.run.ID); err != nil {
		return s.run.snapshot(), err
	}
	s.run.Stage = domain.StageCancelled
	s.run.UpdatedAt = s.clk.Now()
	s.logger.Info("emergency run cancelled", "run_id", s.run.ID)
	return s.run.snapshot(), nil
}

// Status returns the current run snapshot without blocking on pipeline
// work. The latest terminal run stays visible until a new trigger replaces
// it, so a FailedAt outcome can be surfaced to the user.
func (s *Service) Status() (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.run == nil {
		return Snapshot{}, false
	}
	return s.run.snapshot(), true
}

func (s *Service) stopCountdownLocked() {
	s.countdownGen++
	if s.countdown != nil {
		s.countdown.Stop()
		s.countdown = nil
	}
}

// onCountdownElapsed moves the run into capture and hands it to the
// pipeline goroutine. A cancel that won the race bumped the generation, so
// a stale fire is a no-op.
func (s *Service) onCountdownElapsed(gen uint64) {
	s.mu.Lock()
	if gen != s.countdownGen || !s.run.Active() || s.run.Stage != domain.StageCountdown {
		s.mu.Unlock()
		return
	}
	s.countdown = nil
	run := s.run
	run.Stage = domain.StageCapturing
	run.UpdatedAt = s.clk.Now()
	s.mu.Unlock()

	if err := s.core.NoteStage(context.Background(), run.ID, domain.StageCapturing); err != nil {
		s.logger.Error("capture stage note failed", "run_id", run.ID, "error", err)
	}
	go s.execute(run)
}
