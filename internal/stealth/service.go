// Package stealth owns the disguise session: cover-story configuration,
// the secret unlock matcher, and the idle auto-revert timer. Mode changes
// themselves go through the coordination core; this service decides when
// to ask for them.
package stealth

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"haven/internal/settings"
	"haven/internal/stealth/metrics"
	"haven/pkg/domain"
	derrors "haven/pkg/domain-errors"
	"haven/pkg/platform/clock"
)

// Core is the slice of the coordination core the stealth session needs.
type Core interface {
	Mode() domain.Mode
	IsEmergencyInFlight() bool
	CommitStealthActivate(ctx context.Context, method string) error
	CommitStealthDeactivate(ctx context.Context, method string) error
}

// Service is the stealth session manager.
type Service struct {
	core   Core
	store  settings.Store
	clk    clock.Clock
	logger *slog.Logger
	m      *metrics.Metrics

	mu       sync.Mutex
	cfg      Config
	input    string
	dead     bool // input can no longer become the secret until cleared
	timer    clock.Timer
	timerGen uint64
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

// New loads the persisted config and constructs the service. A corrupt or
// missing config resolves to DefaultConfig; startup never fails on bad
// stealth state.
func New(ctx context.Context, core Core, store settings.Store, opts ...Option) (*Service, error) {
	if core == nil {
		return nil, errors.New("coordination core is required")
	}
	if store == nil {
		return nil, errors.New("settings store is required")
	}

	s := &Service{
		core:   core,
		store:  store,
		clk:    clock.System(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.cfg = s.loadConfig(ctx)

	// If the process restarted while stealth was persisted, the disguise is
	// still up; re-arm the idle timer so it cannot get stuck forever.
	if core.Mode() == domain.ModeStealth {
		s.mu.Lock()
		s.armIdleTimerLocked()
		s.mu.Unlock()
	}
	return s, nil
}

func (s *Service) loadConfig(ctx context.Context) Config {
	raw, err := s.store.Get(ctx, settings.KeyStealthConfig)
	if err != nil {
		if !settings.IsNotFound(err) {
			s.logger.Warn("stealth config load failed, using defaults", "error", err)
		}
		return DefaultConfig()
	}
	cfg, err := ParseConfig(raw)
	if err != nil {
		s.logger.Warn("stealth config corrupt, using defaults")
		return DefaultConfig()
	}
	return cfg
}

// Config returns a copy of the current configuration.
func (s *Service) Config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// SetConfig validates and persists a new configuration. In-memory config
// is authoritative immediately; persistence failures degrade to a
// background retry.
func (s *Service) SetConfig(ctx context.Context, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return derrors.Wrap(err, derrors.CodeValidation, "invalid stealth config")
	}

	s.mu.Lock()
	s.cfg = cfg
	s.clearInputLocked()
	s.mu.Unlock()

	s.persist(ctx, settings.KeyStealthConfig, cfg.Encode())
	return nil
}

// Activate enters stealth. Idempotent when already in stealth; rejected by
// the core while a visible emergency pipeline is running.
func (s *Service) Activate(ctx context.Context, method ActivateMethod) error {
	if !method.Valid() {
		return derrors.Newf(derrors.CodeValidation, "unknown activation method %q", method)
	}

	if err := s.core.CommitStealthActivate(ctx, string(method)); err != nil {
		return err
	}

	if s.m != nil {
		s.m.Activations.WithLabelValues(string(method)).Inc()
	}

	s.mu.Lock()
	s.clearInputLocked()
	s.armIdleTimerLocked()
	s.mu.Unlock()
	return nil
}

// Deactivate leaves stealth. Succeeds from any config state, corrupt
// included; the only rejection is a covert pipeline inside its visible-UI
// window, which the core enforces.
func (s *Service) Deactivate(ctx context.Context, method DeactivateMethod) error {
	if !method.Valid() {
		return derrors.Newf(derrors.CodeValidation, "unknown deactivation method %q", method)
	}

	if err := s.core.CommitStealthDeactivate(ctx, string(method)); err != nil {
		return err
	}

	if s.m != nil {
		s.m.Deactivations.WithLabelValues(string(method)).Inc()
	}

	s.mu.Lock()
	s.clearInputLocked()
	s.stopTimerLocked()
	s.mu.Unlock()
	return nil
}

// FeedInput accumulates unlock input typed into the disguise UI and
// reports whether the accumulated input now exactly equals the configured
// secret. Matching is whole-token equality, never prefix or suffix: with
// secret "5555", accumulated "05555" or "55550" can never match until the
// buffer is cleared. Every call counts as interaction and re-arms the idle
// timer. On match the service deactivates via secret_sequence.
func (s *Service) FeedInput(ctx context.Context, token string) (bool, error) {
	s.mu.Lock()
	if s.m != nil {
		s.m.UnlockAttempts.Inc()
	}
	s.armIdleTimerLocked()

	secret := s.cfg.UnlockSequence
	if secret == "" || token == "" {
		s.mu.Unlock()
		return false, nil
	}

	s.input += token
	if len(s.input) > len(secret) {
		s.dead = true
	}
	matched := !s.dead && s.input == secret
	if matched {
		s.clearInputLocked()
		if s.m != nil {
			s.m.UnlockMatches.Inc()
		}
	}
	s.mu.Unlock()

	if !matched {
		return false, nil
	}
	return true, s.Deactivate(ctx, DeactivateSecretSequence)
}

// ClearInput resets the matcher, e.g. the disguise's own clear button.
func (s *Service) ClearInput() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearInputLocked()
}

func (s *Service) clearInputLocked() {
	s.input = ""
	s.dead = false
}

// armIdleTimerLocked replaces the idle timer. The generation check in the
// callback keeps a superseded timer from firing after re-engagement,
// belt-and-suspenders on top of Stop.
func (s *Service) armIdleTimerLocked() {
	s.stopTimerLocked()
	s.timerGen++
	gen := s.timerGen
	s.timer = s.clk.AfterFunc(s.cfg.IdleTimeout(), func() { s.onIdleTimeout(gen) })
}

func (s *Service) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Service) onIdleTimeout(gen uint64) {
	s.mu.Lock()
	if gen != s.timerGen {
		s.mu.Unlock()
		return
	}
	s.timer = nil

	// An in-flight pipeline suppresses the revert; try again next window.
	if s.core.IsEmergencyInFlight() {
		if s.m != nil {
			s.m.IdleDeferrals.Inc()
		}
		s.armIdleTimerLocked()
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	if err := s.Deactivate(context.Background(), DeactivateTimeout); err != nil {
		if derrors.HasCode(err, derrors.CodeTransitionRejected) {
			// Lost a race with a covert pipeline entering its visible
			// window; re-arm and defer like the in-flight case.
			s.mu.Lock()
			s.armIdleTimerLocked()
			s.mu.Unlock()
			return
		}
		s.logger.Warn("idle timeout deactivation failed", "error", err)
	}
}

// persist applies the retry-once-then-background policy shared with the
// core's mode persistence.
func (s *Service) persist(ctx context.Context, key, value string) {
	if err := s.store.Set(ctx, key, value); err == nil {
		return
	}
	if err := s.store.Set(ctx, key, value); err == nil {
		return
	}
	s.logger.Warn("settings persist failed, retrying in background", "key", key)
	go func() {
		backoff := 250 * time.Millisecond
		for attempt := 0; attempt < 8; attempt++ {
			time.Sleep(backoff)
			backoff *= 2
			if err := s.store.Set(context.Background(), key, value); err == nil {
				return
			}
		}
		s.logger.Error("settings persist abandoned", "key", key)
	}()
}
