// Package coordination owns the externally visible Mode. Both session
// managers request transitions through the Core; it applies the legality
// rules, commits or rejects, and journals every attempt. All commits are
// serialized through one mutex: concurrent triggers resolve first-wins and
// later attempts see either an idempotent no-op or a rejection against the
// now-current state.
//
// The Core never blocks on adapter I/O. Commits touch in-memory state, a
// fire-and-forget audit emit, and a mode persist that degrades to a
// background retry when the settings store is down.
package coordination

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"haven/internal/platform/metrics"
	"haven/internal/settings"
	"haven/pkg/domain"
	derrors "haven/pkg/domain-errors"
	"haven/pkg/platform/audit"
	"haven/pkg/requestcontext"
)

// Rejection reasons recorded on audit entries and returned to callers.
const (
	ReasonPipelineVisible = "pipeline requires visible ui"
	ReasonPipelineCovert  = "covert evidence pipeline in flight"
	ReasonEmergencyMode   = "emergency in progress"
	ReasonRunMismatch     = "stale run"
	ReasonRunActive       = "run already active"
)

// Core is the single authority for Mode.
type Core struct {
	mu     sync.Mutex
	mode   domain.Mode
	run    domain.RunID // active run; nil when none
	stage  domain.Stage
	covert bool // active run was armed from stealth

	store   settings.Store
	pub     *audit.Publisher
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// Option configures a Core.
type Option func(*Core)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Core) { c.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Core) { c.metrics = m }
}

// New loads the persisted mode and constructs the Core. A persisted
// emergency mode means the process died mid-run; the run is gone, so the
// Core resolves to ModeNormal. A corrupt or missing value also resolves to
// ModeNormal: a safety UI must never fail closed into a state the user
// cannot leave. Persisted stealth is honored.
func New(ctx context.Context, store settings.Store, pub *audit.Publisher, opts ...Option) (*Core, error) {
	c := &Core{
		store:  store,
		pub:    pub,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	mode, err := settings.LoadMode(ctx, store)
	if err != nil {
		c.logger.Warn("mode load failed, starting in normal mode", "error", err)
		mode = domain.ModeNormal
	}
	if mode.Emergency() {
		c.logger.Warn("persisted mode was mid-emergency, resetting", "mode", mode)
		mode = domain.ModeNormal
	}
	c.mode = mode
	c.setModeMetric(mode)
	return c, nil
}

// Mode returns the externally visible mode.
func (c *Core) Mode() domain.Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// ActiveRun returns the active run ID, if any.
func (c *Core) ActiveRun() (domain.RunID, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.run, !c.run.IsNil()
}

// IsEmergencyInFlight reports whether a pipeline run is active in any
// non-terminal stage. The stealth idle timer consults this before
// reverting: a timeout must never tear down the disguise while evidence
// is moving.
func (c *Core) IsEmergencyInFlight() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.run.IsNil()
}

// CanActivateStealth is the legality predicate for entering stealth:
// forbidden while a non-covert run needs the real UI visible.
func (c *Core) CanActivateStealth() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.canActivateStealthLocked()
}

func (c *Core) canActivateStealthLocked() bool {
	if c.run.IsNil() {
		return !c.mode.Emergency()
	}
	if c.covert {
		return true // already stealth; activation is a no-op anyway
	}
	return !c.stage.RequiresVisibleUI() && !c.stage.Cancelable()
}

// CommitStealthActivate moves Normal -> Stealth. Idempotent when already
// in stealth.
func (c *Core) CommitStealthActivate(ctx context.Context, method string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	trigger := "stealth_activate:" + method
	switch {
	case c.mode == domain.ModeStealth:
		return nil
	case c.mode != domain.ModeNormal:
		return c.rejectLocked(ctx, trigger, ReasonEmergencyMode)
	case !c.canActivateStealthLocked():
		return c.rejectLocked(ctx, trigger, ReasonPipelineVisible)
	}

	c.commitLocked(ctx, domain.ModeStealth, trigger)
	return nil
}

// CommitStealthDeactivate moves Stealth -> Normal. It must succeed even
// when persistence is corrupt or down; the single rejection case is a
// covert run still inside its visible-UI window.
func (c *Core) CommitStealthDeactivate(ctx context.Context, method string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	trigger := "stealth_deactivate:" + method
	if c.mode != domain.ModeStealth {
		return nil
	}
	if c.covert && !c.run.IsNil() && c.stage.RequiresVisibleUI() {
		return c.rejectLocked(ctx, trigger, ReasonPipelineCovert)
	}

	c.commitLocked(ctx, domain.ModeNormal, trigger)
	return nil
}

// ArmEmergency registers runID as the single active run. From stealth the
// mode stays ModeStealth and the run is covert. This is the one
// deliberately asymmetric rule in the table, letting an observed user
// summon help without revealing the app. Otherwise the mode becomes
// ModeEmergencyPending. The caller coalesces duplicate triggers before
// reaching here; a second arm while a run is active is an invariant
// violation, not a race.
func (c *Core) ArmEmergency(ctx context.Context, runID domain.RunID, source string) (covert bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	trigger := "emergency_trigger:" + source
	if !c.run.IsNil() {
		return false, derrors.New(derrors.CodeInvariantViolation, ReasonRunActive)
	}

	c.run = runID
	c.stage = domain.StageArmed
	c.covert = c.mode == domain.ModeStealth

	if c.covert {
		// Mode unchanged; journal the arm so the covert path stays visible
		// in the audit trail even though no transition happened.
		c.emitLocked(ctx, c.mode, c.mode, trigger, audit.OutcomeCommitted, "")
	} else {
		c.commitLocked(ctx, domain.ModeEmergencyPending, trigger)
	}
	if c.metrics != nil {
		c.metrics.EmergencyRunsStarted.Inc()
	}
	return c.covert, nil
}

// NoteStage records pipeline stage advancement for the active run. For
// non-covert runs the mode follows the stage; covert runs keep
// ModeStealth throughout.
func (c *Core) NoteStage(ctx context.Context, runID domain.RunID, stage domain.Stage) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.run != runID {
		return derrors.New(derrors.CodeTransitionRejected, ReasonRunMismatch)
	}

	c.stage = stage
	trigger := "stage:" + string(stage)
	if c.covert {
		c.emitLocked(ctx, c.mode, c.mode, trigger, audit.OutcomeCommitted, "")
		return nil
	}
	if next := stage.ModeFor(); next != c.mode {
		c.commitLocked(ctx, next, trigger)
	} else {
		c.emitLocked(ctx, c.mode, c.mode, trigger, audit.OutcomeCommitted, "")
	}
	return nil
}

// CancelEmergency releases the run during its cancelable window. Stage
// legality is enforced by the emergency service, which owns the run; the
// core only restores the mode.
func (c *Core) CancelEmergency(ctx context.Context, runID domain.RunID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.run != runID {
		return derrors.New(derrors.CodeTransitionRejected, ReasonRunMismatch)
	}

	// Emit before releasing the run so the archival entry still carries
	// the run ID.
	if c.covert {
		c.emitLocked(ctx, c.mode, c.mode, "emergency_cancel", audit.OutcomeCancelled, "")
	} else {
		c.commitOutcomeLocked(ctx, domain.ModeNormal, "emergency_cancel", audit.OutcomeCancelled)
	}
	c.clearRunLocked()
	return nil
}

// NoteTerminal archives the run's end state and releases the mode. Covert
// runs return the core to plain stealth; others to normal.
func (c *Core) NoteTerminal(ctx context.Context, runID domain.RunID, outcome string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.run != runID {
		return derrors.New(derrors.CodeTransitionRejected, ReasonRunMismatch)
	}

	if c.metrics != nil {
		c.metrics.EmergencyRunsFinished.WithLabelValues(outcome).Inc()
	}
	if c.covert {
		c.emitLocked(ctx, c.mode, c.mode, "run_terminal", outcome, "")
	} else {
		c.commitOutcomeLocked(ctx, domain.ModeNormal, "run_terminal", outcome)
	}
	c.clearRunLocked()
	return nil
}

func (c *Core) clearRunLocked() {
	c.run = domain.RunID{}
	c.stage = ""
	c.covert = false
}

// commitLocked performs a committed transition: state, metrics, journal,
// persistence.
func (c *Core) commitLocked(ctx context.Context, to domain.Mode, trigger string) {
	c.commitOutcomeLocked(ctx, to, trigger, audit.OutcomeCommitted)
}

func (c *Core) commitOutcomeLocked(ctx context.Context, to domain.Mode, trigger, outcome string) {
	from := c.mode
	c.mode = to
	c.setModeMetric(to)
	if c.metrics != nil {
		c.metrics.TransitionsCommitted.WithLabelValues(string(from), string(to), trigger).Inc()
	}
	c.emitLocked(ctx, from, to, trigger, outcome, "")
	c.persistModeLocked(ctx, to)
}

// rejectLocked journals a rejection and returns the transition error. No
// side effects precede the rejection.
func (c *Core) rejectLocked(ctx context.Context, trigger, reason string) error {
	if c.metrics != nil {
		c.metrics.TransitionsRejected.WithLabelValues(trigger, reason).Inc()
	}
	c.emitLocked(ctx, c.mode, c.mode, trigger, audit.OutcomeRejected, reason)
	return derrors.New(derrors.CodeTransitionRejected, reason)
}

func (c *Core) emitLocked(ctx context.Context, from, to domain.Mode, trigger, outcome, reason string) {
	entry := audit.Entry{
		Timestamp: requestcontext.Now(ctx),
		FromMode:  from,
		ToMode:    to,
		Trigger:   trigger,
		Outcome:   outcome,
		Reason:    reason,
		Device:    requestcontext.Device(ctx),
		RequestID: requestcontext.RequestID(ctx),
	}
	if !c.run.IsNil() {
		entry.RunID = c.run.String()
	}
	c.pub.Emit(entry)
}

// persistModeLocked writes the mode through the settings store: one
// synchronous retry, then in-memory state stays authoritative while a
// background goroutine keeps trying. The user-visible mode never desyncs
// from what committed.
func (c *Core) persistModeLocked(ctx context.Context, mode domain.Mode) {
	if err := settings.SaveMode(ctx, c.store, mode); err == nil {
		return
	}
	if err := settings.SaveMode(ctx, c.store, mode); err == nil {
		return
	}
	c.logger.Warn("mode persist failed, retrying in background", "mode", mode)
	go c.persistRetry(mode)
}

func (c *Core) persistRetry(mode domain.Mode) {
	backoff := 250 * time.Millisecond
	for attempt := 0; attempt < 8; attempt++ {
		time.Sleep(backoff)
		backoff *= 2

		// A newer commit supersedes this retry.
		c.mu.Lock()
		current := c.mode
		c.mu.Unlock()
		if current != mode {
			return
		}
		if err := settings.SaveMode(context.Background(), c.store, mode); err == nil {
			return
		}
	}
	c.logger.Error("mode persist abandoned after retries", "mode", mode)
}

func (c *Core) setModeMetric(mode domain.Mode) {
	if c.metrics != nil {
		c.metrics.SetMode(mode)
	}
}

// Snapshot is a read-only view for diagnostics.
type Snapshot struct {
	Mode   domain.Mode
	RunID  string
	Stage  domain.Stage
	Covert bool
}

// Describe returns the current coordination state.
func (c *Core) Describe() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Snapshot{Mode: c.mode, Stage: c.stage, Covert: c.covert}
	if !c.run.IsNil() {
		s.RunID = c.run.String()
	}
	return s
}
