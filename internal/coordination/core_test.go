package coordination

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"haven/internal/settings"
	"haven/pkg/domain"
	derrors "haven/pkg/domain-errors"
	"haven/pkg/platform/audit"
)

// =============================================================================
// Coordination Core Test Suite
// =============================================================================
// Justification for unit tests: the core holds the whole transition legality
// table and the serialization guarantee. Exercising those through HTTP would
// leave the race-sensitive cases (concurrent arms, covert mode invariance)
// untestable.

type CoreSuite struct {
	suite.Suite
	store *settings.InMemoryStore
	pub   *audit.Publisher
	core  *Core
}

func TestCoreSuite(t *testing.T) {
	suite.Run(t, new(CoreSuite))
}

func (s *CoreSuite) SetupTest() {
	s.store = settings.NewInMemoryStore()
	s.pub = audit.NewPublisher()

	var err error
	s.core, err = New(context.Background(), s.store, s.pub)
	s.Require().NoError(err)
}

// enterStealth is a commit helper for tests that start from stealth.
func (s *CoreSuite) enterStealth() {
	s.Require().NoError(s.core.CommitStealthActivate(context.Background(), "manual"))
	s.pub.Drain()
}

// =============================================================================
// Startup Recovery
// =============================================================================

func (s *CoreSuite) TestNewRecoversPersistedState() {
	ctx := context.Background()

	s.Run("persisted stealth is honored", func() {
		store := settings.NewInMemoryStore()
		s.Require().NoError(settings.SaveMode(ctx, store, domain.ModeStealth))
		core, err := New(ctx, store, audit.NewPublisher())
		s.Require().NoError(err)
		s.Equal(domain.ModeStealth, core.Mode())
	})

	s.Run("persisted emergency mode resets to normal", func() {
		store := settings.NewInMemoryStore()
		s.Require().NoError(settings.SaveMode(ctx, store, domain.ModeEmergencyActive))
		core, err := New(ctx, store, audit.NewPublisher())
		s.Require().NoError(err)
		s.Equal(domain.ModeNormal, core.Mode())
	})

	s.Run("corrupt persisted mode resets to normal", func() {
		store := settings.NewInMemoryStore()
		s.Require().NoError(store.Set(ctx, settings.KeyMode, "definitely-not-a-mode"))
		core, err := New(ctx, store, audit.NewPublisher())
		s.Require().NoError(err)
		s.Equal(domain.ModeNormal, core.Mode())
	})

	s.Run("missing persisted mode starts normal", func() {
		s.Equal(domain.ModeNormal, s.core.Mode())
	})
}

// =============================================================================
// Stealth Transitions
// =============================================================================

func (s *CoreSuite) TestStealthActivate() {
	ctx := context.Background()

	s.Run("normal to stealth commits and persists", func() {
		s.Require().NoError(s.core.CommitStealthActivate(ctx, "manual"))
		s.Equal(domain.ModeStealth, s.core.Mode())

		persisted, err := settings.LoadMode(ctx, s.store)
		s.NoError(err)
		s.Equal(domain.ModeStealth, persisted)
	})

	s.Run("activation while already in stealth is a no-op", func() {
		s.pub.Drain()
		s.Require().NoError(s.core.CommitStealthActivate(ctx, "gesture"))
		s.Equal(domain.ModeStealth, s.core.Mode())
		s.Empty(s.pub.Drain(), "idempotent no-op must not journal")
	})
}

func (s *CoreSuite) TestStealthActivateRejectedDuringVisibleEmergency() {
	ctx := context.Background()

	_, err := s.core.ArmEmergency(ctx, domain.NewRunID(), "button")
	s.Require().NoError(err)

	err = s.core.CommitStealthActivate(ctx, "manual")
	s.Require().Error(err)
	s.True(derrors.HasCode(err, derrors.CodeTransitionRejected))
	s.Equal(domain.ModeEmergencyPending, s.core.Mode())

	entries := s.pub.Drain()
	s.Require().NotEmpty(entries)
	last := entries[len(entries)-1]
	s.Equal(audit.OutcomeRejected, last.Outcome)
	s.NotEmpty(last.Reason)
}

func (s *CoreSuite) TestStealthDeactivate() {
	ctx := context.Background()

	s.Run("deactivation in normal mode is a no-op", func() {
		s.Require().NoError(s.core.CommitStealthDeactivate(ctx, "manual"))
		s.Equal(domain.ModeNormal, s.core.Mode())
	})

	s.Run("stealth to normal commits", func() {
		s.enterStealth()
		s.Require().NoError(s.core.CommitStealthDeactivate(ctx, "secret_sequence"))
		s.Equal(domain.ModeNormal, s.core.Mode())
	})

	s.Run("rejected while covert pipeline is in its visible window", func() {
		s.enterStealth()
		runID := domain.NewRunID()
		covert, err := s.core.ArmEmergency(ctx, runID, "button")
		s.Require().NoError(err)
		s.Require().True(covert)
		s.Require().NoError(s.core.NoteStage(ctx, runID, domain.StageCapturing))

		err = s.core.CommitStealthDeactivate(ctx, "manual")
		s.Require().Error(err)
		s.True(derrors.HasCode(err, derrors.CodeTransitionRejected))
		s.Equal(domain.ModeStealth, s.core.Mode())
	})
}

// =============================================================================
// Emergency Arm / Stage / Terminal
// =============================================================================

func (s *CoreSuite) TestArmEmergency() {
	ctx := context.Background()

	s.Run("from normal mode becomes pending and is not covert", func() {
		covert, err := s.core.ArmEmergency(ctx, domain.NewRunID(), "button")
		s.Require().NoError(err)
		s.False(covert)
		s.Equal(domain.ModeEmergencyPending, s.core.Mode())
	})

	s.Run("second arm while a run is active violates the invariant", func() {
		_, err := s.core.ArmEmergency(ctx, domain.NewRunID(), "gesture")
		s.Require().Error(err)
		s.True(derrors.HasCode(err, derrors.CodeInvariantViolation))
	})
}

func (s *CoreSuite) TestArmEmergencyFromStealthIsCovert() {
	ctx := context.Background()
	s.enterStealth()

	runID := domain.NewRunID()
	covert, err := s.core.ArmEmergency(ctx, runID, "sms_code")
	s.Require().NoError(err)
	s.True(covert)
	s.Equal(domain.ModeStealth, s.core.Mode(), "covert arm must not reveal the app")

	// The covert arm still leaves a journal trace.
	entries := s.pub.Drain()
	s.Require().NotEmpty(entries)
	last := entries[len(entries)-1]
	s.Equal(domain.ModeStealth, last.FromMode)
	s.Equal(domain.ModeStealth, last.ToMode)
	s.Equal(runID.String(), last.RunID)
}

func (s *CoreSuite) TestNoteStage() {
	ctx := context.Background()

	s.Run("mode follows the stage for a visible run", func() {
		runID := domain.NewRunID()
		_, err := s.core.ArmEmergency(ctx, runID, "button")
		s.Require().NoError(err)

		s.Require().NoError(s.core.NoteStage(ctx, runID, domain.StageCapturing))
		s.Equal(domain.ModeEmergencyActive, s.core.Mode())

		s.Require().NoError(s.core.NoteStage(ctx, runID, domain.StageWiping))
		s.Equal(domain.ModeEmergencyWinding, s.core.Mode())

		s.Require().NoError(s.core.NoteTerminal(ctx, runID, audit.OutcomeCompleted))
		s.Equal(domain.ModeNormal, s.core.Mode())
	})

	s.Run("stale run id is rejected", func() {
		err := s.core.NoteStage(ctx, domain.NewRunID(), domain.StageCapturing)
		s.Require().Error(err)
		s.True(derrors.HasCode(err, derrors.CodeTransitionRejected))
	})
}

func (s *CoreSuite) TestCovertRunKeepsStealthThroughout() {
	ctx := context.Background()
	s.enterStealth()

	runID := domain.NewRunID()
	_, err := s.core.ArmEmergency(ctx, runID, "button")
	s.Require().NoError(err)

	for _, stage := range []domain.Stage{
		domain.StageCapturing, domain.StageEncrypting, domain.StageUploading,
		domain.StageNotifying, domain.StageWiping,
	} {
		s.Require().NoError(s.core.NoteStage(ctx, runID, stage))
		s.Equal(domain.ModeStealth, s.core.Mode(), "stage %s must not change covert mode", stage)
	}

	s.Require().NoError(s.core.NoteTerminal(ctx, runID, audit.OutcomeCompleted))
	s.Equal(domain.ModeStealth, s.core.Mode(), "covert terminal returns to plain stealth")
}

func (s *CoreSuite) TestCancelEmergency() {
	ctx := context.Background()

	s.Run("visible cancel returns to normal", func() {
		runID := domain.NewRunID()
		_, err := s.core.ArmEmergency(ctx, runID, "button")
		s.Require().NoError(err)

		s.Require().NoError(s.core.CancelEmergency(ctx, runID))
		s.Equal(domain.ModeNormal, s.core.Mode())
		_, active := s.core.ActiveRun()
		s.False(active)
	})

	s.Run("covert cancel stays in stealth", func() {
		s.enterStealth()
		runID := domain.NewRunID()
		_, err := s.core.ArmEmergency(ctx, runID, "button")
		s.Require().NoError(err)

		s.Require().NoError(s.core.CancelEmergency(ctx, runID))
		s.Equal(domain.ModeStealth, s.core.Mode())
	})
}

// =============================================================================
// Serialization and Audit Ordering
// =============================================================================

func (s *CoreSuite) TestConcurrentArmsResolveFirstWins() {
	ctx := context.Background()

	const attempts = 16
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.core.ArmEmergency(ctx, domain.NewRunID(), "button")
		}(i)
	}
	wg.Wait()

	won := 0
	for _, err := range errs {
		if err == nil {
			won++
		} else {
			s.True(derrors.HasCode(err, derrors.CodeInvariantViolation))
		}
	}
	s.Equal(1, won, "exactly one concurrent arm may win")
	s.Equal(domain.ModeEmergencyPending, s.core.Mode())
}

func (s *CoreSuite) TestAuditEntriesPreserveCommitOrder() {
	ctx := context.Background()

	runID := domain.NewRunID()
	_, err := s.core.ArmEmergency(ctx, runID, "button")
	s.Require().NoError(err)
	s.Require().NoError(s.core.NoteStage(ctx, runID, domain.StageCapturing))
	s.Require().NoError(s.core.NoteStage(ctx, runID, domain.StageUploading))
	s.Require().NoError(s.core.NoteTerminal(ctx, runID, audit.OutcomeCompleted))

	entries := s.pub.Drain()
	s.Require().Len(entries, 4)
	s.Equal("emergency_trigger:button", entries[0].Trigger)
	s.Equal("stage:capturing", entries[1].Trigger)
	s.Equal("stage:uploading", entries[2].Trigger)
	s.Equal("run_terminal", entries[3].Trigger)
	s.Equal(audit.OutcomeCompleted, entries[3].Outcome)
	for _, e := range entries {
		s.Equal(runID.String(), e.RunID)
	}
}

func (s *CoreSuite) TestCancelEntryCarriesRunID() {
	ctx := context.Background()

	runID := domain.NewRunID()
	_, err := s.core.ArmEmergency(ctx, runID, "gesture")
	s.Require().NoError(err)
	s.Require().NoError(s.core.CancelEmergency(ctx, runID))

	entries := s.pub.Drain()
	s.Require().Len(entries, 2)
	s.Equal("emergency_cancel", entries[1].Trigger)
	s.Equal(audit.OutcomeCancelled, entries[1].Outcome)
	s.Equal(runID.String(), entries[1].RunID)

	_, active := s.core.ActiveRun()
	s.False(active)
}

func (s *CoreSuite) TestCommitSurvivesPersistenceFailure() {
	ctx := context.Background()

	// Both the write and its synchronous retry fail; in-memory state stays
	// authoritative.
	s.store.FailNextSets(2)
	s.Require().NoError(s.core.CommitStealthActivate(ctx, "manual"))
	s.Equal(domain.ModeStealth, s.core.Mode())
}

func (s *CoreSuite) TestDescribe() {
	ctx := context.Background()

	snap := s.core.Describe()
	s.Equal(domain.ModeNormal, snap.Mode)
	s.Empty(snap.RunID)

	runID := domain.NewRunID()
	_, err := s.core.ArmEmergency(ctx, runID, "button")
	s.Require().NoError(err)

	snap = s.core.Describe()
	s.Equal(domain.ModeEmergencyPending, snap.Mode)
	s.Equal(runID.String(), snap.RunID)
	s.Equal(domain.StageArmed, snap.Stage)
	s.False(snap.Covert)
}
