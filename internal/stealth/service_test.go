package stealth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"haven/internal/coordination"
	"haven/internal/settings"
	"haven/pkg/domain"
	derrors "haven/pkg/domain-errors"
	"haven/pkg/platform/audit"
	"haven/pkg/platform/clock"
)

// =============================================================================
// Stealth Service Test Suite
// =============================================================================
// Justification for unit tests: the unlock matcher and the idle timer carry
// exact-sequence and timing semantics that HTTP-level tests cannot pin down
// deterministically. The fake clock makes every timer path observable.

type StealthServiceSuite struct {
	suite.Suite
	store   *settings.InMemoryStore
	core    *coordination.Core
	clk     *clock.Fake
	service *Service
}

func TestStealthServiceSuite(t *testing.T) {
	suite.Run(t, new(StealthServiceSuite))
}

func (s *StealthServiceSuite) SetupTest() {
	ctx := context.Background()
	s.store = settings.NewInMemoryStore()

	var err error
	s.core, err = coordination.New(ctx, s.store, audit.NewPublisher())
	s.Require().NoError(err)

	s.clk = clock.NewFake()
	s.service, err = New(ctx, s.core, s.store, WithClock(s.clk))
	s.Require().NoError(err)

	s.Require().NoError(s.service.SetConfig(ctx, Config{
		CoverStory:         CoverCalculator,
		UnlockSequence:     "5555",
		IdleTimeoutSeconds: 120,
	}))
}

func (s *StealthServiceSuite) activate() {
	s.Require().NoError(s.service.Activate(context.Background(), ActivateManual))
	s.Require().Equal(domain.ModeStealth, s.core.Mode())
}

// feed pushes tokens one at a time and returns the final matched result.
func (s *StealthServiceSuite) feed(tokens ...string) bool {
	matched := false
	for _, tok := range tokens {
		var err error
		matched, err = s.service.FeedInput(context.Background(), tok)
		s.Require().NoError(err)
	}
	return matched
}

// =============================================================================
// Constructor and Config
// =============================================================================

func (s *StealthServiceSuite) TestNew() {
	ctx := context.Background()

	s.Run("nil core returns error", func() {
		_, err := New(ctx, nil, s.store)
		s.Error(err)
	})

	s.Run("nil store returns error", func() {
		_, err := New(ctx, s.core, nil)
		s.Error(err)
	})

	s.Run("corrupt persisted config resolves to defaults", func() {
		store := settings.NewInMemoryStore()
		s.Require().NoError(store.Set(ctx, settings.KeyStealthConfig, "{not json"))
		core, err := coordination.New(ctx, store, audit.NewPublisher())
		s.Require().NoError(err)

		svc, err := New(ctx, core, store)
		s.Require().NoError(err)
		s.Equal(DefaultConfig(), svc.Config())
	})
}

func (s *StealthServiceSuite) TestSetConfig() {
	ctx := context.Background()

	s.Run("rejects unlock sequence below minimum length", func() {
		err := s.service.SetConfig(ctx, Config{
			CoverStory:         CoverNotes,
			UnlockSequence:     "123",
			IdleTimeoutSeconds: 60,
		})
		s.Require().Error(err)
		s.True(derrors.HasCode(err, derrors.CodeValidation))
	})

	s.Run("rejects unknown cover story", func() {
		err := s.service.SetConfig(ctx, Config{
			CoverStory:         "flashlight",
			UnlockSequence:     "8642",
			IdleTimeoutSeconds: 60,
		})
		s.Require().Error(err)
		s.True(derrors.HasCode(err, derrors.CodeValidation))
	})

	s.Run("rejects zero idle timeout", func() {
		err := s.service.SetConfig(ctx, Config{
			CoverStory:         CoverNotes,
			UnlockSequence:     "8642",
			IdleTimeoutSeconds: 0,
		})
		s.Require().Error(err)
		s.True(derrors.HasCode(err, derrors.CodeValidation))
	})

	s.Run("valid config is accepted and survives persistence failure", func() {
		s.store.FailNextSets(2)
		err := s.service.SetConfig(ctx, Config{
			CoverStory:         CoverNotes,
			UnlockSequence:     "8642",
			IdleTimeoutSeconds: 60,
		})
		s.Require().NoError(err)
		s.Equal(CoverNotes, s.service.Config().CoverStory)
	})
}

// =============================================================================
// Activate / Deactivate
// =============================================================================

func (s *StealthServiceSuite) TestActivateDeactivate() {
	ctx := context.Background()

	s.Run("unknown methods are rejected", func() {
		s.Error(s.service.Activate(ctx, "teleport"))
		s.Error(s.service.Deactivate(ctx, "teleport"))
	})

	s.Run("activate enters stealth and deactivate leaves it", func() {
		s.activate()
		s.Require().NoError(s.service.Deactivate(ctx, DeactivateManual))
		s.Equal(domain.ModeNormal, s.core.Mode())
	})

	s.Run("repeated activation is idempotent", func() {
		s.activate()
		s.Require().NoError(s.service.Activate(ctx, ActivateGesture))
		s.Equal(domain.ModeStealth, s.core.Mode())
	})
}

// =============================================================================
// Unlock Matcher
// =============================================================================

func (s *StealthServiceSuite) TestFeedInputExactMatch() {
	s.Run("full secret in one token matches", func() {
		s.activate()
		s.True(s.feed("5555"))
		s.Equal(domain.ModeNormal, s.core.Mode(), "match deactivates stealth")
	})

	s.Run("secret accumulated across tokens matches", func() {
		s.activate()
		s.False(s.feed("5"))
		s.False(s.feed("5", "5"))
		s.True(s.feed("5"))
	})

	s.Run("match clears the buffer for the next session", func() {
		s.activate()
		s.True(s.feed("5555"))
		s.activate()
		s.True(s.feed("5555"))
	})
}

func (s *StealthServiceSuite) TestFeedInputNeverMatchesSupersequences() {
	s.activate()

	s.Run("leading extra digit poisons the buffer", func() {
		s.False(s.feed("0", "5", "5", "5", "5"))
		s.Equal(domain.ModeStealth, s.core.Mode())
	})

	s.Run("poisoned buffer stays dead until cleared", func() {
		s.False(s.feed("5", "5", "5", "5"))
		s.Equal(domain.ModeStealth, s.core.Mode())
	})

	s.Run("clear resets the matcher", func() {
		s.service.ClearInput()
		s.True(s.feed("5555"))
	})
}

func (s *StealthServiceSuite) TestFeedInputTrailingAndOverflow() {
	s.Run("secret followed by extra digit never matches retroactively", func() {
		s.activate()
		s.False(s.feed("5555x"))
		s.False(s.feed("5"))
		s.Equal(domain.ModeStealth, s.core.Mode())
	})

	s.Run("five of the secret digit does not match a four digit secret", func() {
		s.service.ClearInput()
		s.False(s.feed("55555"))
		s.Equal(domain.ModeStealth, s.core.Mode())
	})
}

func (s *StealthServiceSuite) TestFeedInputWithoutConfiguredSecret() {
	ctx := context.Background()
	store := settings.NewInMemoryStore()
	core, err := coordination.New(ctx, store, audit.NewPublisher())
	s.Require().NoError(err)
	svc, err := New(ctx, core, store, WithClock(clock.NewFake()))
	s.Require().NoError(err)

	// Default config has no unlock sequence; nothing can match.
	matched, err := svc.FeedInput(ctx, "5555")
	s.Require().NoError(err)
	s.False(matched)
}

// =============================================================================
// Idle Timer
// =============================================================================

func (s *StealthServiceSuite) TestIdleTimeoutRevertsToNormal() {
	s.activate()

	s.clk.Advance(119 * time.Second)
	s.Equal(domain.ModeStealth, s.core.Mode())

	s.clk.Advance(1 * time.Second)
	s.Equal(domain.ModeNormal, s.core.Mode())
}

func (s *StealthServiceSuite) TestInteractionReArmsIdleTimer() {
	s.activate()

	s.clk.Advance(100 * time.Second)
	s.False(s.feed("1"))

	// The old deadline passes without firing; only the new one counts.
	s.clk.Advance(100 * time.Second)
	s.Equal(domain.ModeStealth, s.core.Mode())

	s.clk.Advance(20 * time.Second)
	s.Equal(domain.ModeNormal, s.core.Mode())
}

func (s *StealthServiceSuite) TestIdleTimeoutDeferredWhileEmergencyInFlight() {
	ctx := context.Background()
	s.activate()

	runID := domain.NewRunID()
	covert, err := s.core.ArmEmergency(ctx, runID, "button")
	s.Require().NoError(err)
	s.Require().True(covert)

	s.clk.Advance(120 * time.Second)
	s.Equal(domain.ModeStealth, s.core.Mode(), "timeout must not fire mid-pipeline")
	s.Positive(s.clk.Pending(), "timer re-armed for the next window")

	// Once the run ends, the next window reverts as usual.
	s.Require().NoError(s.core.NoteTerminal(ctx, runID, audit.OutcomeCompleted))
	s.clk.Advance(120 * time.Second)
	s.Equal(domain.ModeNormal, s.core.Mode())
}

func (s *StealthServiceSuite) TestManualDeactivateStopsIdleTimer() {
	ctx := context.Background()
	s.activate()
	s.Require().NoError(s.service.Deactivate(ctx, DeactivateManual))

	// Re-enter stealth through the core directly; the superseded timer from
	// the first session must not fire into the new one.
	s.Require().NoError(s.core.CommitStealthActivate(ctx, "manual"))
	s.clk.Advance(120 * time.Second)
	s.Equal(domain.ModeStealth, s.core.Mode())
}

func (s *StealthServiceSuite) TestRestartInStealthReArmsIdleTimer() {
	ctx := context.Background()
	s.Require().NoError(settings.SaveMode(ctx, s.store, domain.ModeStealth))

	core, err := coordination.New(ctx, s.store, audit.NewPublisher())
	s.Require().NoError(err)
	s.Require().Equal(domain.ModeStealth, core.Mode())

	clk := clock.NewFake()
	_, err = New(ctx, core, s.store, WithClock(clk))
	s.Require().NoError(err)

	clk.Advance(120 * time.Second)
	s.Equal(domain.ModeNormal, core.Mode(), "restart must not leave stealth stuck")
}
