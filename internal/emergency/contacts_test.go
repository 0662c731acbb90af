package emergency

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"haven/internal/adapters"
	"haven/internal/coordination"
	"haven/internal/settings"
	"haven/pkg/domain"
	derrors "haven/pkg/domain-errors"
	"haven/pkg/platform/audit"
	"haven/pkg/platform/clock"
)

// =============================================================================
// Contact Collection Test Suite
// =============================================================================

type ContactsSuite struct {
	suite.Suite
	store   *settings.InMemoryStore
	service *Service
}

func TestContactsSuite(t *testing.T) {
	suite.Run(t, new(ContactsSuite))
}

func (s *ContactsSuite) SetupTest() {
	ctx := context.Background()
	s.store = settings.NewInMemoryStore()
	core, err := coordination.New(ctx, s.store, audit.NewPublisher())
	s.Require().NoError(err)

	capture := adapters.NewMemoryCapture()
	s.service, err = New(ctx, core, s.store, Ports{
		Capture:  capture,
		Sealer:   &adapters.MemorySealer{},
		Vault:    adapters.NewMemoryVault(),
		Notifier: adapters.NewMemoryNotifier(),
		Wiper:    adapters.NewMemoryWiper(capture),
	}, WithClock(clock.NewFake()))
	s.Require().NoError(err)
}

func (s *ContactsSuite) add(name string, primary bool) Contact {
	c, err := s.service.AddContact(context.Background(), Contact{
		Name: name, Phone: "+1555" + name, IsPrimary: primary,
	})
	s.Require().NoError(err)
	return c
}

func (s *ContactsSuite) primaries() []string {
	var out []string
	for _, c := range s.service.Contacts() {
		if c.IsPrimary {
			out = append(out, c.Name)
		}
	}
	return out
}

// =============================================================================
// Single-Primary Invariant
// =============================================================================

func (s *ContactsSuite) TestFirstContactBecomesPrimary() {
	s.add("alice", false)
	s.Equal([]string{"alice"}, s.primaries(), "a non-empty collection always has a primary")
}

func (s *ContactsSuite) TestExplicitPrimaryDemotesPrevious() {
	s.add("alice", true)
	s.add("bob", true)
	s.Equal([]string{"bob"}, s.primaries(), "most recent explicit primary wins")
}

func (s *ContactsSuite) TestRemovingPrimaryPromotesOldestRemaining() {
	alice := s.add("alice", true)
	s.add("bob", false)
	s.add("carol", false)

	s.Require().NoError(s.service.RemoveContact(context.Background(), alice.ID))
	s.Equal([]string{"bob"}, s.primaries())
}

func (s *ContactsSuite) TestRemovingLastContactLeavesEmptyCollection() {
	alice := s.add("alice", true)
	s.Require().NoError(s.service.RemoveContact(context.Background(), alice.ID))
	s.Empty(s.service.Contacts())
	s.Empty(s.primaries())
}

func (s *ContactsSuite) TestUpdateDemotingOnlyPrimaryRepairsInvariant() {
	alice := s.add("alice", true)
	s.add("bob", false)

	alice.IsPrimary = false
	_, err := s.service.UpdateContact(context.Background(), alice)
	s.Require().NoError(err)

	s.Len(s.primaries(), 1, "demotion must not leave the collection primaryless")
}

func (s *ContactsSuite) TestUpdatePromotionDemotesPrevious() {
	s.add("alice", true)
	bob := s.add("bob", false)

	bob.IsPrimary = true
	_, err := s.service.UpdateContact(context.Background(), bob)
	s.Require().NoError(err)
	s.Equal([]string{"bob"}, s.primaries())
}

// =============================================================================
// Validation and Lookup
// =============================================================================

func (s *ContactsSuite) TestValidation() {
	ctx := context.Background()

	s.Run("name is required", func() {
		_, err := s.service.AddContact(ctx, Contact{Phone: "+15550100"})
		s.Require().Error(err)
		s.True(derrors.HasCode(err, derrors.CodeValidation))
	})

	s.Run("phone is required", func() {
		_, err := s.service.AddContact(ctx, Contact{Name: "alice"})
		s.Require().Error(err)
		s.True(derrors.HasCode(err, derrors.CodeValidation))
	})

	s.Run("update of unknown contact is not found", func() {
		_, err := s.service.UpdateContact(ctx, Contact{
			ID: domain.NewContactID(), Name: "ghost", Phone: "+15550199",
		})
		s.Require().Error(err)
		s.True(derrors.HasCode(err, derrors.CodeNotFound))
	})

	s.Run("remove of unknown contact is not found", func() {
		err := s.service.RemoveContact(ctx, domain.NewContactID())
		s.Require().Error(err)
		s.True(derrors.HasCode(err, derrors.CodeNotFound))
	})
}

func (s *ContactsSuite) TestContactsSortPrimaryFirst() {
	s.add("alice", false)
	s.add("bob", true)
	s.add("carol", false)

	contacts := s.service.Contacts()
	s.Require().Len(contacts, 3)
	s.Equal("bob", contacts[0].Name)
	s.True(contacts[0].IsPrimary)
}

// =============================================================================
// Persistence
// =============================================================================

func (s *ContactsSuite) TestContactsSurviveRestart() {
	ctx := context.Background()
	s.add("alice", true)
	s.add("bob", false)

	// Persistence is asynchronous-tolerant but the happy path is
	// synchronous, so the store already holds the list.
	core, err := coordination.New(ctx, s.store, audit.NewPublisher())
	s.Require().NoError(err)
	capture := adapters.NewMemoryCapture()
	revived, err := New(ctx, core, s.store, Ports{
		Capture:  capture,
		Sealer:   &adapters.MemorySealer{},
		Vault:    adapters.NewMemoryVault(),
		Notifier: adapters.NewMemoryNotifier(),
		Wiper:    adapters.NewMemoryWiper(capture),
	})
	s.Require().NoError(err)

	contacts := revived.Contacts()
	s.Require().Len(contacts, 2)
	s.Equal("alice", contacts[0].Name)
	s.True(contacts[0].IsPrimary)
}

func (s *ContactsSuite) TestAddSurvivesPersistenceFailure() {
	s.store.FailNextSets(2)
	s.add("alice", true)
	s.Len(s.service.Contacts(), 1, "in-memory list stays authoritative")
}
