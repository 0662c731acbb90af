package emergency

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"haven/internal/adapters"
	"haven/internal/settings"
	"haven/pkg/domain"
	derrors "haven/pkg/domain-errors"
)

// Contacts returns a copy of the contact list, primary first, then by
// creation time.
func (s *Service) Contacts() []Contact {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Contact, len(s.contacts))
	copy(out, s.contacts)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].IsPrimary != out[j].IsPrimary {
			return out[i].IsPrimary
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// AddContact appends a contact and re-establishes the single-primary
// invariant: an explicit primary demotes the previous one, and the first
// contact added to an empty collection becomes primary regardless.
func (s *Service) AddContact(ctx context.Context, c Contact) (Contact, error) {
	if err := validateContact(c); err != nil {
		return Contact{}, err
	}
	if c.ID.IsNil() {
		c.ID = domain.NewContactID()
	}
	c.CreatedAt = s.clk.Now()

	s.mu.Lock()
	if c.IsPrimary {
		s.demoteAllLocked()
	}
	s.contacts = append(s.contacts, c)
	s.ensurePrimaryLocked()
	s.mu.Unlock()

	s.persistContacts(ctx)
	return c, nil
}

// UpdateContact replaces the stored contact with the same ID. Promoting a
// contact to primary demotes the current primary; demoting the only
// primary falls back to the oldest contact.
func (s *Service) UpdateContact(ctx context.Context, c Contact) (Contact, error) {
	if err := validateContact(c); err != nil {
		return Contact{}, err
	}

	s.mu.Lock()
	idx := -1
	for i := range s.contacts {
		if s.contacts[i].ID == c.ID {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return Contact{}, derrors.New(derrors.CodeNotFound, "contact not found")
	}
	c.CreatedAt = s.contacts[idx].CreatedAt
	if c.IsPrimary {
		s.demoteAllLocked()
	}
	s.contacts[idx] = c
	s.ensurePrimaryLocked()
	out := s.contacts[idx]
	s.mu.Unlock()

	s.persistContacts(ctx)
	return out, nil
}

// RemoveContact deletes a contact. Removing the primary promotes the
// oldest remaining contact so a non-empty collection always has one.
func (s *Service) RemoveContact(ctx context.Context, id domain.ContactID) error {
	s.mu.Lock()
	idx := -1
	for i := range s.contacts {
		if s.contacts[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return derrors.New(derrors.CodeNotFound, "contact not found")
	}
	s.contacts = append(s.contacts[:idx], s.contacts[idx+1:]...)
	s.ensurePrimaryLocked()
	s.mu.Unlock()

	s.persistContacts(ctx)
	return nil
}

func validateContact(c Contact) error {
	if strings.TrimSpace(c.Name) == "" {
		return derrors.New(derrors.CodeValidation, "contact name is required")
	}
	if strings.TrimSpace(c.Phone) == "" {
		return derrors.New(derrors.CodeValidation, "contact phone is required")
	}
	return nil
}

func (s *Service) demoteAllLocked() {
	for i := range s.contacts {
		s.contacts[i].IsPrimary = false
	}
}

// ensurePrimaryLocked converges the collection to exactly one primary.
// Callers demote before an explicit promotion, so the only repair needed
// here is electing the oldest contact when none is marked.
func (s *Service) ensurePrimaryLocked() {
	if len(s.contacts) == 0 {
		return
	}
	oldest, found := 0, false
	for i := range s.contacts {
		if s.contacts[i].IsPrimary {
			found = true
			break
		}
		if s.contacts[i].CreatedAt.Before(s.contacts[oldest].CreatedAt) {
			oldest = i
		}
	}
	if !found {
		s.contacts[oldest].IsPrimary = true
	}
}

// recipientsLocked builds the notification fan-out list, primary first.
func (s *Service) recipientsLocked() []adapters.Recipient {
	out := make([]adapters.Recipient, 0, len(s.contacts))
	for _, c := range s.contacts {
		r := adapters.Recipient{Name: c.Name, Phone: c.Phone, Primary: c.IsPrimary}
		if r.Primary {
			out = append([]adapters.Recipient{r}, out...)
		} else {
			out = append(out, r)
		}
	}
	return out
}

func (s *Service) loadContacts(ctx context.Context) []Contact {
	raw, err := s.store.Get(ctx, settings.KeyContacts)
	if err != nil {
		if !settings.IsNotFound(err) {
			s.logger.Warn("contact list load failed, starting empty", "error", err)
		}
		return nil
	}
	var contacts []Contact
	if err := json.Unmarshal([]byte(raw), &contacts); err != nil {
		s.logger.Warn("contact list corrupt, starting empty")
		return nil
	}
	return contacts
}

// persistContacts writes the full list through the settings store with the
// same degrade-to-background policy as mode persistence: the in-memory
// list stays authoritative.
func (s *Service) persistContacts(ctx context.Context) {
	s.mu.Lock()
	raw, err := json.Marshal(s.contacts)
	s.mu.Unlock()
	if err != nil {
		s.logger.Error("contact list encode failed", "error", err)
		return
	}
	s.persist(ctx, settings.KeyContacts, string(raw))
}

// persist applies the retry-once-then-background policy shared with mode
// persistence.
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
