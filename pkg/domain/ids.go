// Package domain holds the shared identifier types and the externally
// visible Mode. Keeping these in one dependency-free package lets every
// layer agree on types without importing each other.
package domain

import "github.com/google/uuid"

// RunID identifies one emergency pipeline run.
type RunID uuid.UUID

// ContactID identifies one emergency contact.
type ContactID uuid.UUID

// NewRunID returns a fresh random run ID.
func NewRunID() RunID { return RunID(uuid.New()) }

// NewContactID returns a fresh random contact ID.
func NewContactID() ContactID { return ContactID(uuid.New()) }

func (r RunID) String() string { return uuid.UUID(r).String() }
func (r RunID) IsNil() bool    { return uuid.UUID(r) == uuid.Nil }

func (c ContactID) String() string { return uuid.UUID(c).String() }
func (c ContactID) IsNil() bool    { return uuid.UUID(c) == uuid.Nil }

// ParseRunID parses a run ID from its string form.
func ParseRunID(s string) (RunID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return RunID{}, err
	}
	return RunID(u), nil
}

// ParseContactID parses a contact ID from its string form.
func ParseContactID(s string) (ContactID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return ContactID{}, err
	}
	return ContactID(u), nil
}
