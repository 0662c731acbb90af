// Package settings is the persistent key-value store behind mode flags,
// stealth configuration, and the contact list. Values are opaque strings;
// owning services define their own encoding. A value that exists but fails
// its owner's parse is reported as sentinel.ErrCorrupt by the owner and
// resolved to safe defaults, never a startup failure.
package settings

import (
	"context"

	"haven/pkg/domain"
)

// Well-known keys. Owning managers are the only writers of their key.
const (
	KeyMode          = "haven:mode"
	KeyStealthConfig = "haven:stealth:config"
	KeyContacts      = "haven:contacts"
)

// Store persists string pairs. Get returns sentinel.ErrNotFound (wrapped)
// for missing keys.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// LoadMode reads the persisted mode, resolving missing or unparseable
// values to ModeNormal. Only infrastructure failures are returned as
// errors; corrupt payloads are a safe-default case, not a failure.
func LoadMode(ctx context.Context, s Store) (domain.Mode, error) {
	raw, err := s.Get(ctx, KeyMode)
	if err != nil {
		if IsNotFound(err) {
			return domain.ModeNormal, nil
		}
		return domain.ModeNormal, err
	}
	mode, _ := domain.ParseMode(raw)
	return mode, nil
}

// SaveMode persists the current mode.
func SaveMode(ctx context.Context, s Store, mode domain.Mode) error {
	return s.Set(ctx, KeyMode, string(mode))
}
