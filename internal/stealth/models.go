package stealth

import (
	"encoding/json"
	"fmt"
	"time"

	"haven/pkg/platform/sentinel"
)

// CoverStory selects which disguise UI the client renders while stealth is
// active.
type CoverStory string

const (
	CoverNotes      CoverStory = "notes"
	CoverCalculator CoverStory = "calculator"
	CoverBrowser    CoverStory = "browser"
	CoverCalendar   CoverStory = "calendar"
)

func (c CoverStory) Valid() bool {
	switch c {
	case CoverNotes, CoverCalculator, CoverBrowser, CoverCalendar:
		return true
	}
	return false
}

// ActivateMethod is how stealth was entered.
type ActivateMethod string

const (
	ActivateManual         ActivateMethod = "manual"
	ActivateGesture        ActivateMethod = "gesture"
	ActivateSecretSequence ActivateMethod = "secret_sequence"
	ActivateAutoBackground ActivateMethod = "auto_background"
)

func (m ActivateMethod) Valid() bool {
	switch m {
	case ActivateManual, ActivateGesture, ActivateSecretSequence, ActivateAutoBackground:
		return true
	}
	return false
}

// DeactivateMethod is how stealth was left.
type DeactivateMethod string

const (
	DeactivateManual         DeactivateMethod = "manual"
	DeactivateGesture        DeactivateMethod = "gesture"
	DeactivateSecretSequence DeactivateMethod = "secret_sequence"
	DeactivateTimeout        DeactivateMethod = "timeout"
)

func (m DeactivateMethod) Valid() bool {
	switch m {
	case DeactivateManual, DeactivateGesture, DeactivateSecretSequence, DeactivateTimeout:
		return true
	}
	return false
}

// MinUnlockLength is the shortest accepted unlock sequence.
const MinUnlockLength = 4

// Config is the stealth session configuration. The service is its only
// writer; it round-trips through the settings store as JSON.
type Config struct {
	CoverStory               CoverStory `json:"cover_story"`
	AutoActivateOnBackground bool       `json:"auto_activate_on_background"`
	UnlockSequence           string     `json:"unlock_sequence"`
	IdleTimeoutSeconds       uint       `json:"idle_timeout_seconds"`
}

// DefaultConfig is what a corrupt or missing persisted config resolves to.
func DefaultConfig() Config {
	return Config{
		CoverStory:         CoverCalculator,
		UnlockSequence:     "",
		IdleTimeoutSeconds: 120,
	}
}

// Validate rejects configs the service must not accept through SetConfig.
// Note the default config (empty unlock sequence) is intentionally not
// valid for SetConfig: an unlock sequence must be chosen before stealth
// relies on secret-sequence exit, but loading must still tolerate it.
func (c Config) Validate() error {
	if !c.CoverStory.Valid() {
		return fmt.Errorf("unknown cover story %q", c.CoverStory)
	}
	if len(c.UnlockSequence) < MinUnlockLength {
		return fmt.Errorf("unlock sequence shorter than %d", MinUnlockLength)
	}
	if c.IdleTimeoutSeconds == 0 {
		return fmt.Errorf("idle timeout must be positive")
	}
	return nil
}

// IdleTimeout is the timer form of the configured seconds.
func (c Config) IdleTimeout() time.Duration {
	return time.Duration(c.IdleTimeoutSeconds) * time.Second
}

// ParseConfig decodes a persisted config, mapping malformed payloads to
// sentinel.ErrCorrupt so loaders can fall back to defaults.
func ParseConfig(raw string) (Config, error) {
	var cfg Config
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return Config{}, fmt.Errorf("stealth config: %w", sentinel.ErrCorrupt)
	}
	if !cfg.CoverStory.Valid() || cfg.IdleTimeoutSeconds == 0 {
		return Config{}, fmt.Errorf("stealth config: %w", sentinel.ErrCorrupt)
	}
	return cfg, nil
}

// Encode renders the config for persistence.
func (c Config) Encode() string {
	b, _ := json.Marshal(c)
	return string(b)
}
