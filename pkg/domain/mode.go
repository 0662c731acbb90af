package domain

// Mode is the single externally visible operating state of the app. Exactly
// one value is active at any instant; the coordination core is its only
// writer. It is decoupled from HTTP DTOs and from pipeline stages: a covert
// run keeps Mode at ModeStealth for its whole lifetime.
type Mode string

const (
	ModeNormal           Mode = "normal"
	ModeStealth          Mode = "stealth"
	ModeEmergencyPending Mode = "emergency_pending"
	ModeEmergencyActive  Mode = "emergency_active"
	ModeEmergencyWinding Mode = "emergency_winding"
)

// Valid reports whether m is one of the defined modes.
func (m Mode) Valid() bool {
	switch m {
	case ModeNormal, ModeStealth, ModeEmergencyPending, ModeEmergencyActive, ModeEmergencyWinding:
		return true
	}
	return false
}

// Emergency reports whether m is one of the emergency modes.
func (m Mode) Emergency() bool {
	switch m {
	case ModeEmergencyPending, ModeEmergencyActive, ModeEmergencyWinding:
		return true
	}
	return false
}

func (m Mode) String() string { return string(m) }

// ParseMode maps a persisted string back to a Mode. Unknown values return
// ModeNormal and false so loaders can fall back to the safe default instead
// of failing closed into a state the user cannot leave.
func ParseMode(s string) (Mode, bool) {
	m := Mode(s)
	if !m.Valid() {
		return ModeNormal, false
	}
	return m, true
}
