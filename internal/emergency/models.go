package emergency

import (
	"time"

	"haven/internal/adapters"
	"haven/pkg/domain"
)

// TriggerSource is what fired the panic trigger.
type TriggerSource string

const (
	SourceButton  TriggerSource = "button"
	SourceGesture TriggerSource = "gesture"
	SourceSMSCode TriggerSource = "sms_code"
)

func (s TriggerSource) Valid() bool {
	switch s {
	case SourceButton, SourceGesture, SourceSMSCode:
		return true
	}
	return false
}

// Contact is one emergency contact. Collection invariant: a non-empty
// collection has exactly one primary, enforced by the service on every
// mutation; the storage layer is plain persistence.
type Contact struct {
	ID           domain.ContactID `json:"id"`
	Name         string           `json:"name"`
	Phone        string           `json:"phone"`
	Relationship string           `json:"relationship,omitempty"`
	IsPrimary    bool             `json:"is_primary"`
	CreatedAt    time.Time        `json:"created_at"`
}

// Run is one emergency pipeline execution. It owns its media handle from
// capture until the wiping stage destroys it or an upload failure leaves
// it retained for manual recovery. Exactly one run is active at a time.
type Run struct {
	ID          domain.RunID
	Stage       domain.Stage
	FailedStage domain.Stage // set iff Stage == StageFailed
	Covert      bool
	Source      TriggerSource
	StartedAt   time.Time
	UpdatedAt   time.Time
	Media       *adapters.MediaHandle
	Receipt     string
	Attempts    map[domain.Stage]int
}

// Active reports whether the run still holds the single-active-run slot.
func (r *Run) Active() bool {
	return r != nil && !r.Stage.Terminal()
}

// Snapshot is the read-only view handed to the UI. Building it copies
// everything the UI needs so polling never blocks on in-flight adapter
// calls.
type Snapshot struct {
	RunID            string               `json:"run_id"`
	Stage            domain.Stage         `json:"stage"`
	FailedStage      domain.Stage         `json:"failed_stage,omitempty"`
	Covert           bool                 `json:"covert"`
	Source           TriggerSource        `json:"source"`
	StartedAt        time.Time            `json:"started_at"`
	UpdatedAt        time.Time            `json:"updated_at"`
	Receipt          string               `json:"receipt,omitempty"`
	EvidenceRetained bool                 `json:"evidence_retained"`
	Attempts         map[domain.Stage]int `json:"attempts,omitempty"`
}

func (r *Run) snapshot() Snapshot {
	s := Snapshot{
		RunID:       r.ID.String(),
		Stage:       r.Stage,
		FailedStage: r.FailedStage,
		Covert:      r.Covert,
		Source:      r.Source,
		StartedAt:   r.StartedAt,
		UpdatedAt:   r.UpdatedAt,
		Receipt:     r.Receipt,
		// Evidence survives locally when the pipeline failed before or at
		// upload while media was already captured: wiping was skipped.
		EvidenceRetained: r.Stage == domain.StageFailed && r.Media != nil,
	}
	if len(r.Attempts) > 0 {
		s.Attempts = make(map[domain.Stage]int, len(r.Attempts))
		for k, v := range r.Attempts {
			s.Attempts[k] = v
		}
	}
	return s
}
