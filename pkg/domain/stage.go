package domain

// Stage is the lifecycle position of one emergency pipeline run. Stage
// advancement is strictly ordered and non-skippable; Cancelled is reachable
// only from Armed or Countdown, and Failed records the stage it failed at
// on the run itself.
type Stage string

const (
	StageArmed      Stage = "armed"
	StageCountdown  Stage = "countdown"
	StageCapturing  Stage = "capturing"
	StageEncrypting Stage = "encrypting"
	StageUploading  Stage = "uploading"
	StageNotifying  Stage = "notifying"
	StageWiping     Stage = "wiping"
	StageCompleted  Stage = "completed"
	StageCancelled  Stage = "cancelled"
	StageFailed     Stage = "failed"
)

// Terminal reports whether the run is finished.
func (s Stage) Terminal() bool {
	switch s {
	case StageCompleted, StageCancelled, StageFailed:
		return true
	}
	return false
}

// Cancelable reports whether user cancellation is still honored. Once
// capture starts, the pipeline runs to completion or failure; evidence
// preservation takes priority over convenience.
func (s Stage) Cancelable() bool {
	return s == StageArmed || s == StageCountdown
}

// RequiresVisibleUI reports the window in which the real UI must remain
// reachable: entering or leaving stealth during these stages would orphan
// a partially disguised pipeline.
func (s Stage) RequiresVisibleUI() bool {
	switch s {
	case StageCapturing, StageEncrypting, StageUploading, StageNotifying:
		return true
	}
	return false
}

// ModeFor maps a stage to the externally visible mode of a non-covert run.
// Covert runs never consult this: their mode stays ModeStealth throughout.
func (s Stage) ModeFor() Mode {
	switch s {
	case StageArmed, StageCountdown:
		return ModeEmergencyPending
	case StageCapturing, StageEncrypting, StageUploading, StageNotifying:
		return ModeEmergencyActive
	case StageWiping:
		return ModeEmergencyWinding
	default:
		return ModeNormal
	}
}
