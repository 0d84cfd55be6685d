package session

import "errors"

// Sentinel errors for session control flow.
var (
	// ErrInvalidTransition reports a mode change the state machine forbids.
	ErrInvalidTransition = errors.New("invalid session mode transition")

	// ErrAlreadyRunning reports a start while a run is active.
	ErrAlreadyRunning = errors.New("session is already running")

	// ErrSchedulingDenied reports that the alarm collaborator refused to
	// arm alarms. Entering live mode without armed alarms is a precondition
	// failure, never a silent degradation.
	ErrSchedulingDenied = errors.New("alarm scheduling denied")

	// ErrPracticeOnly reports a practice-mode operation attempted elsewhere.
	ErrPracticeOnly = errors.New("operation is only valid in practice mode")
)
