package session

import (
	"time"

	"github.com/conductorapp/conductor/audio"
	"github.com/conductorapp/conductor/cue"
	"github.com/conductorapp/conductor/event"
)

// Effects is the session's side-effect sink: the UI shell, the device
// haptics, and whatever plays resolved cues. The session guarantees each
// call fires at most once per action per category per run, in ascending
// action-time order within a tick.
type Effects interface {
	// PlayCue plays a resolved announcement for the action.
	PlayCue(a event.Action, c cue.Category, res cue.Resolution)

	// PlayBeep substitutes a beep pattern when speech is degraded.
	PlayBeep(a event.Action, kind audio.BeepKind)

	// Haptic fires the action's vibration pattern at the trigger instant.
	Haptic(a event.Action, pattern event.HapticPattern)

	// AudioDegraded reports, once per run, that the session is operating
	// below full audio. Shells surface this as a persistent banner, not a
	// dialog.
	AudioDegraded(mode audio.FallbackMode)
}

// AlarmScheduler is the external alarm collaborator: it fires registered
// callbacks at-or-after the requested instant even when the process is not
// running, with at-least-once delivery. The session therefore treats
// alarm-fired reports idempotently.
type AlarmScheduler interface {
	// Schedule arms one alarm for an action.
	Schedule(eventID, actionID string, at time.Time, payload string) error

	// CancelAll disarms every outstanding alarm for the event.
	CancelAll(eventID string) error
}

// NopEffects discards every effect. Useful as a default and in benchmarks.
type NopEffects struct{}

// PlayCue implements Effects.
func (NopEffects) PlayCue(event.Action, cue.Category, cue.Resolution) {}

// PlayBeep implements Effects.
func (NopEffects) PlayBeep(event.Action, audio.BeepKind) {}

// Haptic implements Effects.
func (NopEffects) Haptic(event.Action, event.HapticPattern) {}

// AudioDegraded implements Effects.
func (NopEffects) AudioDegraded(audio.FallbackMode) {}

// Snapshot is the session state published to readers between ticks.
type Snapshot struct {
	Mode            Mode
	VirtualNow      time.Time
	Speed           float64
	Paused          bool
	AudioMode       audio.FallbackMode
	CurrentActionID string
	Upcoming        []event.Action
	FiredCount      int
}
