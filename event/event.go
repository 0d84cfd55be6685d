// Package event defines the Conductor event model: an event is a titled,
// time-anchored sequence of actions that physically-distributed participants
// perform in lockstep using only their local device clocks.
package event

import "time"

// Style colors an action's urgency for rendering and haptic defaults.
type Style string

const (
	// StyleNormal is the default, unemphasized presentation.
	StyleNormal Style = "normal"
	// StyleEmphasis marks an action participants should not miss.
	StyleEmphasis Style = "emphasis"
	// StyleAlert marks a critical, attention-demanding action.
	StyleAlert Style = "alert"
)

// HapticPattern selects the vibration fired at an action's trigger instant.
type HapticPattern string

const (
	// HapticSingle is one vibration pulse, the default.
	HapticSingle HapticPattern = "single"
	// HapticDouble is two pulses.
	HapticDouble HapticPattern = "double"
	// HapticTriple is three pulses.
	HapticTriple HapticPattern = "triple"
	// HapticNone suppresses vibration for the action.
	HapticNone HapticPattern = "none"
	// HapticCustom defers to a platform-defined pattern.
	HapticCustom HapticPattern = "custom"
)

// Defaults applied by ValidateAndComplete and omitted by the codec.
const (
	// DefaultTitle stands in when an event arrives without one.
	DefaultTitle = "Untitled Event"


	// DefaultNoticeSeconds is the lead time for the "get ready" announcement
	// when neither the event nor the action specifies one.
	DefaultNoticeSeconds = 10

	// EndTimeBuffer is added to the last action's time to derive EndTime
	// when the source omits it.
	EndTimeBuffer = 30 * time.Second
)

// DefaultCountdownOffsets are the integer second marks that beep before an
// action with countdown enabled and no per-action override.
var DefaultCountdownOffsets = []int{5, 4, 3, 2, 1}

// Action is a single timed instruction on an event's timeline. Actions are
// immutable once an event is loaded into a running session.
type Action struct {
	// ID is unique within the event's timeline.
	ID string

	// Time is the absolute trigger instant.
	Time time.Time

	// Action is the human-readable instruction. It doubles as the default
	// speech-fallback utterance and the default cue-lookup phrase.
	Action string

	// Style colors the action's urgency.
	Style Style

	// HapticPattern is the vibration fired at the trigger instant.
	HapticPattern HapticPattern

	// AudioAnnounce gates all audio for this action (notice, countdown,
	// trigger). Defaults to true.
	AudioAnnounce bool

	// AnnounceActionName controls whether the trigger announcement speaks
	// the action text. Defaults to true.
	AnnounceActionName bool

	// CountdownBeeps enables the numeric countdown into this action.
	CountdownBeeps bool

	// CountdownSeconds overrides which integer offsets beep, highest first
	// (for example 10, 5, 3, 2, 1). Empty means DefaultCountdownOffsets
	// when CountdownBeeps is set.
	CountdownSeconds []int

	// Cue optionally keys into a resource pack's cue map, used in
	// preference to synthesizing the action text.
	Cue string

	// Pack identifies which installed resource pack serves Cue.
	Pack string

	// NoticeSeconds overrides the event's default notice lead when > 0.
	NoticeSeconds int

	// Color is an optional hex display color, presentation only.
	Color string

	// Icon is an optional emoji shown alongside the action.
	Icon string
}

// Event is a complete, self-contained coordination script.
type Event struct {
	// ID is an opaque unique identifier.
	ID string

	// Title and Description are display strings.
	Title       string
	Description string

	// StartTime anchors the whole timeline; it is the canonical time zero,
	// not necessarily the first action's instant.
	StartTime time.Time

	// EndTime bounds the event; a session completes once virtual time
	// reaches it.
	EndTime time.Time

	// Timezone is an IANA zone name used only for human-readable
	// rendering. Engine math works entirely in absolute instants.
	Timezone string

	// Timeline is the ordered action sequence. ValidateAndComplete sorts
	// it by time, but consumers must tolerate disorder.
	Timeline []Action

	// DefaultNoticeSeconds is the notice lead for actions without their
	// own NoticeSeconds.
	DefaultNoticeSeconds int
}

// Duration returns the event's scheduled span.
func (e Event) Duration() time.Duration {
	return e.EndTime.Sub(e.StartTime)
}

// NoticeLeadFor returns the effective notice lead for a, preferring the
// action's own override.
func (e Event) NoticeLeadFor(a Action) time.Duration {
	secs := e.DefaultNoticeSeconds
	if a.NoticeSeconds > 0 {
		secs = a.NoticeSeconds
	}
	if secs <= 0 {
		secs = DefaultNoticeSeconds
	}
	return time.Duration(secs) * time.Second
}

// CountdownOffsetsFor returns the integer second marks that should beep
// before a, or nil when the action has no countdown.
func (e Event) CountdownOffsetsFor(a Action) []int {
	if !a.CountdownBeeps {
		return nil
	}
	if len(a.CountdownSeconds) > 0 {
		return a.CountdownSeconds
	}
	return DefaultCountdownOffsets
}

// ActionByID returns the timeline entry with the given id.
func (e Event) ActionByID(id string) (Action, bool) {
	for _, a := range e.Timeline {
		if a.ID == id {
			return a, true
		}
	}
	return Action{}, false
}
