package event

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ValidationError reports a semantically invalid event with field-level
// detail so an editor can point at the offending input.
type ValidationError struct {
	Field string // dotted path, e.g. "timeline[2].time"
	Msg   string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Msg: fmt.Sprintf(format, args...)}
}

// ValidateAndComplete is the single entry point for turning untrusted input
// (decoded token, pasted JSON, parsed schedule) into a well-formed Event.
// It rejects events with no actions or no start time, fills every optional
// field with its documented default, sorts the timeline by time, and derives
// EndTime from the last action when the source omits it.
func ValidateAndComplete(raw Event) (Event, error) {
	ev := raw

	// The title is display-only; a missing one never blocks an otherwise
	// valid event from loading.
	ev.Title = strings.TrimSpace(ev.Title)
	if ev.Title == "" {
		ev.Title = DefaultTitle
	}
	if ev.StartTime.IsZero() {
		return Event{}, invalid("startTime", "event needs a start time")
	}
	if len(ev.Timeline) == 0 {
		return Event{}, invalid("timeline", "event needs at least one action")
	}

	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.DefaultNoticeSeconds <= 0 {
		ev.DefaultNoticeSeconds = DefaultNoticeSeconds
	}

	timeline := make([]Action, len(ev.Timeline))
	copy(timeline, ev.Timeline)

	seen := make(map[string]struct{}, len(timeline))
	for i := range timeline {
		a := &timeline[i]
		field := fmt.Sprintf("timeline[%d]", i)

		if a.Time.IsZero() {
			return Event{}, invalid(field+".time", "action needs a trigger time")
		}
		if strings.TrimSpace(a.Action) == "" {
			return Event{}, invalid(field+".action", "action needs instruction text")
		}
		if a.ID == "" {
			a.ID = fmt.Sprintf("action-%d", i+1)
		}
		if _, dup := seen[a.ID]; dup {
			return Event{}, invalid(field+".id", "duplicate action id %q", a.ID)
		}
		seen[a.ID] = struct{}{}

		if a.Style == "" {
			a.Style = StyleNormal
		}
		if !validStyle(a.Style) {
			return Event{}, invalid(field+".style", "unknown style %q", a.Style)
		}
		if a.HapticPattern == "" {
			a.HapticPattern = HapticSingle
		}
		if !validHaptic(a.HapticPattern) {
			return Event{}, invalid(field+".hapticPattern", "unknown haptic pattern %q", a.HapticPattern)
		}
		if a.NoticeSeconds < 0 {
			a.NoticeSeconds = 0
		}
		for _, n := range a.CountdownSeconds {
			if n <= 0 {
				return Event{}, invalid(field+".countdownSeconds", "countdown offsets must be positive, got %d", n)
			}
		}
	}

	// Equal-time actions keep their authored order.
	sort.SliceStable(timeline, func(i, j int) bool {
		return timeline[i].Time.Before(timeline[j].Time)
	})
	ev.Timeline = timeline

	if ev.EndTime.IsZero() {
		last := timeline[len(timeline)-1].Time
		ev.EndTime = last.Add(EndTimeBuffer)
	}
	if ev.EndTime.Before(ev.StartTime) {
		return Event{}, invalid("endTime", "end time %s is before start time %s",
			ev.EndTime.Format(time.RFC3339), ev.StartTime.Format(time.RFC3339))
	}
	if ev.Timezone != "" {
		if _, err := time.LoadLocation(ev.Timezone); err != nil {
			return Event{}, invalid("timezone", "unknown timezone %q", ev.Timezone)
		}
	}

	return ev, nil
}

func validStyle(s Style) bool {
	switch s {
	case StyleNormal, StyleEmphasis, StyleAlert:
		return true
	}
	return false
}

func validHaptic(h HapticPattern) bool {
	switch h {
	case HapticSingle, HapticDouble, HapticTriple, HapticNone, HapticCustom:
		return true
	}
	return false
}
