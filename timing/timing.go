// Package timing is the pure clock-arithmetic core of Conductor. Everything
// here is a function of a timeline and a virtual "now", with no retained
// state, so every query is idempotent and safe to re-run each tick.
package timing

import (
	"sort"
	"time"

	"github.com/conductorapp/conductor/event"
)

// Status classifies an action relative to the virtual clock. It exists for
// rendering and window queries; firing effects is the session's job.
type Status int

const (
	// StatusPast means the action's trigger band is behind the clock.
	StatusPast Status = iota
	// StatusUpcoming means the action is further out than the imminent window.
	StatusUpcoming
	// StatusImminent means the action triggers within the imminent window.
	StatusImminent
	// StatusTriggering means the clock is inside the action's trigger band.
	StatusTriggering
)

// String returns the lowercase name of the status.
func (s Status) String() string {
	switch s {
	case StatusPast:
		return "past"
	case StatusUpcoming:
		return "upcoming"
	case StatusImminent:
		return "imminent"
	case StatusTriggering:
		return "triggering"
	default:
		return "unknown"
	}
}

// Thresholds are the tunable classification bands. The defaults mirror the
// app's observed behavior but nothing downstream depends on the exact values
// beyond their ordering.
type Thresholds struct {
	// TriggerBand is the half-width of the triggering window around an
	// action's instant.
	TriggerBand time.Duration

	// ImminentWindow is how far ahead an action counts as imminent.
	ImminentWindow time.Duration
}

// DefaultThresholds returns the standard classification bands.
func DefaultThresholds() Thresholds {
	return Thresholds{
		TriggerBand:    500 * time.Millisecond,
		ImminentWindow: 10 * time.Second,
	}
}

// StatusAt classifies an instant t against the virtual clock now.
func StatusAt(t, now time.Time, th Thresholds) Status {
	d := t.Sub(now)
	abs := d
	if abs < 0 {
		abs = -abs
	}
	if abs < th.TriggerBand {
		return StatusTriggering
	}
	if d < 0 {
		return StatusPast
	}
	if d < th.ImminentWindow {
		return StatusImminent
	}
	return StatusUpcoming
}

// StatusOf classifies a timeline action against the virtual clock.
func StatusOf(a event.Action, now time.Time, th Thresholds) Status {
	return StatusAt(a.Time, now, th)
}

// TimeUntil returns signed seconds until a triggers: positive before,
// negative after. Sub-second precision matters here: this value drives
// countdown scheduling and timeline animation.
func TimeUntil(a event.Action, now time.Time) float64 {
	return a.Time.Sub(now).Seconds()
}

// CurrentAction returns the action whose trigger band contains now. When
// bands overlap (rapid actions or a clock jump) the earliest-time action
// wins, with the id as a stable tie-break; the session still owes every
// overlapped action its one-shot effects as the loop advances.
func CurrentAction(timeline []event.Action, now time.Time, th Thresholds) (event.Action, bool) {
	var best event.Action
	found := false
	for _, a := range timeline {
		if StatusAt(a.Time, now, th) != StatusTriggering {
			continue
		}
		if !found || a.Time.Before(best.Time) || (a.Time.Equal(best.Time) && a.ID < best.ID) {
			best = a
			found = true
		}
	}
	return best, found
}

// UpcomingActions returns every action with 0 <= time-now <= window, sorted
// ascending by time. The input may be unsorted; it is never mutated.
func UpcomingActions(timeline []event.Action, now time.Time, window time.Duration) []event.Action {
	var out []event.Action
	for _, a := range timeline {
		d := a.Time.Sub(now)
		if d >= 0 && d <= window {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Time.Equal(out[j].Time) {
			return out[i].Time.Before(out[j].Time)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
