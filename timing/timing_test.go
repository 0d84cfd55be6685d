package timing

import (
	"testing"
	"time"

	"github.com/conductorapp/conductor/event"
)

var base = time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)

func action(id string, offset time.Duration) event.Action {
	return event.Action{ID: id, Time: base.Add(offset), Action: "do " + id}
}

// TestStatusAt tests classification across the threshold bands.
func TestStatusAt(t *testing.T) {
	th := DefaultThresholds()
	target := base

	tests := []struct {
		name string
		now  time.Time
		want Status
	}{
		{"far before", target.Add(-5 * time.Minute), StatusUpcoming},
		{"just outside imminent", target.Add(-10 * time.Second), StatusImminent},
		{"inside imminent", target.Add(-3 * time.Second), StatusImminent},
		{"just before band", target.Add(-501 * time.Millisecond), StatusImminent},
		{"band leading edge", target.Add(-499 * time.Millisecond), StatusTriggering},
		{"exact instant", target, StatusTriggering},
		{"band trailing edge", target.Add(499 * time.Millisecond), StatusTriggering},
		{"just past band", target.Add(501 * time.Millisecond), StatusPast},
		{"long past", target.Add(time.Hour), StatusPast},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusAt(target, tt.now, th); got != tt.want {
				t.Errorf("StatusAt() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestStatusString tests the status names.
func TestStatusString(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{StatusPast, "past"},
		{StatusUpcoming, "upcoming"},
		{StatusImminent, "imminent"},
		{StatusTriggering, "triggering"},
		{Status(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.status.String(); got != tt.want {
			t.Errorf("Status(%d).String() = %q, want %q", tt.status, got, tt.want)
		}
	}
}

// TestTimeUntil tests signed sub-second precision.
func TestTimeUntil(t *testing.T) {
	a := action("a", 0)

	tests := []struct {
		name string
		now  time.Time
		want float64
	}{
		{"ten seconds out", base.Add(-10 * time.Second), 10},
		{"quarter second out", base.Add(-250 * time.Millisecond), 0.25},
		{"exact", base, 0},
		{"past", base.Add(1500 * time.Millisecond), -1.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TimeUntil(a, tt.now); got != tt.want {
				t.Errorf("TimeUntil() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestCurrentAction tests the trigger-band lookup and its tie-break.
func TestCurrentAction(t *testing.T) {
	th := DefaultThresholds()

	t.Run("none triggering", func(t *testing.T) {
		timeline := []event.Action{action("a", 0), action("b", 30*time.Second)}
		if _, ok := CurrentAction(timeline, base.Add(10*time.Second), th); ok {
			t.Fatal("expected no current action between triggers")
		}
	})

	t.Run("single", func(t *testing.T) {
		timeline := []event.Action{action("a", 0), action("b", 30*time.Second)}
		got, ok := CurrentAction(timeline, base.Add(30*time.Second), th)
		if !ok || got.ID != "b" {
			t.Fatalf("CurrentAction() = %v, %v; want b", got.ID, ok)
		}
	})

	t.Run("overlapping bands pick earliest", func(t *testing.T) {
		// 300ms apart: both bands cover the midpoint.
		timeline := []event.Action{action("late", 300*time.Millisecond), action("early", 0)}
		got, ok := CurrentAction(timeline, base.Add(150*time.Millisecond), th)
		if !ok || got.ID != "early" {
			t.Fatalf("CurrentAction() = %v, %v; want early", got.ID, ok)
		}
	})

	t.Run("same instant breaks tie by id", func(t *testing.T) {
		timeline := []event.Action{action("b", 0), action("a", 0)}
		got, ok := CurrentAction(timeline, base, th)
		if !ok || got.ID != "a" {
			t.Fatalf("CurrentAction() = %v, %v; want a", got.ID, ok)
		}
	})
}

// TestUpcomingActions tests window filtering and ordering.
func TestUpcomingActions(t *testing.T) {
	// Deliberately unsorted input.
	timeline := []event.Action{
		action("c", 45*time.Second),
		action("a", 5*time.Second),
		action("d", 90*time.Second),
		action("b", 20*time.Second),
	}

	t.Run("window filter and sort", func(t *testing.T) {
		got := UpcomingActions(timeline, base, 60*time.Second)
		want := []string{"a", "b", "c"}
		if len(got) != len(want) {
			t.Fatalf("got %d actions, want %d", len(got), len(want))
		}
		for i, id := range want {
			if got[i].ID != id {
				t.Errorf("got[%d] = %s, want %s", i, got[i].ID, id)
			}
		}
	})

	t.Run("past actions excluded", func(t *testing.T) {
		got := UpcomingActions(timeline, base.Add(30*time.Second), 60*time.Second)
		if len(got) != 2 || got[0].ID != "c" || got[1].ID != "d" {
			t.Fatalf("got %v, want [c d]", ids(got))
		}
	})

	t.Run("input not mutated", func(t *testing.T) {
		UpcomingActions(timeline, base, 60*time.Second)
		if timeline[0].ID != "c" || timeline[1].ID != "a" {
			t.Fatal("UpcomingActions reordered its input")
		}
	})

	t.Run("idempotent re-query", func(t *testing.T) {
		first := UpcomingActions(timeline, base, 60*time.Second)
		second := UpcomingActions(timeline, base, 60*time.Second)
		if len(first) != len(second) {
			t.Fatalf("re-query differs: %v vs %v", ids(first), ids(second))
		}
		for i := range first {
			if first[i].ID != second[i].ID {
				t.Fatalf("re-query differs at %d: %v vs %v", i, first[i].ID, second[i].ID)
			}
		}
	})
}

// TestDemoEventWindow is the demo scenario: five actions over ninety
// seconds, all upcoming at the start, none after the end.
func TestDemoEventWindow(t *testing.T) {
	var timeline []event.Action
	for i := 0; i < 5; i++ {
		timeline = append(timeline, action(string(rune('a'+i)), time.Duration(i)*22500*time.Millisecond))
	}
	endTime := base.Add(90 * time.Second)

	if got := UpcomingActions(timeline, base, 90*time.Second); len(got) != 5 {
		t.Errorf("at start: %d upcoming, want 5", len(got))
	}
	if got := UpcomingActions(timeline, endTime.Add(time.Second), 90*time.Second); len(got) != 0 {
		t.Errorf("past end: %d upcoming, want 0", len(got))
	}
}

func ids(actions []event.Action) []string {
	out := make([]string, len(actions))
	for i, a := range actions {
		out[i] = a.ID
	}
	return out
}
