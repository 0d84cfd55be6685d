package session

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// TimerAlarms is an in-process AlarmScheduler backed by time.Timer. It only
// fires while the process lives, so it is the foreground-only stand-in for
// a platform alarm service and the alarm collaborator used by tests and
// the headless simulator. Delivery is at-least-once from the session's
// perspective; the session's reconciliation makes it effectively once.
type TimerAlarms struct {
	onFire func(eventID, actionID, payload string)
	logger *log.Logger

	mu     sync.Mutex
	timers map[string][]*time.Timer // event id -> armed timers
}

// NewTimerAlarms builds a timer-backed scheduler delivering fired alarms to
// onFire from timer goroutines.
func NewTimerAlarms(onFire func(eventID, actionID, payload string), logger *log.Logger) *TimerAlarms {
	if logger == nil {
		logger = log.Default()
	}
	return &TimerAlarms{
		onFire: onFire,
		logger: logger.With("component", "alarms"),
		timers: make(map[string][]*time.Timer),
	}
}

// Schedule implements AlarmScheduler.
func (t *TimerAlarms) Schedule(eventID, actionID string, at time.Time, payload string) error {
	delay := time.Until(at)
	if delay < 0 {
		delay = 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	timer := time.AfterFunc(delay, func() {
		t.logger.Debug("alarm fired", "event", eventID, "action", actionID)
		if t.onFire != nil {
			t.onFire(eventID, actionID, payload)
		}
	})
	t.timers[eventID] = append(t.timers[eventID], timer)
	return nil
}

// CancelAll implements AlarmScheduler.
func (t *TimerAlarms) CancelAll(eventID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, timer := range t.timers[eventID] {
		timer.Stop()
	}
	delete(t.timers, eventID)
	return nil
}
