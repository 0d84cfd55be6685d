package session

import (
	"errors"
	"fmt"
	"io"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/conductorapp/conductor/audio"
	"github.com/conductorapp/conductor/cue"
	"github.com/conductorapp/conductor/event"
)

var runStart = time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)

// runEvent is the shared test timeline: a plain action, one with countdown
// beeps, and a final one, with the end time derived from the last action.
func runEvent(t *testing.T) event.Event {
	t.Helper()
	ev, err := event.ValidateAndComplete(event.Event{
		ID:        "run-1",
		Title:     "Courtyard Routine",
		StartTime: runStart,
		Timeline: []event.Action{
			{ID: "hands-up", Time: runStart.Add(15 * time.Second), Action: "Hands up",
				HapticPattern: event.HapticDouble, AudioAnnounce: true, AnnounceActionName: true},
			{ID: "wave", Time: runStart.Add(40 * time.Second), Action: "Wave",
				CountdownBeeps: true, AudioAnnounce: true, AnnounceActionName: true},
			{ID: "freeze", Time: runStart.Add(70 * time.Second), Action: "Freeze",
				AudioAnnounce: true, AnnounceActionName: true},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	return ev
}

// recorder captures every effect call as a compact string so tests can
// assert on exact firing order.
type recorder struct {
	mu       sync.Mutex
	calls    []string
	degraded []audio.FallbackMode
}

func (r *recorder) PlayCue(a event.Action, c cue.Category, _ cue.Resolution) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var cat string
	switch c.Kind {
	case cue.KindNotice:
		cat = "notice"
	case cue.KindCountdown:
		cat = fmt.Sprintf("countdown-%d", c.Count)
	case cue.KindTrigger:
		cat = "trigger"
	}
	r.calls = append(r.calls, "cue:"+a.ID+":"+cat)
}

func (r *recorder) PlayBeep(a event.Action, kind audio.BeepKind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, "beep:"+a.ID+":"+kind.String())
}

func (r *recorder) Haptic(a event.Action, pattern event.HapticPattern) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, "haptic:"+a.ID+":"+string(pattern))
}

func (r *recorder) AudioDegraded(mode audio.FallbackMode) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.degraded = append(r.degraded, mode)
}

func (r *recorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.calls))
	copy(out, r.calls)
	return out
}

type alarmCall struct {
	eventID, actionID string
	at                time.Time
}

// fakeAlarms records scheduling and can be told to refuse it.
type fakeAlarms struct {
	mu          sync.Mutex
	scheduled   []alarmCall
	canceled    []string
	scheduleErr error
}

func (f *fakeAlarms) Schedule(eventID, actionID string, at time.Time, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.scheduleErr != nil {
		return f.scheduleErr
	}
	f.scheduled = append(f.scheduled, alarmCall{eventID, actionID, at})
	return nil
}

func (f *fakeAlarms) CancelAll(eventID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.canceled = append(f.canceled, eventID)
	return nil
}

func (f *fakeAlarms) scheduledIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, 0, len(f.scheduled))
	for _, c := range f.scheduled {
		ids = append(ids, c.actionID)
	}
	return ids
}

func (f *fakeAlarms) cancelCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.canceled)
}

type fixture struct {
	clock  *FakeClock
	rec    *recorder
	alarms *fakeAlarms
	sess   *Session
}

func quietOpts() Options {
	opts := DefaultOptions()
	opts.Manual = true
	opts.Logger = log.New(io.Discard)
	return opts
}

func newFixture(t *testing.T, clockAt time.Time, mutate func(*Options, *Deps)) *fixture {
	t.Helper()
	f := &fixture{
		clock:  NewFakeClock(clockAt),
		rec:    &recorder{},
		alarms: &fakeAlarms{},
	}
	opts := quietOpts()
	deps := Deps{
		Clock:   f.clock,
		Effects: f.rec,
		Alarms:  f.alarms,
		Player:  audio.NewMockPlayer(),
		Speaker: audio.NewMockSpeaker(),
	}
	if mutate != nil {
		mutate(&opts, &deps)
	}
	f.sess = New(runEvent(t), deps, opts)
	return f
}

// step advances the fake clock in fixed increments, ticking after each.
func (f *fixture) step(total, step time.Duration) {
	for d := time.Duration(0); d < total; d += step {
		f.clock.Advance(step)
		f.sess.Tick()
	}
}

func TestPracticeRunFiresTimelineInOrder(t *testing.T) {
	f := newFixture(t, time.Date(2026, 2, 27, 9, 0, 0, 0, time.UTC), nil)
	if err := f.sess.StartPractice(); err != nil {
		t.Fatal(err)
	}
	f.step(101*time.Second, 500*time.Millisecond)

	want := []string{
		"cue:hands-up:notice",
		"haptic:hands-up:double",
		"cue:hands-up:trigger",
		"cue:wave:notice",
		"cue:wave:countdown-5",
		"cue:wave:countdown-4",
		"cue:wave:countdown-3",
		"cue:wave:countdown-2",
		"cue:wave:countdown-1",
		"haptic:wave:single",
		"cue:wave:trigger",
		"cue:freeze:notice",
		"haptic:freeze:single",
		"cue:freeze:trigger",
	}
	if got := f.rec.Calls(); !reflect.DeepEqual(got, want) {
		t.Errorf("effect sequence:\n got %v\nwant %v", got, want)
	}

	snap := f.sess.Snapshot()
	if snap.Mode != ModeCompleted {
		t.Errorf("mode = %v, want %v", snap.Mode, ModeCompleted)
	}
	if snap.FiredCount != 3 {
		t.Errorf("FiredCount = %d, want 3", snap.FiredCount)
	}
	if len(f.rec.degraded) != 0 {
		t.Errorf("unexpected degradation: %v", f.rec.degraded)
	}
}

// TestFrameDropCatchUp jumps the clock far past several actions in one tick.
// Every crossed trigger still fires exactly once, oldest first; notices and
// countdowns whose windows were skipped entirely stay silent.
func TestFrameDropCatchUp(t *testing.T) {
	f := newFixture(t, runStart, nil)
	if err := f.sess.StartPractice(); err != nil {
		t.Fatal(err)
	}

	f.clock.Advance(80 * time.Second)
	f.sess.Tick()

	want := []string{
		"haptic:hands-up:double",
		"cue:hands-up:trigger",
		"haptic:wave:single",
		"cue:wave:trigger",
		"haptic:freeze:single",
		"cue:freeze:trigger",
	}
	got := f.rec.Calls()
	if !reflect.DeepEqual(got, want) {
		t.Errorf("catch-up sequence:\n got %v\nwant %v", got, want)
	}

	// Nothing new on subsequent ticks.
	f.step(5*time.Second, time.Second)
	if again := f.rec.Calls(); !reflect.DeepEqual(again, want) {
		t.Errorf("effects repeated after catch-up: %v", again)
	}
	if snap := f.sess.Snapshot(); snap.FiredCount != 3 {
		t.Errorf("FiredCount = %d, want 3", snap.FiredCount)
	}
}

// TestPartialCountdownCatchUp crosses into the middle of a countdown window:
// already-passed second marks fire in chronological order on the same tick,
// and marks wholly missed at the trigger itself never fire late.
func TestPartialCountdownCatchUp(t *testing.T) {
	f := newFixture(t, runStart, nil)
	if err := f.sess.StartPractice(); err != nil {
		t.Fatal(err)
	}

	f.clock.Advance(37 * time.Second)
	f.sess.Tick()
	want := []string{
		"haptic:hands-up:double",
		"cue:hands-up:trigger",
		"cue:wave:notice",
		"cue:wave:countdown-5",
		"cue:wave:countdown-4",
		"cue:wave:countdown-3",
	}
	if got := f.rec.Calls(); !reflect.DeepEqual(got, want) {
		t.Errorf("mid-countdown entry:\n got %v\nwant %v", got, want)
	}

	f.clock.Advance(3 * time.Second)
	f.sess.Tick()
	want = append(want, "haptic:wave:single", "cue:wave:trigger")
	if got := f.rec.Calls(); !reflect.DeepEqual(got, want) {
		t.Errorf("trigger after partial countdown:\n got %v\nwant %v", got, want)
	}
}

func TestPracticeSpeed(t *testing.T) {
	f := newFixture(t, time.Date(2026, 2, 27, 9, 0, 0, 0, time.UTC), nil)
	if err := f.sess.StartPractice(); err != nil {
		t.Fatal(err)
	}
	if err := f.sess.SetSpeed(2.0); err != nil {
		t.Fatal(err)
	}

	f.clock.Advance(30 * time.Second)
	f.sess.Tick()

	snap := f.sess.Snapshot()
	if want := runStart.Add(60 * time.Second); !snap.VirtualNow.Equal(want) {
		t.Errorf("VirtualNow = %v, want %v (30 real seconds at 2x)", snap.VirtualNow, want)
	}
	if snap.Speed != 2.0 {
		t.Errorf("Speed = %v, want 2.0", snap.Speed)
	}
}

func TestSetSpeedClampsAndSettles(t *testing.T) {
	f := newFixture(t, time.Date(2026, 2, 27, 9, 0, 0, 0, time.UTC), nil)
	if err := f.sess.StartPractice(); err != nil {
		t.Fatal(err)
	}

	if err := f.sess.SetSpeed(12); err != nil {
		t.Fatal(err)
	}
	if snap := f.sess.Snapshot(); snap.Speed != 5.0 {
		t.Errorf("Speed = %v, want clamp to 5.0", snap.Speed)
	}
	if err := f.sess.SetSpeed(0.25); err != nil {
		t.Fatal(err)
	}
	if snap := f.sess.Snapshot(); snap.Speed != 1.0 {
		t.Errorf("Speed = %v, want clamp to 1.0", snap.Speed)
	}

	// Virtual time accrued before a speed change is settled at the old
	// rate: 2 real seconds at 5x, then 2 more at 1x.
	if err := f.sess.SetSpeed(5); err != nil {
		t.Fatal(err)
	}
	f.clock.Advance(2 * time.Second)
	if err := f.sess.SetSpeed(1); err != nil {
		t.Fatal(err)
	}
	f.clock.Advance(2 * time.Second)
	f.sess.Tick()
	if want, snap := runStart.Add(12*time.Second), f.sess.Snapshot(); !snap.VirtualNow.Equal(want) {
		t.Errorf("VirtualNow = %v, want %v", snap.VirtualNow, want)
	}
}

// TestPauseResume backgrounds a practice run for an hour: virtual time and
// the firing record must come back untouched, and effects resume cleanly.
func TestPauseResume(t *testing.T) {
	f := newFixture(t, time.Date(2026, 2, 27, 9, 0, 0, 0, time.UTC), nil)
	if err := f.sess.StartPractice(); err != nil {
		t.Fatal(err)
	}
	f.clock.Advance(5 * time.Second)
	f.sess.Tick()
	baseline := f.rec.Calls()

	if err := f.sess.Pause(); err != nil {
		t.Fatal(err)
	}
	f.clock.Advance(time.Hour)
	f.sess.Tick()

	snap := f.sess.Snapshot()
	if !snap.Paused {
		t.Error("snapshot should report paused")
	}
	if want := runStart.Add(5 * time.Second); !snap.VirtualNow.Equal(want) {
		t.Errorf("VirtualNow drifted while paused: %v, want %v", snap.VirtualNow, want)
	}
	if got := f.rec.Calls(); !reflect.DeepEqual(got, baseline) {
		t.Errorf("effects fired while paused: %v", got)
	}

	if err := f.sess.Resume(); err != nil {
		t.Fatal(err)
	}
	f.clock.Advance(10 * time.Second)
	f.sess.Tick()

	snap = f.sess.Snapshot()
	if want := runStart.Add(15 * time.Second); !snap.VirtualNow.Equal(want) {
		t.Errorf("VirtualNow after resume = %v, want %v", snap.VirtualNow, want)
	}
	if snap.FiredCount != 1 {
		t.Errorf("FiredCount = %d, want hands-up fired once", snap.FiredCount)
	}
}

func TestPracticeOnlyGuards(t *testing.T) {
	f := newFixture(t, runStart, nil)

	if err := f.sess.Pause(); !errors.Is(err, ErrPracticeOnly) {
		t.Errorf("Pause in preview = %v, want ErrPracticeOnly", err)
	}
	if err := f.sess.SetSpeed(2); !errors.Is(err, ErrPracticeOnly) {
		t.Errorf("SetSpeed in preview = %v, want ErrPracticeOnly", err)
	}

	if err := f.sess.StartPractice(); err != nil {
		t.Fatal(err)
	}
	if err := f.sess.StartPractice(); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second StartPractice = %v, want ErrAlreadyRunning", err)
	}
}

func TestGoLiveArmsFutureAlarms(t *testing.T) {
	f := newFixture(t, runStart.Add(-30*time.Second), nil)
	if err := f.sess.GoLive(); err != nil {
		t.Fatal(err)
	}
	if mode := f.sess.Mode(); mode != ModeLive {
		t.Fatalf("mode = %v, want %v", mode, ModeLive)
	}

	want := []string{"hands-up", "wave", "freeze"}
	if got := f.alarms.scheduledIDs(); !reflect.DeepEqual(got, want) {
		t.Errorf("armed alarms = %v, want %v", got, want)
	}

	// Completion cancels the outstanding alarms.
	f.clock.Set(runStart.Add(101 * time.Second))
	f.sess.Tick()
	if mode := f.sess.Mode(); mode != ModeCompleted {
		t.Errorf("mode = %v, want %v", mode, ModeCompleted)
	}
	if f.alarms.cancelCount() == 0 {
		t.Error("completion should cancel alarms")
	}
}

func TestGoLiveSchedulingDenied(t *testing.T) {
	f := newFixture(t, runStart.Add(-30*time.Second), nil)
	f.alarms.scheduleErr = errors.New("permission denied by platform")

	err := f.sess.GoLive()
	if !errors.Is(err, ErrSchedulingDenied) {
		t.Fatalf("GoLive = %v, want ErrSchedulingDenied", err)
	}
	if mode := f.sess.Mode(); mode != ModePreview {
		t.Errorf("mode = %v, want to stay in %v", mode, ModePreview)
	}
	if f.alarms.cancelCount() == 0 {
		t.Error("failed arming should clean up partial alarms")
	}
}

func TestGoLiveForegroundOnly(t *testing.T) {
	f := newFixture(t, runStart.Add(-30*time.Second), func(o *Options, _ *Deps) {
		o.ForegroundOnly = true
	})
	f.alarms.scheduleErr = errors.New("permission denied by platform")

	if err := f.sess.GoLive(); err != nil {
		t.Fatalf("foreground-only GoLive = %v", err)
	}
	if mode := f.sess.Mode(); mode != ModeLive {
		t.Errorf("mode = %v, want %v", mode, ModeLive)
	}
}

func TestGoLiveWithoutScheduler(t *testing.T) {
	f := newFixture(t, runStart.Add(-30*time.Second), func(_ *Options, d *Deps) {
		d.Alarms = nil
	})
	if err := f.sess.GoLive(); !errors.Is(err, ErrSchedulingDenied) {
		t.Errorf("GoLive without scheduler = %v, want ErrSchedulingDenied", err)
	}
}

// TestLiveMidEventEntry joins an event already in progress: history must not
// replay, and only the remaining actions are armed and fired.
func TestLiveMidEventEntry(t *testing.T) {
	f := newFixture(t, runStart.Add(50*time.Second), nil)
	if err := f.sess.GoLive(); err != nil {
		t.Fatal(err)
	}

	if got := f.alarms.scheduledIDs(); !reflect.DeepEqual(got, []string{"freeze"}) {
		t.Errorf("armed alarms = %v, want only the future action", got)
	}
	if snap := f.sess.Snapshot(); snap.FiredCount != 2 {
		t.Errorf("FiredCount = %d, want 2 seeded past actions", snap.FiredCount)
	}

	f.sess.Tick()
	if got := f.rec.Calls(); len(got) != 0 {
		t.Fatalf("past actions replayed: %v", got)
	}

	f.clock.Set(runStart.Add(70 * time.Second))
	f.sess.Tick()
	want := []string{"haptic:freeze:single", "cue:freeze:trigger"}
	if got := f.rec.Calls(); !reflect.DeepEqual(got, want) {
		t.Errorf("future action firing:\n got %v\nwant %v", got, want)
	}
}

func TestHandleAlarmFired(t *testing.T) {
	f := newFixture(t, runStart.Add(-10*time.Second), nil)
	if err := f.sess.GoLive(); err != nil {
		t.Fatal(err)
	}

	if !f.sess.HandleAlarmFired("run-1", "hands-up") {
		t.Fatal("first alarm delivery should fire")
	}
	want := []string{"haptic:hands-up:double", "cue:hands-up:trigger"}
	if got := f.rec.Calls(); !reflect.DeepEqual(got, want) {
		t.Fatalf("alarm firing:\n got %v\nwant %v", got, want)
	}

	// At-least-once delivery: the duplicate reconciles to a no-op.
	if f.sess.HandleAlarmFired("run-1", "hands-up") {
		t.Error("duplicate alarm delivery should not re-fire")
	}
	// Nor does the tick loop crossing the same instant later.
	f.clock.Set(runStart.Add(16 * time.Second))
	f.sess.Tick()
	if got := f.rec.Calls(); !reflect.DeepEqual(got, want) {
		t.Errorf("tick re-fired an alarm-fired action: %v", got)
	}

	if f.sess.HandleAlarmFired("other-event", "hands-up") {
		t.Error("alarm for another event should be ignored")
	}
	if f.sess.HandleAlarmFired("run-1", "no-such-action") {
		t.Error("alarm for an unknown action should be ignored")
	}
}

func TestStopReturnsToPreview(t *testing.T) {
	f := newFixture(t, runStart, nil)
	if err := f.sess.StartPractice(); err != nil {
		t.Fatal(err)
	}
	f.clock.Advance(20 * time.Second)
	f.sess.Tick()

	if err := f.sess.Stop(); err != nil {
		t.Fatal(err)
	}
	snap := f.sess.Snapshot()
	if snap.Mode != ModePreview {
		t.Errorf("mode = %v, want %v", snap.Mode, ModePreview)
	}
	if snap.FiredCount != 0 || snap.CurrentActionID != "" || len(snap.Upcoming) != 0 {
		t.Errorf("run state survived Stop: %+v", snap)
	}
	if f.alarms.cancelCount() == 0 {
		t.Error("Stop should cancel alarms")
	}
	if f.sess.HandleAlarmFired("run-1", "freeze") {
		t.Error("alarms delivered after Stop must not fire")
	}

	// The session is reusable from preview.
	if err := f.sess.StartPractice(); err != nil {
		t.Errorf("restart after Stop = %v", err)
	}
}

func TestCompletedIsTerminal(t *testing.T) {
	f := newFixture(t, runStart, nil)
	if err := f.sess.StartPractice(); err != nil {
		t.Fatal(err)
	}
	f.clock.Advance(101 * time.Second)
	f.sess.Tick()
	if mode := f.sess.Mode(); mode != ModeCompleted {
		t.Fatalf("mode = %v, want %v", mode, ModeCompleted)
	}

	if err := f.sess.StartPractice(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("StartPractice after completion = %v, want ErrInvalidTransition", err)
	}
	if err := f.sess.GoLive(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("GoLive after completion = %v, want ErrInvalidTransition", err)
	}
}

func TestSnapshotQueries(t *testing.T) {
	f := newFixture(t, runStart, nil)
	if err := f.sess.StartPractice(); err != nil {
		t.Fatal(err)
	}
	f.sess.Tick()

	snap := f.sess.Snapshot()
	if snap.CurrentActionID != "" {
		t.Errorf("CurrentActionID = %q at start, want none", snap.CurrentActionID)
	}
	ids := make([]string, 0, len(snap.Upcoming))
	for _, a := range snap.Upcoming {
		ids = append(ids, a.ID)
	}
	if want := []string{"hands-up", "wave"}; !reflect.DeepEqual(ids, want) {
		t.Errorf("Upcoming = %v, want %v inside the 60s window", ids, want)
	}

	f.clock.Advance(15 * time.Second)
	f.sess.Tick()
	if snap := f.sess.Snapshot(); snap.CurrentActionID != "hands-up" {
		t.Errorf("CurrentActionID = %q, want hands-up inside the trigger band", snap.CurrentActionID)
	}
}

func TestVisualOnlyDegradation(t *testing.T) {
	f := newFixture(t, runStart, func(_ *Options, d *Deps) {
		d.Player = nil
		d.Speaker = nil
	})
	if err := f.sess.StartPractice(); err != nil {
		t.Fatal(err)
	}
	if want := []audio.FallbackMode{audio.VisualOnly}; !reflect.DeepEqual(f.rec.degraded, want) {
		t.Fatalf("degraded = %v, want %v", f.rec.degraded, want)
	}

	f.clock.Advance(15 * time.Second)
	f.sess.Tick()
	want := []string{"haptic:hands-up:double"}
	if got := f.rec.Calls(); !reflect.DeepEqual(got, want) {
		t.Errorf("visual-only effects:\n got %v\nwant %v (haptics only)", got, want)
	}
}

func TestBeepCodesDegradation(t *testing.T) {
	f := newFixture(t, runStart, func(_ *Options, d *Deps) {
		sp := audio.NewMockSpeaker()
		sp.AvailableVal = false
		d.Speaker = sp
	})
	if err := f.sess.StartPractice(); err != nil {
		t.Fatal(err)
	}
	if want := []audio.FallbackMode{audio.BeepCodes}; !reflect.DeepEqual(f.rec.degraded, want) {
		t.Fatalf("degraded = %v, want %v", f.rec.degraded, want)
	}

	f.clock.Advance(5 * time.Second)
	f.sess.Tick()
	f.clock.Advance(10 * time.Second)
	f.sess.Tick()
	want := []string{
		"beep:hands-up:notice",
		"haptic:hands-up:double",
		"beep:hands-up:trigger",
	}
	if got := f.rec.Calls(); !reflect.DeepEqual(got, want) {
		t.Errorf("beep-code effects:\n got %v\nwant %v", got, want)
	}
}

func TestPracticeToLiveHandsOver(t *testing.T) {
	f := newFixture(t, runStart.Add(-30*time.Second), nil)
	if err := f.sess.StartPractice(); err != nil {
		t.Fatal(err)
	}
	f.clock.Advance(20 * time.Second)
	f.sess.Tick()

	if err := f.sess.GoLive(); err != nil {
		t.Fatal(err)
	}
	if mode := f.sess.Mode(); mode != ModeLive {
		t.Fatalf("mode = %v, want %v", mode, ModeLive)
	}

	// The live run starts from the wall clock, not the practice clock.
	f.sess.Tick()
	snap := f.sess.Snapshot()
	if want := runStart.Add(-10 * time.Second); !snap.VirtualNow.Equal(want) {
		t.Errorf("VirtualNow = %v, want wall clock %v", snap.VirtualNow, want)
	}
	if snap.FiredCount != 0 {
		t.Errorf("practice firing record leaked into live: %d", snap.FiredCount)
	}
}

// TestGoLiveDeniedDuringPractice refuses the live handover mid-practice:
// the practice run must keep going exactly as before, and the session must
// still stop and restart cleanly afterwards.
func TestGoLiveDeniedDuringPractice(t *testing.T) {
	f := newFixture(t, runStart.Add(-30*time.Second), func(o *Options, _ *Deps) {
		o.Manual = false
		o.TickInterval = 2 * time.Millisecond
	})
	if err := f.sess.StartPractice(); err != nil {
		t.Fatal(err)
	}

	f.alarms.scheduleErr = errors.New("permission denied by platform")
	if err := f.sess.GoLive(); !errors.Is(err, ErrSchedulingDenied) {
		t.Fatalf("GoLive = %v, want ErrSchedulingDenied", err)
	}
	if mode := f.sess.Mode(); mode != ModePractice {
		t.Fatalf("mode after denied handover = %v, want %v", mode, ModePractice)
	}

	// The practice loop is still running: moving the clock past the first
	// action's time makes it fire.
	f.clock.Advance(16 * time.Second)
	deadline := time.Now().Add(2 * time.Second)
	for f.sess.Snapshot().FiredCount == 0 {
		if time.Now().After(deadline) {
			t.Fatal("practice loop dead after denied handover")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := f.sess.Stop(); err != nil {
		t.Fatalf("Stop after denied handover = %v", err)
	}
	if mode := f.sess.Mode(); mode != ModePreview {
		t.Errorf("mode after stop = %v, want %v", mode, ModePreview)
	}
	if err := f.sess.StartPractice(); err != nil {
		t.Errorf("restart after denied handover = %v", err)
	}
	if err := f.sess.Stop(); err != nil {
		t.Errorf("final stop = %v", err)
	}
}

// TestActionOutsideEventWindow gives the timeline a trailing action past the
// explicit end time. It must never fire, never show up as current or
// upcoming, and the completed snapshot must not point at it.
func TestActionOutsideEventWindow(t *testing.T) {
	ev, err := event.ValidateAndComplete(event.Event{
		ID:        "windowed-1",
		Title:     "Short Show",
		StartTime: runStart,
		EndTime:   runStart.Add(60 * time.Second),
		Timeline: []event.Action{
			{ID: "wave", Time: runStart.Add(30 * time.Second), Action: "Wave",
				HapticPattern: event.HapticSingle},
			{ID: "stray", Time: runStart.Add(90 * time.Second), Action: "Stray",
				HapticPattern: event.HapticSingle},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	clock := NewFakeClock(runStart)
	rec := &recorder{}
	sess := New(ev, Deps{
		Clock:   clock,
		Effects: rec,
		Player:  audio.NewMockPlayer(),
		Speaker: audio.NewMockSpeaker(),
	}, quietOpts())

	if err := sess.StartPractice(); err != nil {
		t.Fatal(err)
	}

	clock.Advance(35 * time.Second)
	sess.Tick()
	snap := sess.Snapshot()
	for _, a := range snap.Upcoming {
		if a.ID == "stray" {
			t.Error("out-of-window action listed as upcoming")
		}
	}

	clock.Advance(56 * time.Second) // virtual +91s, past both end and stray
	sess.Tick()
	snap = sess.Snapshot()
	if snap.Mode != ModeCompleted {
		t.Fatalf("mode = %v, want %v", snap.Mode, ModeCompleted)
	}
	if snap.CurrentActionID != "" {
		t.Errorf("completed CurrentActionID = %q, want empty", snap.CurrentActionID)
	}
	if len(snap.Upcoming) != 0 {
		t.Errorf("completed Upcoming = %v, want empty", snap.Upcoming)
	}
	if snap.FiredCount != 1 {
		t.Errorf("FiredCount = %d, want only the in-window action", snap.FiredCount)
	}
	want := []string{"haptic:wave:single"}
	if got := rec.Calls(); !reflect.DeepEqual(got, want) {
		t.Errorf("effects:\n got %v\nwant %v", got, want)
	}
}
