// Package session owns a single event's run: the virtual clock, the tick
// loop, and the at-most-once dispatch of haptic and audio effects. One
// session instance per active event, with every collaborator injected so
// independent sessions (and tests) cannot contaminate each other.
package session

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/conductorapp/conductor/audio"
	"github.com/conductorapp/conductor/cue"
	"github.com/conductorapp/conductor/event"
	"github.com/conductorapp/conductor/timing"
)

// Options are the session tunables.
type Options struct {
	// TickInterval is the loop cadence. The default 16ms matches smooth
	// animation; coordination itself only needs the ~500ms trigger band.
	TickInterval time.Duration

	// UpcomingWindow is how far ahead the published snapshot looks.
	UpcomingWindow time.Duration

	// Thresholds are the timing classification bands.
	Thresholds timing.Thresholds

	// ForegroundOnly permits live mode without armed alarms, for devices
	// that deny the scheduling permission.
	ForegroundOnly bool

	// Manual disables the internal ticker; the caller drives Tick itself.
	// Used by tests and the headless simulator.
	Manual bool

	// Logger receives session telemetry. Defaults to log.Default.
	Logger *log.Logger
}

// DefaultOptions returns the standard session tuning.
func DefaultOptions() Options {
	return Options{
		TickInterval:   16 * time.Millisecond,
		UpcomingWindow: 60 * time.Second,
		Thresholds:     timing.DefaultThresholds(),
	}
}

// Deps are the session's injected collaborators. Clock and Effects get
// working defaults; the rest may be nil, degrading the related capability.
type Deps struct {
	Clock   Clock
	Effects Effects
	Alarms  AlarmScheduler
	Library cue.Library
	Player  audio.Player
	Speaker audio.Speaker
}

// effect categories, in same-instant firing order.
const (
	effNotice = iota
	effCountdown
	effTrigger
)

// pendingEffect is one side effect due this tick, keyed by its nominal
// instant so same-tick catch-up still fires in chronological order.
type pendingEffect struct {
	at     time.Time
	kind   int
	count  int // countdown seconds remaining
	action event.Action
}

// Session coordinates one event run.
type Session struct {
	event event.Event
	// windowed is the timeline restricted to [StartTime, EndTime]. Every
	// dispatch and published query works off it; an action outside the
	// event window is never fired and never surfaced.
	windowed []event.Action
	deps     Deps
	opts     Options
	logger   *log.Logger

	mu       sync.Mutex
	machine  *modeMachine
	running  bool
	stopping bool
	paused   bool

	speed      float64
	elapsed    time.Duration // practice virtual time since StartTime
	virtualNow time.Time
	lastTick   time.Time

	fired   map[string]struct{} // action ids whose trigger effects ran
	noticed map[string]struct{} // action ids whose notice ran
	counted map[string]struct{} // "id/n" countdown marks that ran

	audioMode audio.FallbackMode
	currentID string
	upcoming  []event.Action

	stopCh   chan struct{}
	loopDone chan struct{}
}

// New builds a session for a validated event. The event must have passed
// event.ValidateAndComplete.
func New(ev event.Event, deps Deps, opts Options) *Session {
	if deps.Clock == nil {
		deps.Clock = SystemClock{}
	}
	if deps.Effects == nil {
		deps.Effects = NopEffects{}
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = 16 * time.Millisecond
	}
	if opts.UpcomingWindow <= 0 {
		opts.UpcomingWindow = 60 * time.Second
	}
	if opts.Thresholds == (timing.Thresholds{}) {
		opts.Thresholds = timing.DefaultThresholds()
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	windowed := make([]event.Action, 0, len(ev.Timeline))
	for _, a := range ev.Timeline {
		if a.Time.Before(ev.StartTime) || a.Time.After(ev.EndTime) {
			continue
		}
		windowed = append(windowed, a)
	}
	return &Session{
		event:    ev,
		windowed: windowed,
		deps:     deps,
		opts:     opts,
		logger:   logger.With("component", "session", "event", ev.ID),
		machine:  newModeMachine(),
		speed:    1.0,
	}
}

// Event returns the event this session runs.
func (s *Session) Event() event.Event { return s.event }

// Mode returns the current run mode.
func (s *Session) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.current
}

// StartPractice begins a practice run: the virtual clock rebases to the
// event's start time and advances at the speed multiplier.
func (s *Session) StartPractice() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrAlreadyRunning
	}
	if !s.machine.transition(ModePractice) {
		return fmt.Errorf("%w: %s -> practice", ErrInvalidTransition, s.machine.current)
	}
	s.beginRunLocked(ModePractice)
	s.logger.Info("practice started", "start", s.event.StartTime)
	return nil
}

// GoLive begins a live run against real wall-clock time. Alarms for every
// future action are armed with the external collaborator first; if arming
// fails the session stays out of live mode unless ForegroundOnly is set.
func (s *Session) GoLive() error {
	s.mu.Lock()

	cur := s.machine.current
	if cur != ModePreview && cur != ModePractice {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s -> live", ErrInvalidTransition, cur)
	}

	// A running practice loop yields to the live run.
	pausedLoop := false
	if s.running && s.stopCh != nil {
		s.stopping = true
		stop, done := s.stopCh, s.loopDone
		s.mu.Unlock()
		close(stop)
		<-done
		s.mu.Lock()
		s.stopping = false
		s.stopCh, s.loopDone = nil, nil
		pausedLoop = true
	}

	if err := s.armAlarmsLocked(); err != nil {
		if !s.opts.ForegroundOnly {
			if pausedLoop {
				// Hand the run back to practice. Rebase the delta
				// reference so the handover gap stays out of
				// virtual time.
				s.lastTick = s.deps.Clock.Now()
				s.stopCh = make(chan struct{})
				s.loopDone = make(chan struct{})
				go s.run(s.stopCh, s.loopDone)
			}
			s.mu.Unlock()
			return err
		}
		s.logger.Warn("running live foreground-only", "err", err)
	}

	if !s.machine.transition(ModeLive) {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s -> live", ErrInvalidTransition, s.machine.current)
	}
	s.beginRunLocked(ModeLive)
	s.logger.Info("live started", "end", s.event.EndTime)
	s.mu.Unlock()
	return nil
}

// armAlarmsLocked schedules one alarm per future action, cleaning up after
// itself on failure.
func (s *Session) armAlarmsLocked() error {
	if s.deps.Alarms == nil {
		return fmt.Errorf("%w: no alarm scheduler available", ErrSchedulingDenied)
	}
	now := s.deps.Clock.Now()
	armed := 0
	for _, a := range s.windowed {
		if !a.Time.After(now) {
			continue
		}
		if err := s.deps.Alarms.Schedule(s.event.ID, a.ID, a.Time, a.Action); err != nil {
			if cerr := s.deps.Alarms.CancelAll(s.event.ID); cerr != nil {
				s.logger.Error("alarm cleanup failed", "err", cerr)
			}
			return fmt.Errorf("%w: arming %q: %v", ErrSchedulingDenied, a.ID, err)
		}
		armed++
	}
	s.logger.Debug("alarms armed", "count", armed)
	return nil
}

// Stop aborts the current run and returns the session to preview. No side
// effect fires after Stop returns.
func (s *Session) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.stopping = true
	stop, done := s.stopCh, s.loopDone
	s.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelAlarmsLocked()
	s.machine.transition(ModePreview)
	s.resetRunLocked()
	s.logger.Info("session stopped")
	return nil
}

// Pause suspends the practice tick loop, retaining virtual time and the
// fired sets exactly as they are. Live mode never pauses: its clock is the
// wall clock and missed ticks catch up by re-reading it.
func (s *Session) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.machine.current != ModePractice || !s.running {
		return ErrPracticeOnly
	}
	s.paused = true
	s.logger.Debug("practice paused", "elapsed", s.elapsed)
	return nil
}

// Resume continues a paused practice run. The delta reference is re-based
// so the backgrounded duration does not leak into virtual time.
func (s *Session) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.machine.current != ModePractice || !s.running {
		return ErrPracticeOnly
	}
	if !s.paused {
		return nil
	}
	s.paused = false
	s.lastTick = s.deps.Clock.Now()
	s.logger.Debug("practice resumed", "elapsed", s.elapsed)
	return nil
}

// SetSpeed adjusts the practice speed multiplier, clamped to [1.0, 5.0].
// Accumulated virtual time is settled at the old rate first, so the change
// is a clean rate knee with no jump.
func (s *Session) SetSpeed(speed float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.machine.current != ModePractice {
		return ErrPracticeOnly
	}
	if speed < 1.0 {
		speed = 1.0
	}
	if speed > 5.0 {
		speed = 5.0
	}
	if s.running && !s.paused {
		now := s.deps.Clock.Now()
		if delta := now.Sub(s.lastTick); delta > 0 {
			s.elapsed += time.Duration(float64(delta) * s.speed)
		}
		s.lastTick = now
		s.virtualNow = s.event.StartTime.Add(s.elapsed)
	}
	s.speed = speed
	s.logger.Debug("practice speed set", "speed", speed)
	return nil
}

// Tick advances the session once against the injected clock. The internal
// loop calls this; with Options.Manual the caller drives it directly.
func (s *Session) Tick() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advanceLocked(s.deps.Clock.Now())
}

// Snapshot returns the published state for readers. Safe at any time.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	up := make([]event.Action, len(s.upcoming))
	copy(up, s.upcoming)
	return Snapshot{
		Mode:            s.machine.current,
		VirtualNow:      s.virtualNow,
		Speed:           s.speed,
		Paused:          s.paused,
		AudioMode:       s.audioMode,
		CurrentActionID: s.currentID,
		Upcoming:        up,
		FiredCount:      len(s.fired),
	}
}

// HandleAlarmFired reconciles an alarm callback from the external scheduler
// against the session's own firing record. Delivery is at-least-once and may
// race in-process crossing, so an already-fired action is a no-op. The
// return value reports whether this call actually fired the effects.
func (s *Session) HandleAlarmFired(eventID, actionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if eventID != s.event.ID || s.fired == nil || s.stopping {
		return false
	}
	a, ok := s.windowedByID(actionID)
	if !ok {
		s.logger.Warn("alarm for unknown action", "action", actionID)
		return false
	}
	if _, done := s.fired[a.ID]; done {
		s.logger.Debug("alarm already reconciled", "action", actionID)
		return false
	}
	s.fireLocked(pendingEffect{at: a.Time, kind: effTrigger, action: a})
	return true
}

// beginRunLocked initializes per-run state and starts the loop.
func (s *Session) beginRunLocked(mode Mode) {
	now := s.deps.Clock.Now()
	s.fired = make(map[string]struct{})
	s.noticed = make(map[string]struct{})
	s.counted = make(map[string]struct{})
	s.speed = 1.0
	s.paused = false
	s.elapsed = 0
	s.lastTick = now
	if mode == ModeLive {
		s.virtualNow = now
	} else {
		s.virtualNow = s.event.StartTime
	}
	s.seedPastLocked(s.virtualNow)

	s.audioMode = audio.Probe(s.deps.Player, s.deps.Speaker)
	if s.audioMode != audio.FullAudio {
		s.logger.Warn("audio degraded", "mode", s.audioMode)
		s.deps.Effects.AudioDegraded(s.audioMode)
	}

	s.running = true
	s.stopping = false
	if s.opts.Manual {
		s.stopCh, s.loopDone = nil, nil
		return
	}
	s.stopCh = make(chan struct{})
	s.loopDone = make(chan struct{})
	go s.run(s.stopCh, s.loopDone)
}

// seedPastLocked marks actions already behind the run's starting clock as
// fired so a mid-event live entry never replays history.
func (s *Session) seedPastLocked(now time.Time) {
	band := s.opts.Thresholds.TriggerBand
	for _, a := range s.windowed {
		if a.Time.Before(now.Add(-band)) {
			s.fired[a.ID] = struct{}{}
			s.noticed[a.ID] = struct{}{}
			for _, n := range s.event.CountdownOffsetsFor(a) {
				s.counted[countKey(a.ID, n)] = struct{}{}
			}
		}
	}
}

// run is the tick loop goroutine.
func (s *Session) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.opts.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.mu.Lock()
			s.advanceLocked(s.deps.Clock.Now())
			completed := s.machine.current == ModeCompleted
			s.mu.Unlock()
			if completed {
				return
			}
		}
	}
}

// advanceLocked is one tick: recompute the virtual clock, dispatch every
// newly-crossed effect in chronological order, refresh the published
// queries, and complete the run once the end time is reached.
func (s *Session) advanceLocked(now time.Time) {
	if s.stopping || s.paused || !s.running {
		return
	}
	mode := s.machine.current
	switch mode {
	case ModeLive:
		// Re-read the wall clock every tick rather than integrating
		// deltas, so missed ticks catch up instantly and error never
		// accumulates.
		s.virtualNow = now
	case ModePractice:
		delta := now.Sub(s.lastTick)
		if delta < 0 {
			delta = 0
		}
		s.elapsed += time.Duration(float64(delta) * s.speed)
		s.virtualNow = s.event.StartTime.Add(s.elapsed)
	default:
		return
	}
	s.lastTick = now

	s.dispatchLocked()

	if cur, ok := timing.CurrentAction(s.windowed, s.virtualNow, s.opts.Thresholds); ok {
		s.currentID = cur.ID
	} else {
		s.currentID = ""
	}
	s.upcoming = timing.UpcomingActions(s.windowed, s.virtualNow, s.opts.UpcomingWindow)

	if !s.virtualNow.Before(s.event.EndTime) {
		s.completeLocked()
	}
}

// dispatchLocked fires every effect whose threshold the virtual clock has
// crossed since the last tick. Each (action, category) pair fires at most
// once per run regardless of tick rate or frame drops, and a tick that
// crosses several actions at once fires them oldest-first.
func (s *Session) dispatchLocked() {
	var pend []pendingEffect

	for _, a := range s.windowed {
		until := a.Time.Sub(s.virtualNow)

		if _, done := s.fired[a.ID]; !done && until <= 0 {
			pend = append(pend, pendingEffect{at: a.Time, kind: effTrigger, action: a})
		}

		if lead := s.event.NoticeLeadFor(a); lead > 0 {
			if _, done := s.noticed[a.ID]; !done && until > 0 && until <= lead {
				pend = append(pend, pendingEffect{at: a.Time.Add(-lead), kind: effNotice, action: a})
			}
		}

		for _, n := range s.event.CountdownOffsetsFor(a) {
			mark := time.Duration(n) * time.Second
			if _, done := s.counted[countKey(a.ID, n)]; !done && until > 0 && until <= mark {
				pend = append(pend, pendingEffect{
					at:     a.Time.Add(-mark),
					kind:   effCountdown,
					count:  n,
					action: a,
				})
			}
		}
	}

	sort.SliceStable(pend, func(i, j int) bool {
		if !pend[i].at.Equal(pend[j].at) {
			return pend[i].at.Before(pend[j].at)
		}
		if pend[i].kind != pend[j].kind {
			return pend[i].kind < pend[j].kind
		}
		return pend[i].action.Time.Before(pend[j].action.Time)
	})
	for _, p := range pend {
		s.fireLocked(p)
	}
}

// fireLocked runs one effect's side effects and records it as done.
func (s *Session) fireLocked(p pendingEffect) {
	a := p.action
	switch p.kind {
	case effTrigger:
		s.fired[a.ID] = struct{}{}
		if a.HapticPattern != event.HapticNone {
			s.deps.Effects.Haptic(a, a.HapticPattern)
		}
		if a.AudioAnnounce {
			if a.AnnounceActionName {
				s.playLocked(a, cue.Trigger(), audio.BeepTrigger)
			} else {
				s.beepLocked(a, audio.BeepTrigger)
			}
		}
		s.logger.Info("action triggered", "action", a.ID, "text", a.Action)

	case effNotice:
		s.noticed[a.ID] = struct{}{}
		if a.AudioAnnounce {
			s.playLocked(a, cue.Notice(), audio.BeepNotice)
		}
		s.logger.Debug("notice fired", "action", a.ID)

	case effCountdown:
		s.counted[countKey(a.ID, p.count)] = struct{}{}
		if a.AudioAnnounce {
			s.playLocked(a, cue.Countdown(p.count), audio.BeepCountdown)
		}
	}
}

// playLocked emits the action's announcement through whatever audio layer
// the probe left us.
func (s *Session) playLocked(a event.Action, c cue.Category, beep audio.BeepKind) {
	switch s.audioMode {
	case audio.VisualOnly:
	case audio.BeepCodes:
		s.deps.Effects.PlayBeep(a, beep)
	default:
		s.deps.Effects.PlayCue(a, c, cue.Resolve(a, c, s.deps.Library))
	}
}

// beepLocked emits a bare beep regardless of speech availability.
func (s *Session) beepLocked(a event.Action, beep audio.BeepKind) {
	if s.audioMode == audio.VisualOnly {
		return
	}
	s.deps.Effects.PlayBeep(a, beep)
}

// windowedByID returns the in-window timeline entry with the given id.
func (s *Session) windowedByID(id string) (event.Action, bool) {
	for _, a := range s.windowed {
		if a.ID == id {
			return a, true
		}
	}
	return event.Action{}, false
}

// completeLocked ends the run once virtual time reaches the event's end.
func (s *Session) completeLocked() {
	if !s.machine.transition(ModeCompleted) {
		return
	}
	s.cancelAlarmsLocked()
	s.running = false
	s.currentID = ""
	s.upcoming = nil
	s.logger.Info("event completed", "fired", len(s.fired))
}

func (s *Session) cancelAlarmsLocked() {
	if s.deps.Alarms == nil {
		return
	}
	if err := s.deps.Alarms.CancelAll(s.event.ID); err != nil {
		s.logger.Error("alarm cancellation failed", "err", err)
	}
}

// resetRunLocked discards per-run state after a stop.
func (s *Session) resetRunLocked() {
	s.running = false
	s.stopping = false
	s.paused = false
	s.speed = 1.0
	s.elapsed = 0
	s.virtualNow = time.Time{}
	s.fired, s.noticed, s.counted = nil, nil, nil
	s.currentID = ""
	s.upcoming = nil
	s.stopCh, s.loopDone = nil, nil
}

func countKey(id string, n int) string {
	return fmt.Sprintf("%s/%d", id, n)
}
