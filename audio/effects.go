package audio

import (
	"github.com/charmbracelet/log"

	"github.com/conductorapp/conductor/cue"
	"github.com/conductorapp/conductor/event"
)

// DeviceEffects is the device-facing effect sink: resolved cues go through a
// CuePlayer, degraded announcements get synthesized beep patterns, and
// haptics are logged since desktop builds have no vibration motor. Effect
// calls return immediately; playback runs on the cue player's goroutine and
// failures land in the log instead of the tick loop.
type DeviceEffects struct {
	cues       *CuePlayer
	player     Player
	logger     *log.Logger
	sampleRate int
	volume     float64
}

// NewDeviceEffects builds a device sink from the playback collaborators.
// sampleRate and volume shape the synthesized beep patterns; zero values
// fall back to the synthesis defaults.
func NewDeviceEffects(cues *CuePlayer, player Player, sampleRate int, volume float64, logger *log.Logger) *DeviceEffects {
	if logger == nil {
		logger = log.Default()
	}
	return &DeviceEffects{
		cues:       cues,
		player:     player,
		logger:     logger.With("component", "effects"),
		sampleRate: sampleRate,
		volume:     volume,
	}
}

// PlayCue starts the resolved announcement and drains its completion
// asynchronously so a slow utterance never stalls dispatch.
func (d *DeviceEffects) PlayCue(a event.Action, c cue.Category, res cue.Resolution) {
	if d.cues == nil {
		return
	}
	done := d.cues.Play(res)
	go func() {
		if err := <-done; err != nil {
			d.logger.Warn("cue playback failed", "action", a.ID, "kind", c.Kind, "err", err)
		}
	}()
}

// PlayBeep synthesizes and plays the degraded-mode pattern for the action.
func (d *DeviceEffects) PlayBeep(a event.Action, kind BeepKind) {
	if d.player == nil {
		return
	}
	clip := Pattern(kind, d.sampleRate, d.volume)
	if err := d.player.Play(clip); err != nil {
		d.logger.Warn("beep playback failed", "action", a.ID, "kind", kind, "err", err)
	}
}

// Haptic logs the vibration request. Desktop has no haptic hardware, so the
// log line is the observable effect.
func (d *DeviceEffects) Haptic(a event.Action, pattern event.HapticPattern) {
	d.logger.Info("haptic", "action", a.ID, "pattern", pattern)
}

// AudioDegraded reports reduced audio for the run.
func (d *DeviceEffects) AudioDegraded(mode FallbackMode) {
	d.logger.Warn("audio degraded", "mode", mode)
}
