// Package audio is Conductor's audio boundary: playback and speech
// interfaces, an oto-backed PCM player, beep-pattern synthesis for degraded
// mode, and the probe that decides how much audio this device can do.
package audio

import "time"

// Clip is a playable chunk of 16-bit little-endian PCM.
type Clip struct {
	Data       []byte
	SampleRate int
	Channels   int
}

// Duration returns the clip's play time.
func (c *Clip) Duration() time.Duration {
	if c.SampleRate <= 0 || c.Channels <= 0 {
		return 0
	}
	samples := len(c.Data) / (2 * c.Channels)
	return time.Duration(samples) * time.Second / time.Duration(c.SampleRate)
}

// Player plays PCM clips. Implementations must be safe to call from the
// session's dispatch goroutine.
type Player interface {
	// Play starts the clip and returns without waiting for completion.
	Play(clip *Clip) error

	// Stop halts any current playback.
	Stop() error

	// IsPlaying reports whether a clip is currently audible.
	IsPlaying() bool

	// Close releases the audio device.
	Close() error
}

// Speaker is the platform speech subsystem.
type Speaker interface {
	// Speak synthesizes and plays the utterance, returning when playback
	// has been handed to the platform.
	Speak(text string) error

	// Available reports whether speech synthesis works on this device.
	Available() bool
}

// FallbackMode is how much of the audio chain this run gets to use. It is
// probed once at session start and cached for the run.
type FallbackMode int

const (
	// FullAudio means packs and speech are both usable.
	FullAudio FallbackMode = iota
	// BeepCodes means no speech; announcements degrade to beep patterns.
	BeepCodes
	// VisualOnly means no audio subsystem at all.
	VisualOnly
)

// String returns the lowercase mode name.
func (m FallbackMode) String() string {
	switch m {
	case FullAudio:
		return "full-audio"
	case BeepCodes:
		return "beep-codes"
	case VisualOnly:
		return "visual-only"
	default:
		return "unknown"
	}
}

// Probe determines the run's fallback mode from the available collaborators.
// A nil player means no audio subsystem; a nil or unavailable speaker
// degrades speech to beep codes.
func Probe(p Player, s Speaker) FallbackMode {
	if p == nil {
		return VisualOnly
	}
	if s == nil || !s.Available() {
		return BeepCodes
	}
	return FullAudio
}
