package audio

import (
	"math"
	"time"
)

// Beep synthesis for BEEP_CODES mode: when speech is unavailable, each
// announcement category gets a distinct, recognizable tone pattern.

// BeepKind selects which degraded-mode pattern to synthesize.
type BeepKind int

const (
	// BeepNotice is two short mid tones at the notice lead.
	BeepNotice BeepKind = iota
	// BeepCountdown is a single short high tick per countdown second.
	BeepCountdown
	// BeepTrigger is one long low tone at the trigger instant.
	BeepTrigger
)

// String returns the lowercase kind name.
func (k BeepKind) String() string {
	switch k {
	case BeepNotice:
		return "notice"
	case BeepCountdown:
		return "countdown"
	case BeepTrigger:
		return "trigger"
	default:
		return "unknown"
	}
}

// Tone synthesizes a mono PCM16 sine burst with a short linear fade at both
// ends to avoid clicks.
func Tone(freq float64, dur time.Duration, sampleRate int, volume float64) *Clip {
	if sampleRate <= 0 {
		sampleRate = 44100
	}
	if volume <= 0 || volume > 1 {
		volume = 0.6
	}
	n := int(float64(sampleRate) * dur.Seconds())
	fade := sampleRate / 100 // 10ms
	data := make([]byte, 2*n)
	for i := 0; i < n; i++ {
		amp := volume
		if i < fade {
			amp *= float64(i) / float64(fade)
		} else if n-i < fade {
			amp *= float64(n-i) / float64(fade)
		}
		s := int16(amp * math.MaxInt16 * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate)))
		data[2*i] = byte(s)
		data[2*i+1] = byte(s >> 8)
	}
	return &Clip{Data: data, SampleRate: sampleRate, Channels: 1}
}

// silence returns dur of mono PCM16 silence.
func silence(dur time.Duration, sampleRate int) []byte {
	n := int(float64(sampleRate) * dur.Seconds())
	return make([]byte, 2*n)
}

// Pattern synthesizes the clip for a degraded-mode announcement.
func Pattern(kind BeepKind, sampleRate int, volume float64) *Clip {
	if sampleRate <= 0 {
		sampleRate = 44100
	}
	switch kind {
	case BeepNotice:
		a := Tone(880, 120*time.Millisecond, sampleRate, volume)
		gap := silence(80*time.Millisecond, sampleRate)
		b := Tone(880, 120*time.Millisecond, sampleRate, volume)
		data := append(append(a.Data, gap...), b.Data...)
		return &Clip{Data: data, SampleRate: sampleRate, Channels: 1}
	case BeepCountdown:
		return Tone(1320, 90*time.Millisecond, sampleRate, volume)
	case BeepTrigger:
		return Tone(660, 450*time.Millisecond, sampleRate, volume)
	default:
		return Tone(880, 120*time.Millisecond, sampleRate, volume)
	}
}
