package audio

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/conductorapp/conductor/cue"
)

// CuePlayer turns a resolved cue into actual sound. Resolution stays pure in
// package cue; this is the impure "play it" step, and it reports completion
// on a channel so callers never block the tick loop waiting on audio.
type CuePlayer struct {
	player  Player
	speaker Speaker
	logger  *log.Logger
}

// NewCuePlayer wires a cue player from the device collaborators. Either may
// be nil; playing a resolution that needs the missing collaborator fails on
// the completion channel, never panics.
func NewCuePlayer(player Player, speaker Speaker, logger *log.Logger) *CuePlayer {
	if logger == nil {
		logger = log.Default()
	}
	return &CuePlayer{
		player:  player,
		speaker: speaker,
		logger:  logger.With("component", "cueplayer"),
	}
}

// Play starts the resolution asynchronously. The returned channel receives
// exactly one value when playback finishes or fails, then closes.
func (cp *CuePlayer) Play(res cue.Resolution) <-chan error {
	done := make(chan error, 1)
	go func() {
		defer close(done)
		done <- cp.play(res)
	}()
	return done
}

func (cp *CuePlayer) play(res cue.Resolution) error {
	switch res.Tier {
	case cue.TierSpeech:
		if cp.speaker == nil {
			return fmt.Errorf("no speech subsystem")
		}
		return cp.speaker.Speak(res.Speech)

	case cue.TierPackCue:
		return cp.playAsset(res.Asset)

	case cue.TierGrains:
		for i, g := range res.Grains {
			if i > 0 && res.GrainGap > 0 {
				time.Sleep(res.GrainGap)
			}
			if err := cp.playAsset(g); err != nil {
				return err
			}
		}
		return nil

	default:
		return fmt.Errorf("unknown resolution tier %v", res.Tier)
	}
}

// playAsset plays one pack asset and waits for it to finish so grain
// sequences come out back-to-back.
func (cp *CuePlayer) playAsset(ref cue.AssetRef) error {
	if cp.player == nil {
		return fmt.Errorf("no audio subsystem")
	}
	clip, err := loadClip(ref.Path)
	if err != nil {
		cp.logger.Warn("unreadable pack asset", "pack", ref.Pack, "path", ref.Path, "err", err)
		return err
	}
	if err := cp.player.Play(clip); err != nil {
		return err
	}
	time.Sleep(clip.Duration())
	return nil
}

// loadClip reads a pack audio file. Pack assets are 16-bit mono WAV with the
// 44-byte canonical header, or raw PCM at the default rate. Other WAV shapes
// are rejected rather than played as noise.
func loadClip(path string) (*Clip, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	sampleRate := 44100
	if len(data) > 44 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE" {
		channels := int(uint16(data[22]) | uint16(data[23])<<8)
		bits := int(uint16(data[34]) | uint16(data[35])<<8)
		if channels != 1 || bits != 16 {
			return nil, fmt.Errorf("unsupported wav format %dch/%d-bit in %s", channels, bits, path)
		}
		sampleRate = int(uint32(data[24]) | uint32(data[25])<<8 | uint32(data[26])<<16 | uint32(data[27])<<24)
		data = data[44:]
	}
	return &Clip{Data: data, SampleRate: sampleRate, Channels: 1}, nil
}
