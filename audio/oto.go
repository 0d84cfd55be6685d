package audio

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// OtoPlayer plays PCM clips through the platform audio device via oto.
type OtoPlayer struct {
	context *oto.Context

	mu sync.Mutex
	// Keep the active player and its backing data alive while audible;
	// letting the GC collect mid-play causes static.
	player *oto.Player
	active []byte

	sampleRate int
	channels   int
}

// OtoConfig configures the audio device.
type OtoConfig struct {
	SampleRate int // 44100 or 48000
	Channels   int // 1 mono, 2 stereo
}

// DefaultOtoConfig returns mono CD-quality settings, plenty for cues.
func DefaultOtoConfig() OtoConfig {
	return OtoConfig{SampleRate: 44100, Channels: 1}
}

// NewOtoPlayer opens the audio device. It fails where no audio subsystem
// exists, which the session treats as visual-only mode rather than an error.
func NewOtoPlayer(cfg OtoConfig) (*OtoPlayer, error) {
	if cfg.SampleRate != 44100 && cfg.SampleRate != 48000 {
		return nil, fmt.Errorf("unsupported sample rate %d", cfg.SampleRate)
	}
	if cfg.Channels != 1 && cfg.Channels != 2 {
		return nil, fmt.Errorf("unsupported channel count %d", cfg.Channels)
	}

	op := &oto.NewContextOptions{
		SampleRate:   cfg.SampleRate,
		ChannelCount: cfg.Channels,
		Format:       oto.FormatSignedInt16LE,
	}
	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("open audio device: %w", err)
	}
	select {
	case <-ready:
	case <-time.After(5 * time.Second):
		return nil, fmt.Errorf("audio device not ready")
	}

	return &OtoPlayer{
		context:    ctx,
		sampleRate: cfg.SampleRate,
		channels:   cfg.Channels,
	}, nil
}

// Play implements Player. A clip whose rate doesn't match the device is
// rejected rather than resampled.
func (p *OtoPlayer) Play(clip *Clip) error {
	if clip == nil || len(clip.Data) == 0 {
		return fmt.Errorf("nothing to play")
	}
	if clip.SampleRate != p.sampleRate || clip.Channels != p.channels {
		return fmt.Errorf("clip format %dHz/%dch does not match device %dHz/%dch",
			clip.SampleRate, clip.Channels, p.sampleRate, p.channels)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.player != nil {
		p.player.Close()
	}
	p.active = clip.Data
	p.player = p.context.NewPlayer(bytes.NewReader(p.active))
	p.player.Play()
	return nil
}

// Stop implements Player.
func (p *OtoPlayer) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.player == nil {
		return nil
	}
	err := p.player.Close()
	p.player = nil
	p.active = nil
	return err
}

// IsPlaying implements Player.
func (p *OtoPlayer) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.player != nil && p.player.IsPlaying()
}

// Close implements Player. The oto context itself cannot be torn down, so
// Close only stops playback.
func (p *OtoPlayer) Close() error {
	return p.Stop()
}
