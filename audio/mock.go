package audio

import "sync"

// MockPlayer records every clip handed to it. Tests assert on the recorded
// sequence instead of listening.
type MockPlayer struct {
	mu      sync.Mutex
	clips   []*Clip
	playing bool
	PlayErr error // returned from Play when set
}

// NewMockPlayer returns an empty recording player.
func NewMockPlayer() *MockPlayer { return &MockPlayer{} }

// Play implements Player.
func (m *MockPlayer) Play(clip *Clip) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PlayErr != nil {
		return m.PlayErr
	}
	m.clips = append(m.clips, clip)
	m.playing = true
	return nil
}

// Stop implements Player.
func (m *MockPlayer) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playing = false
	return nil
}

// IsPlaying implements Player.
func (m *MockPlayer) IsPlaying() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playing
}

// Close implements Player.
func (m *MockPlayer) Close() error { return m.Stop() }

// Played returns the clips played so far.
func (m *MockPlayer) Played() []*Clip {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Clip, len(m.clips))
	copy(out, m.clips)
	return out
}

// MockSpeaker records spoken utterances.
type MockSpeaker struct {
	mu           sync.Mutex
	utterance    []string
	AvailableVal bool // reported by Available
	SpeakErr     error
}

// NewMockSpeaker returns an available recording speaker.
func NewMockSpeaker() *MockSpeaker { return &MockSpeaker{AvailableVal: true} }

// Speak implements Speaker.
func (m *MockSpeaker) Speak(text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SpeakErr != nil {
		return m.SpeakErr
	}
	m.utterance = append(m.utterance, text)
	return nil
}

// Available implements Speaker.
func (m *MockSpeaker) Available() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.AvailableVal
}

// Spoken returns everything spoken so far.
func (m *MockSpeaker) Spoken() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.utterance))
	copy(out, m.utterance)
	return out
}
