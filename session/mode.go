package session

// Mode is the coordination session's run mode.
type Mode int

const (
	// ModePreview is the initial state: static inspection, no clock running.
	ModePreview Mode = iota
	// ModePractice runs the tick loop on a rebased virtual clock with an
	// adjustable speed multiplier.
	ModePractice
	// ModeLive runs the tick loop against real wall-clock time.
	ModeLive
	// ModeCompleted is terminal for a run, reached when the virtual clock
	// passes the event's end time. Never entered by user action.
	ModeCompleted
)

// String returns the lowercase mode name.
func (m Mode) String() string {
	switch m {
	case ModePreview:
		return "preview"
	case ModePractice:
		return "practice"
	case ModeLive:
		return "live"
	case ModeCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// modeMachine guards mode transitions with an explicit transition table.
type modeMachine struct {
	current     Mode
	transitions map[Mode][]Mode
}

func newModeMachine() *modeMachine {
	return &modeMachine{
		current: ModePreview,
		transitions: map[Mode][]Mode{
			ModePreview:  {ModePractice, ModeLive},
			ModePractice: {ModeLive, ModePreview, ModeCompleted},
			ModeLive:     {ModePreview, ModeCompleted},
			// Completed is terminal; the session is discarded from there.
			ModeCompleted: {},
		},
	}
}

// transition moves to the requested mode if the table allows it.
func (m *modeMachine) transition(to Mode) bool {
	for _, next := range m.transitions[m.current] {
		if next == to {
			m.current = to
			return true
		}
	}
	return false
}
