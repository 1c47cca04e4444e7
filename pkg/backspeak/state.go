// ABOUTME: Recorder lifecycle states
// ABOUTME: idle → recording → processing → ready
package backspeak

// State is a recorder lifecycle state
type State int

const (
	StateIdle State = iota
	StateRecording
	StateProcessing
	StateReady
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateProcessing:
		return "processing"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// CanRecord reports whether a recording may be started or stopped
func (s State) CanRecord() bool {
	return s != StateProcessing
}
