// ABOUTME: TUI initialization and control
// ABOUTME: Wraps bubbletea program for the recorder UI
package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/harperreed/backspeak/pkg/backspeak"
)

// NewModel creates a new TUI model
func NewModel(actions Actions) Model {
	return Model{
		actions:       actions,
		state:         backspeak.StateIdle,
		volume:        100,
		flashDuration: flashDuration,
	}
}

// Run creates the TUI program. The caller runs it.
func Run(actions Actions) (*tea.Program, error) {
	p := tea.NewProgram(NewModel(actions), tea.WithAltScreen())
	return p, nil
}

// StateMsg builds a status update for a recorder state change
func StateMsg(state backspeak.State) StatusMsg {
	return StatusMsg{State: &state}
}

// ClipMsg builds a status update for a newly published clip
func ClipMsg(clip backspeak.Clip) StatusMsg {
	has := true
	return StatusMsg{HasClip: &has, ClipDur: clip.Duration, ClipSize: clip.Audio.Size()}
}

// ErrorMsg builds a status update for a recorder failure
func ErrorMsg(err error) StatusMsg {
	return StatusMsg{Error: backspeak.UserMessage(err)}
}
