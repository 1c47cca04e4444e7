// ABOUTME: Bubbletea model for the recorder TUI
// ABOUTME: Defines application state, key handling and rendering
package ui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/harperreed/backspeak/pkg/backspeak"
)

const (
	flashDuration = 1200 * time.Millisecond
	volumeStep    = 10
)

var (
	stateStyles = map[backspeak.State]lipgloss.Style{
		backspeak.StateIdle:       lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
		backspeak.StateRecording:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
		backspeak.StateProcessing: lipgloss.NewStyle().Foreground(lipgloss.Color("220")),
		backspeak.StateReady:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86")),
	}
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	flashStyle = lipgloss.NewStyle().Italic(true)
	helpStyle  = lipgloss.NewStyle().Faint(true)
)

// Actions are the operations the TUI triggers. Each call may block, so the
// model runs them inside commands.
type Actions interface {
	Toggle() error
	Play() error
	Save() (string, error)
	SetVolume(volume int)
}

// Model represents the TUI state
type Model struct {
	actions Actions

	// Recorder
	state    backspeak.State
	lastErr  string
	hasClip  bool
	clipDur  time.Duration
	clipSize int

	// Playback
	volume int

	// Flash feedback for the last key press
	flash         string
	flashID       int
	flashDuration time.Duration

	// Dimensions
	width  int
	height int
}

// StatusMsg updates TUI state from recorder callbacks
type StatusMsg struct {
	State    *backspeak.State
	Error    string
	HasClip  *bool
	ClipDur  time.Duration
	ClipSize int
}

// actionMsg reports the outcome of an Actions call
type actionMsg struct {
	action string
	detail string
	err    error
}

// clearFlashMsg clears the flash if it is still the one identified by id
type clearFlashMsg struct {
	id int
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case StatusMsg:
		m.applyStatus(msg)
	case actionMsg:
		return m.applyAction(msg)
	case clearFlashMsg:
		if msg.id == m.flashID {
			m.flash = ""
		}
	}

	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	s := ""
	s += m.renderHeader()
	s += m.renderClip()
	s += m.renderControls()
	s += m.renderHelp()

	return s
}

// renderHeader renders the recorder state and last error
func (m Model) renderHeader() string {
	icon := "○"
	switch m.state {
	case backspeak.StateRecording:
		icon = "●"
	case backspeak.StateProcessing:
		icon = "…"
	case backspeak.StateReady:
		icon = "✓"
	}

	// Pad before styling so escape codes do not skew the box
	state := fmt.Sprintf("%s %-43s", icon, m.state)
	s := fmt.Sprintf(`┌─ Backspeak ──────────────────────────────────────────┐
│ State: %s │
`, stateStyles[m.state].Render(state))
	if m.lastErr != "" {
		s += fmt.Sprintf("│ Error: %s │\n", errorStyle.Render(fmt.Sprintf("%-45s", truncate(m.lastErr, 45))))
	}
	s += "├──────────────────────────────────────────────────────┤\n"
	return s
}

// renderClip renders the reversed clip summary
func (m Model) renderClip() string {
	if !m.hasClip {
		return "│ No clip yet                                          │\n"
	}
	return fmt.Sprintf("│ Reversed clip: %-37s │\n",
		fmt.Sprintf("%.2fs, %s", m.clipDur.Seconds(), formatSize(m.clipSize)))
}

// renderControls renders volume and flash feedback
func (m Model) renderControls() string {
	return fmt.Sprintf("│                                                      │\n"+
		"│ Volume: [%s] %3d%%%-24s │\n"+
		"│ %s │\n",
		renderBar(m.volume, 100, 10), m.volume, "",
		flashStyle.Render(fmt.Sprintf("%-52s", truncate(m.flash, 52))))
}

// renderHelp renders keyboard shortcuts
func (m Model) renderHelp() string {
	return "├──────────────────────────────────────────────────────┤\n" +
		"│ " + helpStyle.Render("space/r:Record  p:Play  s:Save  +/-:Volume  q:Quit ") + "  │\n" +
		"└──────────────────────────────────────────────────────┘\n"
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case " ", "space", "r":
		if !m.state.CanRecord() {
			cmd := m.setFlash(backspeak.UserMessage(backspeak.ErrBusy))
			return m, cmd
		}
		label := "● Recording"
		if m.state == backspeak.StateRecording {
			label = "◀ Reversing"
		}
		flash := m.setFlash(label)
		return m, tea.Batch(flash, m.run("toggle", func() (string, error) {
			return "", m.actions.Toggle()
		}))
	case "p":
		if !m.hasClip {
			cmd := m.setFlash("Nothing to play yet")
			return m, cmd
		}
		flash := m.setFlash("▶ Playing")
		return m, tea.Batch(flash, m.run("play", func() (string, error) {
			return "", m.actions.Play()
		}))
	case "s":
		if !m.hasClip {
			cmd := m.setFlash("Nothing to save yet")
			return m, cmd
		}
		return m, m.run("save", func() (string, error) {
			return m.actions.Save()
		})
	case "+", "=":
		cmd := m.changeVolume(volumeStep)
		return m, cmd
	case "-", "_":
		cmd := m.changeVolume(-volumeStep)
		return m, cmd
	}

	return m, nil
}

// changeVolume adjusts volume within [0, 100] and pushes it to the output
func (m *Model) changeVolume(delta int) tea.Cmd {
	m.volume += delta
	if m.volume > 100 {
		m.volume = 100
	}
	if m.volume < 0 {
		m.volume = 0
	}
	if m.actions != nil {
		m.actions.SetVolume(m.volume)
	}
	return m.setFlash(fmt.Sprintf("Volume %d%%", m.volume))
}

// setFlash shows text until a tick clears it. A newer flash supersedes the
// pending clear of an older one.
func (m *Model) setFlash(text string) tea.Cmd {
	m.flashID++
	m.flash = text
	id := m.flashID
	return tea.Tick(m.flashDuration, func(time.Time) tea.Msg {
		return clearFlashMsg{id: id}
	})
}

// run executes an action off the update loop
func (m Model) run(action string, fn func() (string, error)) tea.Cmd {
	if m.actions == nil {
		return nil
	}
	return func() tea.Msg {
		detail, err := fn()
		return actionMsg{action: action, detail: detail, err: err}
	}
}

// applyAction surfaces action results
func (m Model) applyAction(msg actionMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.lastErr = backspeak.UserMessage(msg.err)
		return m, nil
	}
	if msg.action == "save" {
		cmd := m.setFlash("Saved " + msg.detail)
		return m, cmd
	}
	return m, nil
}

// applyStatus updates model from status message
func (m *Model) applyStatus(msg StatusMsg) {
	if msg.State != nil {
		m.state = *msg.State
		if m.state == backspeak.StateRecording {
			m.lastErr = ""
		}
	}
	if msg.Error != "" {
		m.lastErr = msg.Error
	}
	if msg.HasClip != nil {
		m.hasClip = *msg.HasClip
		m.clipDur = msg.ClipDur
		m.clipSize = msg.ClipSize
	}
}

// Utility functions
func renderBar(value, max, width int) string {
	filled := (value * width) / max
	bar := ""
	for i := 0; i < width; i++ {
		if i < filled {
			bar += "█"
		} else {
			bar += "░"
		}
	}
	return bar
}

func truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length-3] + "..."
}

func formatSize(bytes int) string {
	if bytes < 1024 {
		return fmt.Sprintf("%d B", bytes)
	}
	return fmt.Sprintf("%.1f KiB", float64(bytes)/1024)
}
