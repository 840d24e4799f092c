package session

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
)

// StateChangedMsg is a tea.Msg carrying the session after the startup
// check.
type StateChangedMsg struct {
	State State
}

// StartCmd returns a tea.Cmd that runs the startup check.
func (m *Manager) StartCmd(ctx context.Context) tea.Cmd {
	return func() tea.Msg {
		return StateChangedMsg{State: m.Start(ctx)}
	}
}
