package ui

import (
	"errors"

	tea "github.com/charmbracelet/bubbletea"
)

var errNotTerminal = errors.New("output is not a terminal")

// altScreen is the terminal's fullscreen capability. It queues Bubble Tea
// commands that the model hands back from Update.
type altScreen struct {
	tty    bool
	always bool // the program already runs in the alternate screen
	cmds   []tea.Cmd
}

func (a *altScreen) Enter() error {
	if !a.tty {
		return errNotTerminal
	}
	if !a.always {
		a.cmds = append(a.cmds, tea.EnterAltScreen)
	}
	a.cmds = append(a.cmds, tea.HideCursor)
	return nil
}

func (a *altScreen) Exit() error {
	if !a.tty {
		return errNotTerminal
	}
	if !a.always {
		a.cmds = append(a.cmds, tea.ExitAltScreen)
	}
	return nil
}

// flush returns and clears the queued commands.
func (a *altScreen) flush() []tea.Cmd {
	cmds := a.cmds
	a.cmds = nil
	return cmds
}
