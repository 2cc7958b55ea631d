// Package tui implements the external status display and keyboard input
// surface spec.md §6 describes as an abstract new()/draw()/tick() object,
// concretely a bubbletea program wrapping a bubbles/table, grounded in
// altuslabsxyz-devnet-builder's internal/tui package.
package tui

import (
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/gosv-project/gosv/internal/supervisor"
)

// App adapts bubbletea's self-owned event loop to the synchronous
// Draw/Poll/Close contract supervisor.Loop expects: Draw pushes a fresh
// snapshot into the running program, and Poll drains keypress-derived
// Commands off a channel the model writes to, bounded by a timeout so the
// loop never blocks past its own tick cadence.
type App struct {
	program  *tea.Program
	commands chan supervisor.Command
	done     chan struct{}
	runErr   error
}

// New starts the bubbletea program in the background and returns once it
// has been launched. The returned App satisfies supervisor.TUI.
func New() (*App, error) {
	commands := make(chan supervisor.Command, 8)
	m := newModel(commands)
	// The supervisor, not bubbletea, owns interrupt/shutdown semantics
	// (SIGHUP reload, two-stage quit), so bubbletea's own signal handler
	// is disabled here.
	program := tea.NewProgram(m, tea.WithAltScreen(), tea.WithoutSignalHandler())

	a := &App{program: program, commands: commands, done: make(chan struct{})}
	go func() {
		_, err := program.Run()
		a.runErr = err
		close(a.done)
	}()
	return a, nil
}

// Draw hands the program a fresh snapshot to render on its next frame.
// It is a no-op, not an error, once the program has already exited (the
// supervisor loop keeps drawing until it has acted on the resulting Quit).
func (a *App) Draw(programs []*supervisor.Program) error {
	select {
	case <-a.done:
		return nil
	default:
	}
	a.program.Send(programsMsg{snapshot: snapshotPrograms(programs)})
	return nil
}

// Poll waits up to timeout for an operator-issued Command. It returns
// (Command{}, false) on timeout. Once the bubbletea program itself has
// exited it returns a CmdQuit on every call (the user typing "q" already
// emits CmdQuit, but a terminal-level interrupt can end the program
// without one).
func (a *App) Poll(timeout time.Duration) (supervisor.Command, bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case cmd := <-a.commands:
		return cmd, true
	case <-a.done:
		return supervisor.Command{Kind: supervisor.CmdQuit}, true
	case <-timer.C:
		return supervisor.Command{}, false
	}
}

// Close asks the bubbletea program to quit and waits for its Run goroutine
// to return, so the terminal is restored before the process exits.
func (a *App) Close() error {
	select {
	case <-a.done:
		return a.runErr
	default:
	}
	a.program.Quit()
	<-a.done
	if errors.Is(a.runErr, tea.ErrProgramKilled) {
		return nil
	}
	return a.runErr
}

var _ supervisor.TUI = (*App)(nil)
