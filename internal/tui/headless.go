package tui

import (
	"os"
	"time"

	"golang.org/x/term"

	"github.com/gosv-project/gosv/internal/supervisor"
)

// IsInteractive reports whether stdout is attached to a terminal, the
// same check altuslabsxyz-devnet-builder's internal/tui.IsInteractive
// uses to decide between a real TUI and a plain log stream.
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// Headless satisfies supervisor.TUI without a terminal: Draw is a no-op
// (all status changes already go through the structured logger) and Poll
// never yields a Command, so the loop just ticks until a signal such as
// SIGINT or SIGTERM ends the process (SIGHUP only triggers a reload). Used by cmd/gosv's -no-tui mode, e.g. under a process
// manager or in CI where no PTY is attached.
type Headless struct{}

func (Headless) Draw(programs []*supervisor.Program) error { return nil }

func (Headless) Poll(timeout time.Duration) (supervisor.Command, bool) {
	time.Sleep(timeout)
	return supervisor.Command{}, false
}

func (Headless) Close() error { return nil }

var _ supervisor.TUI = Headless{}
