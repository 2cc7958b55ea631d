package supervisor

import (
	"testing"
	"time"
)

// fakeTUI replays a scripted sequence of Commands and counts Draw/Close
// calls, standing in for the external terminal display in loop tests.
type fakeTUI struct {
	commands  []Command
	drawCalls int
	closed    bool
}

func (f *fakeTUI) Draw(programs []*Program) error {
	f.drawCalls++
	return nil
}

func (f *fakeTUI) Poll(timeout time.Duration) (Command, bool) {
	if len(f.commands) == 0 {
		return Command{}, false
	}
	cmd := f.commands[0]
	f.commands = f.commands[1:]
	return cmd, true
}

func (f *fakeTUI) Close() error {
	f.closed = true
	return nil
}

var _ TUI = (*fakeTUI)(nil)

// TestLoop_ForceQuitOnSecondQuit exercises spec.md §8 scenario 6: a Quit
// while children are still terminating, followed by a second Quit before
// they've quiesced, must exit promptly via the kill sweep rather than
// waiting out graceful_timeout.
func TestLoop_ForceQuitOnSecondQuit(t *testing.T) {
	cfg := NewConfig(fileWith(manualSpec("stubborn", "/bin/sleep 100")), nil, nopLogger{})
	p := cfg.Find("stubborn")
	if err := p.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	tui := &fakeTUI{commands: []Command{
		{Kind: CmdQuit},
		{Kind: CmdQuit},
	}}
	loop := NewLoop(cfg, tui, nopLogger{}, "unused.toml")

	done := make(chan error, 1)
	go func() { done <- loop.Run() }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after a forced second Quit")
	}

	if !tui.closed {
		t.Fatal("expected Close() to be called on exit")
	}
	for _, c := range p.Children() {
		if c.Status.Kind != StatusStopped && c.Status.Kind != StatusFinished && c.Status.Kind != StatusTerminating {
			t.Fatalf("unexpected lingering status after force-quit: %v", c.Status.Kind)
		}
	}
}

func TestLoop_BroadcastOrTargetUnknownNameIsLoggedNotFatal(t *testing.T) {
	cfg := NewConfig(fileWith(manualSpec("a", "/bin/true")), nil, nopLogger{})
	loop := NewLoop(cfg, &fakeTUI{}, nopLogger{}, "unused.toml")

	// Targeting a program that doesn't exist must not panic or error; it
	// is a recoverable operator mistake (spec.md §7).
	loop.broadcastOrTarget("does-not-exist", func(p *Program) error { return nil })
}
