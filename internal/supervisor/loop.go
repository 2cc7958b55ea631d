// Package supervisor implements the per-program supervision state machine
// and the reload-and-reconcile control loop described by spec.md §4.
package supervisor

import (
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gosv-project/gosv/internal/config"
)

// TUI is the narrow external rendering/input surface the loop consumes
// (spec.md §6's "new(), draw(programs), tick(timeout) -> Option<Command>").
type TUI interface {
	Draw(programs []*Program) error
	Poll(timeout time.Duration) (Command, bool)
	Close() error
}

// pollInterval is the bounded wait of spec.md §4.4 step 6.
const pollInterval = 10 * time.Millisecond

// Loop is the single-threaded reconcile/tick/render cycle (spec.md §4.4).
type Loop struct {
	config     *Config
	tui        TUI
	logger     Logger
	configPath string

	reload      atomic.Bool
	sigCh       chan os.Signal
	pendingQuit bool
	forceExit   bool
}

// NewLoop wires a Loop around an already-constructed Config and TUI.
// configPath is the path used for bare Reload() commands and SIGHUP.
func NewLoop(cfg *Config, tui TUI, logger Logger, configPath string) *Loop {
	return &Loop{config: cfg, tui: tui, logger: logger, configPath: configPath}
}

// ListenForReload installs the SIGHUP relay described in spec.md §5 and
// §9: the handler (here, the goroutine signal.Notify wakes) only ever
// sets an atomic boolean, which the loop polls and clears at the top of
// each iteration.
func (l *Loop) ListenForReload() {
	l.sigCh = make(chan os.Signal, 1)
	signal.Notify(l.sigCh, syscall.SIGHUP)
	go func() {
		for range l.sigCh {
			l.reload.Store(true)
		}
	}()
}

// Stop tears down the SIGHUP relay's notify registration; cmd/gosv defers
// it after ListenForReload.
func (l *Loop) Stop() {
	if l.sigCh != nil {
		signal.Stop(l.sigCh)
	}
}

// Run drives the loop until a clean or forced quit, then performs the
// terminal kill sweep (spec.md §4.4).
func (l *Loop) Run() error {
	defer l.killSweep()

	for {
		if l.pendingQuit && (l.forceExit || l.config.AllStopped()) {
			return nil
		}

		if l.reload.CompareAndSwap(true, false) {
			l.reloadFrom(l.configPath)
		}

		if err := l.tui.Draw(l.config.Programs()); err != nil {
			return fmt.Errorf("rendering TUI: %w", err)
		}

		for _, p := range l.config.Programs() {
			if err := p.Tick(); err != nil {
				// Fatal tick: a respawn's spawn call failed. Surface it
				// after a final kill sweep (handled by the deferred
				// killSweep above), per spec.md §7.
				return err
			}
		}

		l.config.DrainDeletions(l.logger)

		cmd, ok := l.tui.Poll(pollInterval)
		if !ok {
			continue
		}
		l.dispatch(cmd)
	}
}

func (l *Loop) killSweep() {
	for _, p := range l.config.Programs() {
		p.Kill()
	}
	if l.tui != nil {
		_ = l.tui.Close()
	}
}

func (l *Loop) reloadFrom(path string) {
	file, err := config.Load(path)
	if err != nil {
		l.logger.Warnw("reloading the configuration file", "path", path, "error", err.Error())
		return
	}
	if err := l.config.Update(file, l.logger); err != nil {
		l.logger.Warnw("applying reloaded configuration", "path", path, "error", err.Error())
	}
}

func (l *Loop) dispatch(cmd Command) {
	switch cmd.Kind {
	case CmdQuit:
		l.handleQuit()
	case CmdLogLevel:
		if err := l.config.LevelHandle.Set(cmd.Level); err != nil {
			l.logger.Warnw("changing log level", "level", cmd.Level, "error", err.Error())
		}
	case CmdReload:
		path := cmd.Path
		if path == "" {
			path = l.configPath
		}
		l.reloadFrom(path)
	case CmdStart:
		l.broadcastOrTarget(cmd.Name, func(p *Program) error { return p.Start() })
	case CmdStop:
		l.broadcastOrTarget(cmd.Name, func(p *Program) error { p.Stop(); return nil })
	case CmdRestart:
		l.broadcastOrTarget(cmd.Name, func(p *Program) error { p.Restart(); return nil })
	}
}

// handleQuit implements spec.md §4.4's two-stage Quit: the first Quit
// requests a graceful stop of every program; a second Quit before they've
// all quiesced force-exits immediately via the deferred kill sweep.
func (l *Loop) handleQuit() {
	if l.pendingQuit {
		l.logger.Warnw("force quitting")
		l.forceExit = true
		return
	}
	l.pendingQuit = true
	for _, p := range l.config.Programs() {
		p.Stop()
	}
}

// broadcastOrTarget runs fn against every program if name is empty
// (the "all" broadcast), or against the single named program; an unknown
// name is logged as a recoverable operator error, per spec.md §7.
func (l *Loop) broadcastOrTarget(name string, fn func(*Program) error) {
	if name == "" {
		for _, p := range l.config.Programs() {
			if err := fn(p); err != nil {
				l.logger.Warnw("broadcast command failed", "name", p.Name(), "error", err.Error())
			}
		}
		return
	}
	p := l.config.Find(name)
	if p == nil {
		l.logger.Warnw("program not found", "name", name)
		return
	}
	if err := fn(p); err != nil {
		l.logger.Warnw("command failed", "name", name, "error", err.Error())
	}
}
