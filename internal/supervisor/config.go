package supervisor

import (
	"fmt"

	"github.com/gosv-project/gosv/internal/config"
	"github.com/gosv-project/gosv/internal/logging"
)

// Config is the live, in-memory mapping of program name to Program, plus
// the bookkeeping spec.md §3 describes: the advisory user string, the
// current log level handle, and the deferred-deletion queue.
type Config struct {
	User string

	programs         []*Program
	programDeletions []string

	LevelHandle *LevelHandleAdapter
}

// LevelHandleAdapter narrows *logging.LevelHandle to what Config needs,
// so this package doesn't otherwise depend on zerolog types.
type LevelHandleAdapter struct {
	handle *logging.LevelHandle
}

// NewLevelHandleAdapter wraps a logging.LevelHandle for use by Config.
func NewLevelHandleAdapter(h *logging.LevelHandle) *LevelHandleAdapter {
	return &LevelHandleAdapter{handle: h}
}

// Set reapplies a filter level through the wrapped handle.
func (a *LevelHandleAdapter) Set(level string) error {
	if a == nil || a.handle == nil {
		return nil
	}
	return a.handle.Set(level)
}

// NewConfig builds a live Config from a freshly loaded file, starting
// every auto-start program. The handle is carried in by the caller (main)
// since it is created once at process startup, not per load. A single
// program's auto-start failure is a recoverable operational error, not a
// fatal one (spec.md §7): it is logged and the remaining programs still
// get their chance to start.
func NewConfig(file *config.File, handle *LevelHandleAdapter, logger Logger) *Config {
	c := &Config{User: file.User, LevelHandle: handle}
	for _, spec := range file.Programs {
		p := NewProgram(spec, logger)
		c.programs = append(c.programs, p)
		if spec.StartPolicy == config.StartAuto {
			if err := p.Start(); err != nil {
				logger.Warnw("auto-starting program", "name", spec.Name, "error", err.Error())
			}
		}
	}
	return c
}

// Programs returns the live program list (for iteration by the loop and
// the TUI renderer).
func (c *Config) Programs() []*Program { return c.programs }

// Find looks up a program by name. While a replaced program is still
// draining, both incarnations share the name; Find returns the most
// recently added one, i.e. the replacement.
func (c *Config) Find(name string) *Program {
	for i := len(c.programs) - 1; i >= 0; i-- {
		if c.programs[i].Name() == name {
			return c.programs[i]
		}
	}
	return nil
}

// AllStopped reports whether every program has quiesced.
func (c *Config) AllStopped() bool {
	for _, p := range c.programs {
		if !p.AllStopped() {
			return false
		}
	}
	return true
}

// Update merges a freshly loaded file into the live Config, per spec.md
// §4.3: add new programs (auto-starting them), enqueue removed or
// changed-spec programs for deferred deletion and append their
// replacements, and leave unchanged programs' live children untouched.
// A program that fails to auto-start stays in the Config unstarted; the
// rest of the file is still merged, and the first such error is returned.
func (c *Config) Update(file *config.File, logger Logger) error {
	newByName := make(map[string]config.ProgramSpec, len(file.Programs))
	for _, spec := range file.Programs {
		newByName[spec.Name] = spec
	}

	var retained []*Program
	for _, p := range c.programs {
		newSpec, stillPresent := newByName[p.Name()]
		switch {
		case !stillPresent:
			// Remove: stop gracefully, defer removal until quiescent.
			p.Stop()
			c.programDeletions = append(c.programDeletions, p.Name())
			retained = append(retained, p)
		case newSpec.Equal(p.Spec()):
			// Retain: identical spec, live children untouched.
			retained = append(retained, p)
		default:
			// Replace: stop the old incarnation, defer its removal, and
			// append a fresh Program for the new spec.
			p.Stop()
			c.programDeletions = append(c.programDeletions, p.Name())
			retained = append(retained, p)
		}
	}
	c.programs = retained

	oldByName := make(map[string]config.ProgramSpec)
	for _, p := range c.programs {
		oldByName[p.Name()] = p.Spec()
	}

	var startErr error
	for _, spec := range file.Programs {
		old, hadOld := oldByName[spec.Name]
		if hadOld && old.Equal(spec) {
			continue // retained above, nothing to append
		}
		// Either brand new, or a replacement for a spec queued for
		// deletion above.
		np := NewProgram(spec, logger)
		c.programs = append(c.programs, np)
		if spec.StartPolicy == config.StartAuto {
			if err := np.Start(); err != nil && startErr == nil {
				startErr = fmt.Errorf("starting %s: %w", spec.Name, err)
			}
		}
	}

	c.User = file.User
	return startErr
}

// DrainDeletions removes any queued program whose children have all
// quiesced, re-enqueuing the rest for a later iteration (spec.md §4.4
// step 5).
func (c *Config) DrainDeletions(logger Logger) {
	if len(c.programDeletions) == 0 {
		return
	}
	pending := c.programDeletions
	c.programDeletions = nil

	for _, name := range pending {
		idx := -1
		for i, p := range c.programs {
			if p.Name() == name {
				idx = i
				break
			}
		}
		if idx == -1 {
			// Already removed (e.g. replaced again before quiescing).
			continue
		}
		if c.programs[idx].AllStopped() {
			c.programs = append(c.programs[:idx], c.programs[idx+1:]...)
		} else {
			c.programDeletions = append(c.programDeletions, name)
		}
	}
}
