package supervisor

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gosv-project/gosv/internal/config"
)

// childOwner is the slice of Program a Child needs to evaluate policy and
// construct replacement processes, kept narrow so Child stays testable
// without a full Program.
type childOwner interface {
	restartPolicy() config.RestartPolicy
	restartBudget() config.RestartBudget
	isValidExitCode(code int) bool
	gracefulTimeout() time.Duration
	minRuntime() time.Duration
	createChild() (ProcessHandle, error)
	logDebug(msg string, pid, exitCode int)
	logWarn(msg string, err error)
}

// Logger is the narrow logging surface Program needs; internal/logging's
// ProgramLogger satisfies it.
type Logger interface {
	Debugw(msg string, keysAndValues ...any)
	Warnw(msg string, keysAndValues ...any)
}

// Program owns a vector of Child slots and the declarative spec that
// governs them (spec.md §3, §4.2).
type Program struct {
	spec config.ProgramSpec

	mu     sync.Mutex
	childs []*Child

	now    func() time.Time
	logger Logger
}

// NewProgram constructs a Program with no live children, ready for
// start().
func NewProgram(spec config.ProgramSpec, logger Logger) *Program {
	return &Program{spec: spec, now: time.Now, logger: logger}
}

// Name returns the program's declarative name.
func (p *Program) Name() string { return p.spec.Name }

// Spec returns the program's current declarative spec (for
// reconciliation comparisons).
func (p *Program) Spec() config.ProgramSpec { return p.spec }

// StartPolicy returns whether the program should be auto-started on load.
func (p *Program) StartPolicy() config.StartPolicy { return p.spec.StartPolicy }

func (p *Program) restartPolicy() config.RestartPolicy { return p.spec.RestartPolicy }
func (p *Program) restartBudget() config.RestartBudget { return p.spec.MaxRestarts }
func (p *Program) isValidExitCode(code int) bool       { return p.spec.HasValidExitCode(code) }
func (p *Program) gracefulTimeout() time.Duration      { return p.spec.GracefulTimeout.Duration() }
func (p *Program) minRuntime() time.Duration           { return p.spec.MinRuntime.Duration() }

func (p *Program) logDebug(msg string, pid, exitCode int) {
	if p.logger == nil {
		return
	}
	p.logger.Debugw(msg, "name", p.spec.Name, "pid", pid, "exit_code", exitCode)
}

func (p *Program) logWarn(msg string, err error) {
	if p.logger == nil {
		return
	}
	if err != nil {
		p.logger.Warnw(msg, "name", p.spec.Name, "error", err.Error())
		return
	}
	p.logger.Warnw(msg, "name", p.spec.Name)
}

// Start spawns new OS processes until len(childs) == processes. Existing
// running children are untouched, so start() at steady state is a no-op
// (spec.md §4.2, §8 round-trip property). A processes value of zero
// means the program owns nothing and start() does nothing.
func (p *Program) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for len(p.childs) < int(p.spec.Processes) {
		handle, err := p.createChild()
		if err != nil {
			return fmt.Errorf("starting %s: %w", p.spec.Name, err)
		}
		p.childs = append(p.childs, newChild(handle, p.now))
	}
	return nil
}

// Stop sends valid_signal to every non-quiescent child.
func (p *Program) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range p.childs {
		c.stop(p, func(h ProcessHandle) error { return h.Signal(p.spec.ValidSignal.Syscall()) })
	}
}

// Kill force-terminates every non-quiescent child, including those still
// Terminating.
func (p *Program) Kill() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range p.childs {
		c.kill(p)
	}
}

// Restart stops the program now; the tick loop reaps the finished
// children and restart_policy governs whether they come back. Under
// restart_policy = never this still just stops the program (spec.md §9
// open question: resolved here as "plain stop", see DESIGN.md).
func (p *Program) Restart() {
	p.Stop()
}

// slotEvictionDebounce is how long a Stopped child lingers in the slot
// before Program.tick drops it, giving the TUI one render of the
// transition (spec.md §4.2).
const slotEvictionDebounce = 200 * time.Millisecond

// Tick calls Child.tick on every child, then evicts any child whose
// status is Stopped and whose last update is older than the debounce.
func (p *Program) Tick() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, c := range p.childs {
		if err := c.tick(p); err != nil {
			return fmt.Errorf("ticking %s: %w", p.spec.Name, err)
		}
	}

	kept := p.childs[:0]
	now := p.now()
	for _, c := range p.childs {
		if c.status.Kind == StatusStopped && now.Sub(c.lastUpdate()) > slotEvictionDebounce {
			continue
		}
		kept = append(kept, c)
	}
	p.childs = kept
	return nil
}

// AllStopped reports whether every child is Stopped or Finished — the
// quiescence condition deletion and shutdown wait for.
func (p *Program) AllStopped() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range p.childs {
		if !c.status.Quiescent() {
			return false
		}
	}
	return true
}

// Children returns a snapshot of the program's child statuses, for
// rendering.
func (p *Program) Children() []ChildSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]ChildSnapshot, len(p.childs))
	for i, c := range p.childs {
		out[i] = ChildSnapshot{PID: c.PID(), Status: c.Status(), Restarts: c.Restarts()}
	}
	return out
}

// ChildSnapshot is an immutable view of one Child, safe to hand to the TUI.
type ChildSnapshot struct {
	PID      int
	Status   Status
	Restarts uint32
}

// createChild constructs a fresh OS process honoring cwd, env, stdio
// redirection, and umask (spec.md §4.2). Adapted from the teacher's
// Process.Start: Setpgid-based process-group creation is preserved so
// stop/kill can target the whole group.
func (p *Program) createChild() (ProcessHandle, error) {
	fields := strings.Fields(p.spec.Command)
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty command for program %s", p.spec.Name)
	}

	cmd := exec.Command(fields[0], fields[1:]...)
	if p.spec.Cwd != "" {
		cmd.Dir = p.spec.Cwd
	}
	if len(p.spec.Env) > 0 {
		cmd.Env = append(os.Environ(), p.spec.Env...)
	}

	stdin, stdout, err := p.openStdio()
	if err != nil {
		return nil, err
	}
	if stdin != nil {
		cmd.Stdin = stdin
	}
	cmd.Stdout = stdout
	cmd.Stderr = stdout

	if p.spec.Umask != "" {
		mask, err := config.ParseUmask(p.spec.Umask)
		if err != nil {
			return nil, err
		}
		return startProcessWithUmask(cmd, mask)
	}
	return startProcess(cmd)
}

// openStdio resolves the stdin/stdout file redirections spec.md §4.2
// describes: stdin read-only if set else discarded, stdout (and stderr,
// which follows stdout) appended/created if set else discarded.
func (p *Program) openStdio() (stdin, stdout *os.File, err error) {
	if p.spec.Stdin != "" {
		stdin, err = os.Open(p.spec.Stdin)
		if err != nil {
			return nil, nil, fmt.Errorf("opening stdin %s: %w", p.spec.Stdin, err)
		}
	}

	if p.spec.Stdout != "" {
		stdout, err = os.OpenFile(p.spec.Stdout, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("opening stdout %s: %w", p.spec.Stdout, err)
		}
	} else {
		stdout, err = os.OpenFile(os.DevNull, os.O_WRONLY, 0)
		if err != nil {
			return nil, nil, err
		}
	}
	return stdin, stdout, nil
}

// startProcessWithUmask applies mask for the narrow window around
// cmd.Start, then restores the supervisor's own umask immediately. Go's
// os/exec offers no portable per-child umask primitive, so this mutex
// serializes child creation across the whole supervisor whenever any
// program declares a umask — documented as a known limitation in
// DESIGN.md rather than silently dropped.
var umaskMu sync.Mutex

func startProcessWithUmask(cmd *exec.Cmd, mask uint32) (*osProcessHandle, error) {
	umaskMu.Lock()
	defer umaskMu.Unlock()
	old := syscall.Umask(int(mask))
	defer syscall.Umask(old)
	return startProcess(cmd)
}
