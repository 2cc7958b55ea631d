package supervisor

import (
	"time"

	"github.com/gosv-project/gosv/internal/config"
)

// StatusKind is the tag of Child's status union (spec.md §9: a tagged
// variant with per-state timestamps, not a class hierarchy).
type StatusKind int

const (
	StatusStopped StatusKind = iota
	StatusFinished
	StatusTerminating
	StatusStarting
	StatusRunning
)

func (k StatusKind) String() string {
	switch k {
	case StatusStopped:
		return "Stopped"
	case StatusFinished:
		return "Finished"
	case StatusTerminating:
		return "Terminating"
	case StatusStarting:
		return "Starting"
	case StatusRunning:
		return "Running"
	default:
		return "Unknown"
	}
}

// Status is the tagged union over Child's lifecycle states, each carrying
// the instant of its last transition (spec.md §3).
type Status struct {
	Kind     StatusKind
	Since    time.Time
	ExitCode int // meaningful only when Kind == StatusFinished
}

func startingStatus(now time.Time) Status { return Status{Kind: StatusStarting, Since: now} }

// Quiescent reports whether this status is Stopped or Finished — the
// condition deletion and all_stopped() wait for.
func (s Status) Quiescent() bool {
	return s.Kind == StatusStopped || s.Kind == StatusFinished
}

// Child wraps one OS process slot: its handle, status, and restart count
// (spec.md §3).
type Child struct {
	handle   ProcessHandle
	status   Status
	restarts uint32

	now func() time.Time
}

// newChild wraps a freshly started handle in Starting status with a zero
// restart count, per spec.md §4.2's start().
func newChild(handle ProcessHandle, now func() time.Time) *Child {
	if now == nil {
		now = time.Now
	}
	return &Child{handle: handle, status: startingStatus(now()), now: now}
}

// Status returns the child's current status.
func (c *Child) Status() Status { return c.status }

// Restarts returns the number of auto-respawns that replaced the process
// in this slot.
func (c *Child) Restarts() uint32 { return c.restarts }

// PID returns the child's current process ID.
func (c *Child) PID() int { return c.handle.Pid() }

// respawnThrottle is the hard 1-second minimum delay between a child's
// exit and its replacement (spec.md §9 "Respawn throttle").
const respawnThrottle = time.Second

// tick advances status by one reconciliation step, in the fixed order
// spec.md §4.1 mandates: observed exit, respawn gate, graceful
// escalation, runtime promotion. owner supplies policy and constructs any
// replacement process. Returns an error only for a fatal spawn failure
// during a respawn (spec.md §7's "Fatal tick").
func (c *Child) tick(owner childOwner) error {
	c.observeExit(owner)

	if err := c.maybeRespawn(owner); err != nil {
		return err
	}

	c.maybeEscalate(owner)
	c.maybePromote(owner)
	return nil
}

// observeExit is step 1: if try_wait yields an exit status and we aren't
// already Finished, transition to Finished. try_wait errors are logged
// and swallowed, leaving status unchanged.
func (c *Child) observeExit(owner childOwner) {
	if c.status.Kind == StatusFinished {
		return
	}
	res, err := c.handle.TryWait()
	if err != nil {
		owner.logWarn("try_wait failed, leaving status unchanged", err)
		return
	}
	if res == nil {
		return
	}
	owner.logDebug("child process finished", c.handle.Pid(), res.Code)
	c.status = Status{Kind: StatusFinished, Since: c.now(), ExitCode: res.Code}
}

// maybeRespawn is step 2: the respawn gate. The 1-second throttle and the
// restart-policy/budget checks are part of the documented contract, not
// incidental implementation detail (spec.md §4.1, §9).
func (c *Child) maybeRespawn(owner childOwner) error {
	if c.status.Kind != StatusFinished {
		return nil
	}
	if c.now().Sub(c.status.Since) < respawnThrottle {
		return nil
	}

	policy := owner.restartPolicy()
	switch policy {
	case config.RestartNever:
		return nil
	case config.RestartAlways:
		if !owner.restartBudget().Allows(c.restarts) {
			return nil
		}
	case config.RestartUnexpectedExit:
		if owner.isValidExitCode(c.status.ExitCode) {
			return nil
		}
		if !owner.restartBudget().Allows(c.restarts) {
			return nil
		}
	default:
		return nil
	}

	handle, err := owner.createChild()
	if err != nil {
		return err
	}
	owner.logDebug("restarting a finished child", handle.Pid(), c.status.ExitCode)
	c.restarts++
	c.handle = handle
	c.status = startingStatus(c.now())
	return nil
}

// maybeEscalate is step 3: graceful escalation on timeout.
func (c *Child) maybeEscalate(owner childOwner) {
	if c.status.Kind != StatusTerminating {
		return
	}
	if c.now().Sub(c.status.Since) <= owner.gracefulTimeout() {
		return
	}
	owner.logWarn("graceful shutdown timeout, killing the child", nil)
	c.kill(owner)
}

// maybePromote is step 4: runtime promotion once min_runtime has elapsed.
func (c *Child) maybePromote(owner childOwner) {
	if c.status.Kind != StatusStarting {
		return
	}
	if c.now().Sub(c.status.Since) <= owner.minRuntime() {
		return
	}
	c.status = Status{Kind: StatusRunning, Since: c.now()}
}

// kill force-terminates the child if it is Starting, Running or
// Terminating (the graceful-escalation case); on a quiescent child it is a
// no-op. Kill errors are logged through owner, never
// propagated — the state machine must not deadlock on a recalcitrant
// process (spec.md §4.1, §7's "Swallowed" category).
func (c *Child) kill(owner childOwner) {
	if c.status.Quiescent() {
		return
	}
	if err := c.handle.Kill(); err != nil {
		owner.logWarn("killing child process", err)
	}
	c.status = Status{Kind: StatusStopped, Since: c.now()}
}

// stop sends signal for a graceful shutdown if the child is Starting or
// Running; any other status is a no-op. Status only advances to
// Terminating; it never jumps straight to Stopped from here. Signal-send
// errors are logged through owner, never propagated (spec.md §4.1, §7).
func (c *Child) stop(owner childOwner, signal func(ProcessHandle) error) {
	if c.status.Kind != StatusStarting && c.status.Kind != StatusRunning {
		return
	}
	if err := signal(c.handle); err != nil {
		owner.logWarn("sending stop signal to child process", err)
	}
	c.status = Status{Kind: StatusTerminating, Since: c.now()}
}

// lastUpdate returns the instant of the child's last status transition,
// used by Program.tick's slot-eviction debounce.
func (c *Child) lastUpdate() time.Time { return c.status.Since }
