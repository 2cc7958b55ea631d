package supervisor

import (
	"time"

	"github.com/gosv-project/gosv/internal/config"
)

// fakeOwner is a minimal childOwner for table-driven Child tests: policy
// fields are plain values, and createChild pops the next handle off a
// queue (or errors, if the queue runs dry) so a test can script exactly
// what a respawn produces.
type fakeOwner struct {
	policy          config.RestartPolicy
	budget          config.RestartBudget
	validExitCodes  map[int]bool
	graceful        time.Duration
	minRuntime      time.Duration
	nextHandles     []ProcessHandle
	createChildErr  error
	debugCalls      int
	warnCalls       int
	lastWarnMessage string
}

func (f *fakeOwner) restartPolicy() config.RestartPolicy { return f.policy }
func (f *fakeOwner) restartBudget() config.RestartBudget { return f.budget }
func (f *fakeOwner) isValidExitCode(code int) bool       { return f.validExitCodes[code] }
func (f *fakeOwner) gracefulTimeout() time.Duration      { return f.graceful }
func (f *fakeOwner) minRuntime() time.Duration           { return f.minRuntime }

func (f *fakeOwner) createChild() (ProcessHandle, error) {
	if f.createChildErr != nil {
		return nil, f.createChildErr
	}
	if len(f.nextHandles) == 0 {
		return nil, errNoMoreHandles
	}
	h := f.nextHandles[0]
	f.nextHandles = f.nextHandles[1:]
	return h, nil
}

func (f *fakeOwner) logDebug(msg string, pid, exitCode int) { f.debugCalls++ }
func (f *fakeOwner) logWarn(msg string, err error) {
	f.warnCalls++
	f.lastWarnMessage = msg
}

var _ childOwner = (*fakeOwner)(nil)

type staticError string

func (e staticError) Error() string { return string(e) }

const errNoMoreHandles = staticError("fakeOwner: no more handles queued")
