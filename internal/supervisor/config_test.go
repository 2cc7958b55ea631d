package supervisor

import (
	"testing"

	"github.com/gosv-project/gosv/internal/config"
)

func fileWith(specs ...config.ProgramSpec) *config.File {
	return &config.File{Programs: specs}
}

func manualSpec(name, command string) config.ProgramSpec {
	var sig config.Signal
	_ = sig.UnmarshalText([]byte("TERM"))
	return config.ProgramSpec{
		Name:          name,
		Command:       command,
		StartPolicy:   config.StartManual,
		Processes:     1,
		RestartPolicy: config.RestartNever,
		MaxRestarts:   config.Bounded(0),
		ValidSignal:   sig,
	}
}

func autoSpec(name, command string) config.ProgramSpec {
	spec := manualSpec(name, command)
	spec.StartPolicy = config.StartAuto
	return spec
}

// recordingLogger counts Warnw calls, for asserting that a failure was
// logged rather than left silent.
type recordingLogger struct{ warnCalls *int }

func newRecordingLogger() recordingLogger { return recordingLogger{warnCalls: new(int)} }
func (r recordingLogger) Debugw(string, ...any) {}
func (r recordingLogger) Warnw(string, ...any)  { *r.warnCalls++ }

// TestConfig_NewConfigAutoStartFailureIsRecoverable exercises spec.md §7:
// one misconfigured auto-start program's start failure is logged, not
// fatal, and must not prevent the remaining programs in the file from
// starting.
func TestConfig_NewConfigAutoStartFailureIsRecoverable(t *testing.T) {
	logger := newRecordingLogger()
	broken := autoSpec("broken", "") // empty command: createChild always errors
	fine := autoSpec("fine", "/bin/true")

	cfg := NewConfig(fileWith(broken, fine), nil, logger)

	if *logger.warnCalls == 0 {
		t.Fatal("expected the broken program's auto-start failure to be logged")
	}
	if cfg.Find("broken") == nil {
		t.Fatal("broken program should still be present in the live config, just unstarted")
	}
	if len(cfg.Find("broken").Children()) != 0 {
		t.Fatalf("broken program has %d children, want 0 after a failed auto-start", len(cfg.Find("broken").Children()))
	}
	if len(cfg.Find("fine").Children()) != 1 {
		t.Fatalf("fine program has %d children, want 1 (must still auto-start despite broken's failure)", len(cfg.Find("fine").Children()))
	}
}

func TestConfig_FindAndAllStopped(t *testing.T) {
	cfg := NewConfig(fileWith(manualSpec("a", "/bin/true"), manualSpec("b", "/bin/true")), nil, nopLogger{})
	if cfg.Find("a") == nil {
		t.Fatal("Find(a) = nil")
	}
	if cfg.Find("nope") != nil {
		t.Fatal("Find(nope) should be nil")
	}
	if !cfg.AllStopped() {
		t.Fatal("AllStopped() = false for programs that were never started")
	}
}

// TestConfig_Update_ReconciliationScenario exercises spec.md §8 scenario 5:
// an unchanged program's live children survive reconciliation, a changed
// program is stopped and queued for deletion, an absent program is queued
// for deletion, and a new program is appended.
func TestConfig_Update_ReconciliationScenario(t *testing.T) {
	initial := fileWith(
		manualSpec("a", "/bin/true"),
		manualSpec("b", "/bin/true"),
		manualSpec("c", "/bin/true"),
	)
	cfg := NewConfig(initial, nil, nopLogger{})
	for _, name := range []string{"a", "b", "c"} {
		if err := cfg.Find(name).Start(); err != nil {
			t.Fatalf("Start(%s): %v", name, err)
		}
	}
	aBefore := cfg.Find("a")

	updated := fileWith(
		manualSpec("a", "/bin/true"), // unchanged
		manualSpec("b", "/bin/false"), // changed command
		manualSpec("d", "/bin/true"), // new; c is now absent
	)
	if err := cfg.Update(updated, nopLogger{}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	if cfg.Find("a") != aBefore {
		t.Fatal("unchanged program a was replaced by Update")
	}
	if cfg.Find("d") == nil {
		t.Fatal("new program d was not added by Update")
	}
	bAfter := cfg.Find("b")
	if bAfter == nil {
		t.Fatal("replaced program b is missing after Update")
	}
	if bAfter.Spec().Command != "/bin/false" {
		t.Fatalf("b's command = %q, want /bin/false", bAfter.Spec().Command)
	}

	// c and the old b incarnation are queued for deferred deletion, not
	// removed outright, until their children quiesce.
	if len(cfg.programDeletions) != 2 {
		t.Fatalf("len(programDeletions) = %d, want 2 (old b + c)", len(cfg.programDeletions))
	}
}

func TestConfig_Update_RetainSkipsIdenticalSpec(t *testing.T) {
	initial := fileWith(manualSpec("a", "/bin/true"))
	cfg := NewConfig(initial, nil, nopLogger{})
	before := cfg.Find("a")

	if err := cfg.Update(fileWith(manualSpec("a", "/bin/true")), nopLogger{}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if cfg.Find("a") != before {
		t.Fatal("an identical spec should retain the same live Program")
	}
	if len(cfg.programDeletions) != 0 {
		t.Fatalf("len(programDeletions) = %d, want 0 for a no-op reload", len(cfg.programDeletions))
	}
}
