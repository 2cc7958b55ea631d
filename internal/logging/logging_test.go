package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNew_ParsesInitialLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, handle, err := New(&buf, "warn")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if handle.Level() != zerolog.WarnLevel {
		t.Fatalf("Level() = %v, want WarnLevel", handle.Level())
	}

	logger.Info().Msg("should be filtered")
	logger.Warn().Msg("should appear")
	if strings.Contains(buf.String(), "should be filtered") {
		t.Error("info-level message was not filtered at warn level")
	}
	if !strings.Contains(buf.String(), "should appear") {
		t.Error("warn-level message did not appear")
	}
}

func TestNew_UnknownLevelIsAnError(t *testing.T) {
	if _, _, err := New(&bytes.Buffer{}, "not-a-level"); err == nil {
		t.Fatal("New: expected an error for an unknown level name")
	}
}

func TestLevelHandle_SetChangesFiltering(t *testing.T) {
	var buf bytes.Buffer
	_, handle, err := New(&buf, "error")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	handle.Logger().Info().Msg("filtered at error level")
	if strings.Contains(buf.String(), "filtered at error level") {
		t.Fatal("expected info message to be filtered at error level")
	}

	if err := handle.Set("info"); err != nil {
		t.Fatalf("Set(info): %v", err)
	}
	handle.Logger().Info().Msg("now visible")
	if !strings.Contains(buf.String(), "now visible") {
		t.Fatal("expected info message to appear after Set(info)")
	}
}

func TestProgramLogger_Debugw(t *testing.T) {
	var buf bytes.Buffer
	_, handle, err := New(&buf, "debug")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	pl := ProgramLogger{Handle: handle}
	pl.Debugw("child process finished", "name", "web", "pid", 123, "exit_code", 0)

	out := buf.String()
	for _, want := range []string{`"name":"web"`, `"pid":123`, `"exit_code":0`} {
		if !strings.Contains(out, want) {
			t.Errorf("log output %q missing field %q", out, want)
		}
	}
}
