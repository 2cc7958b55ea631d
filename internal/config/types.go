// Package config loads and validates the declarative program configuration
// consumed by the supervisor.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// RestartPolicy controls whether a finished Child is respawned.
type RestartPolicy string

const (
	RestartNever          RestartPolicy = "never"
	RestartAlways         RestartPolicy = "always"
	RestartUnexpectedExit RestartPolicy = "unexpected-exit"
)

// UnmarshalText implements encoding.TextUnmarshaler so go-toml can decode
// the lowercase, hyphenated tokens used in the config file directly.
func (p *RestartPolicy) UnmarshalText(text []byte) error {
	switch RestartPolicy(strings.ToLower(string(text))) {
	case RestartNever, "":
		*p = RestartNever
	case RestartAlways:
		*p = RestartAlways
	case RestartUnexpectedExit:
		*p = RestartUnexpectedExit
	default:
		return fmt.Errorf("unknown restart_policy %q", text)
	}
	return nil
}

// StartPolicy controls whether a Program is spawned automatically on load.
type StartPolicy string

const (
	StartAuto   StartPolicy = "auto"
	StartManual StartPolicy = "manual"
)

func (p *StartPolicy) UnmarshalText(text []byte) error {
	switch StartPolicy(strings.ToLower(string(text))) {
	case StartAuto, "":
		*p = StartAuto
	case StartManual:
		*p = StartManual
	default:
		return fmt.Errorf("unknown start_policy %q", text)
	}
	return nil
}

// RestartBudget is a tagged Unlimited/Bounded(n) replacement for the
// original's signed -1 sentinel (spec.md §9).
type RestartBudget struct {
	unlimited bool
	limit     uint32
}

// Unlimited returns a budget that never exhausts.
func Unlimited() RestartBudget { return RestartBudget{unlimited: true} }

// Bounded returns a budget that allows at most n restarts.
func Bounded(n uint32) RestartBudget { return RestartBudget{limit: n} }

// Allows reports whether one more restart is permitted given restarts
// already consumed.
func (b RestartBudget) Allows(restarts uint32) bool {
	if b.unlimited {
		return true
	}
	return restarts < b.limit
}

// UnmarshalText decodes max_restarts. go-toml/v2 hands a TextUnmarshaler
// the raw text of the value whether it was written as an integer (3, -1)
// or as a string ("-1", "unlimited"), so this is the path Load decodes
// through.
func (b *RestartBudget) UnmarshalText(text []byte) error {
	if string(text) == "-1" || strings.EqualFold(string(text), "unlimited") {
		*b = Unlimited()
		return nil
	}
	var n uint32
	if _, err := fmt.Sscanf(string(text), "%d", &n); err != nil {
		return fmt.Errorf("invalid max_restarts %q: %w", text, err)
	}
	*b = Bounded(n)
	return nil
}

// UnmarshalTOML decodes an already-parsed value: an int64 (negative means
// unlimited) or a string handed on to UnmarshalText. go-toml/v2's
// Unmarshal does not call this method; Load decodes through UnmarshalText.
func (b *RestartBudget) UnmarshalTOML(v any) error {
	switch t := v.(type) {
	case int64:
		if t < 0 {
			*b = Unlimited()
			return nil
		}
		*b = Bounded(uint32(t))
		return nil
	case string:
		return b.UnmarshalText([]byte(t))
	default:
		return fmt.Errorf("invalid max_restarts value %v", v)
	}
}

// Seconds decodes a bare TOML integer (seconds) into a time.Duration,
// matching original_source's DurationSeconds<u64> fields.
type Seconds time.Duration

func (s *Seconds) UnmarshalTOML(v any) error {
	switch t := v.(type) {
	case int64:
		*s = Seconds(time.Duration(t) * time.Second)
		return nil
	case float64:
		*s = Seconds(time.Duration(t * float64(time.Second)))
		return nil
	default:
		return fmt.Errorf("invalid duration value %v", v)
	}
}

// UnmarshalText is what go-toml/v2 calls for a Seconds field: it receives
// the raw text of the TOML number and scales it to seconds.
func (s *Seconds) UnmarshalText(text []byte) error {
	if n, err := strconv.ParseInt(string(text), 0, 64); err == nil {
		*s = Seconds(time.Duration(n) * time.Second)
		return nil
	}
	f, err := strconv.ParseFloat(string(text), 64)
	if err != nil {
		return fmt.Errorf("invalid duration value %q", text)
	}
	*s = Seconds(time.Duration(f * float64(time.Second)))
	return nil
}

func (s Seconds) Duration() time.Duration { return time.Duration(s) }

// Signal decodes a signal name (TERM, KILL, HUP, INT, ...) into a
// syscall.Signal.
type Signal syscall.Signal

var signalNames = map[string]syscall.Signal{
	"HUP":  syscall.SIGHUP,
	"INT":  syscall.SIGINT,
	"QUIT": syscall.SIGQUIT,
	"KILL": syscall.SIGKILL,
	"TERM": syscall.SIGTERM,
	"USR1": syscall.SIGUSR1,
	"USR2": syscall.SIGUSR2,
	"CONT": syscall.SIGCONT,
	"STOP": syscall.SIGSTOP,
}

func (s *Signal) UnmarshalText(text []byte) error {
	name := strings.ToUpper(strings.TrimPrefix(string(text), "SIG"))
	if name == "" {
		*s = Signal(syscall.SIGTERM)
		return nil
	}
	sig, ok := signalNames[name]
	if !ok {
		return fmt.Errorf("unknown signal %q", text)
	}
	*s = Signal(sig)
	return nil
}

func (s Signal) Syscall() syscall.Signal { return syscall.Signal(s) }

// ProgramSpec is the declarative, TOML-sourced half of a Program: every
// field here participates in the deep-equality check that drives
// reconciliation (spec.md §4.3). It deliberately carries no live state.
type ProgramSpec struct {
	Name            string        `toml:"name"`
	Command         string        `toml:"command"`
	StartPolicy     StartPolicy   `toml:"start_policy"`
	Processes       uint8         `toml:"processes"`
	MinRuntime      Seconds       `toml:"min_runtime"`
	ValidExitCodes  []int         `toml:"valid_exit_codes"`
	RestartPolicy   RestartPolicy `toml:"restart_policy"`
	MaxRestarts     RestartBudget `toml:"max_restarts"`
	ValidSignal     Signal        `toml:"valid_signal"`
	GracefulTimeout Seconds       `toml:"graceful_timeout"`
	Stdin           string        `toml:"stdin"`
	Stdout          string        `toml:"stdout"`
	Env             []string      `toml:"env"`
	Cwd             string        `toml:"cwd"`
	Umask           string        `toml:"umask"`
}

// Equal reports whether two specs are declaratively identical — the
// trigger for the reconciliation "Retain" vs "Replace" decision.
func (p ProgramSpec) Equal(other ProgramSpec) bool {
	if p.Name != other.Name || p.Command != other.Command ||
		p.StartPolicy != other.StartPolicy || p.Processes != other.Processes ||
		p.MinRuntime != other.MinRuntime || p.RestartPolicy != other.RestartPolicy ||
		p.MaxRestarts != other.MaxRestarts || p.ValidSignal != other.ValidSignal ||
		p.GracefulTimeout != other.GracefulTimeout || p.Stdin != other.Stdin ||
		p.Stdout != other.Stdout || p.Cwd != other.Cwd || p.Umask != other.Umask {
		return false
	}
	if len(p.ValidExitCodes) != len(other.ValidExitCodes) {
		return false
	}
	for i := range p.ValidExitCodes {
		if p.ValidExitCodes[i] != other.ValidExitCodes[i] {
			return false
		}
	}
	if len(p.Env) != len(other.Env) {
		return false
	}
	for i := range p.Env {
		if p.Env[i] != other.Env[i] {
			return false
		}
	}
	return true
}

// HasValidExitCode reports whether code is in the spec's accepted set.
func (p ProgramSpec) HasValidExitCode(code int) bool {
	for _, c := range p.ValidExitCodes {
		if c == code {
			return true
		}
	}
	return false
}

// File is the validated, in-memory result of loading a configuration
// document. It carries only declarative data; the supervisor wraps it
// with live Program state.
type File struct {
	User     string
	Programs []ProgramSpec
}

// ParseUmask parses an octal umask string (e.g. "022", "0027") into a
// file-mode mask.
func ParseUmask(s string) (uint32, error) {
	return parseUmask(s)
}
