package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// DefaultPath is used when the CLI is invoked with no positional argument.
const DefaultPath = "config/default.toml"

// rawProgram is the TOML decode target. Fields with a spec-mandated
// default are pointers so the loader can tell "absent" from "explicitly
// zero" (processes = 0 is a legal, non-default value per spec.md §4.2).
type rawProgram struct {
	Name            string         `toml:"name"`
	Command         string         `toml:"command"`
	StartPolicy     *StartPolicy   `toml:"start_policy"`
	Processes       *uint8         `toml:"processes"`
	MinRuntime      *Seconds       `toml:"min_runtime"`
	ValidExitCodes  []int          `toml:"valid_exit_codes"`
	RestartPolicy   *RestartPolicy `toml:"restart_policy"`
	MaxRestarts     *RestartBudget `toml:"max_restarts"`
	ValidSignal     *Signal        `toml:"valid_signal"`
	GracefulTimeout *Seconds       `toml:"graceful_timeout"`
	Stdin           string         `toml:"stdin"`
	Stdout          string         `toml:"stdout"`
	Env             []string       `toml:"env"`
	Cwd             string         `toml:"cwd"`
	Umask           string         `toml:"umask"`
}

type rawFile struct {
	User    string       `toml:"user"`
	Program []rawProgram `toml:"program"`
}

// Load reads and validates the configuration document at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	var raw rawFile
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing TOML in %s: %w", path, err)
	}

	file := &File{
		User:     raw.User,
		Programs: make([]ProgramSpec, 0, len(raw.Program)),
	}
	seen := make(map[string]bool, len(raw.Program))
	for i, rp := range raw.Program {
		spec, err := applyDefaults(rp)
		if err != nil {
			return nil, fmt.Errorf("program[%d] (%s): %w", i, rp.Name, err)
		}
		if err := validateProgram(spec); err != nil {
			return nil, fmt.Errorf("program[%d] (%s): %w", i, spec.Name, err)
		}
		if seen[spec.Name] {
			return nil, fmt.Errorf("duplicate program name %q", spec.Name)
		}
		seen[spec.Name] = true
		file.Programs = append(file.Programs, spec)
	}
	return file, nil
}

// applyDefaults fills in the field defaults spec.md §6 specifies:
// start_policy = auto, processes = 1, min_runtime = 0s, valid_exit_codes =
// [], restart_policy = never, valid_signal = TERM, graceful_timeout = 0s.
func applyDefaults(rp rawProgram) (ProgramSpec, error) {
	spec := ProgramSpec{
		Name:           rp.Name,
		Command:        rp.Command,
		ValidExitCodes: rp.ValidExitCodes,
		Stdin:          rp.Stdin,
		Stdout:         rp.Stdout,
		Env:            rp.Env,
		Cwd:            rp.Cwd,
		Umask:          rp.Umask,
	}

	if rp.StartPolicy != nil {
		spec.StartPolicy = *rp.StartPolicy
	} else {
		spec.StartPolicy = StartAuto
	}

	if rp.Processes != nil {
		spec.Processes = *rp.Processes
	} else {
		spec.Processes = 1
	}

	if rp.MinRuntime != nil {
		spec.MinRuntime = *rp.MinRuntime
	}

	if rp.RestartPolicy != nil {
		spec.RestartPolicy = *rp.RestartPolicy
	} else {
		spec.RestartPolicy = RestartNever
	}

	if rp.MaxRestarts == nil {
		return spec, fmt.Errorf("max_restarts is required")
	}
	spec.MaxRestarts = *rp.MaxRestarts

	if rp.ValidSignal != nil {
		spec.ValidSignal = *rp.ValidSignal
	} else {
		var s Signal
		_ = s.UnmarshalText(nil)
		spec.ValidSignal = s
	}

	if rp.GracefulTimeout != nil {
		spec.GracefulTimeout = *rp.GracefulTimeout
	}

	return spec, nil
}
