package config

import "fmt"

// validateProgram enforces the structural constraints spec.md leaves to
// the loader: a name and command must be present, and processes must fit
// the documented 1..=255 range, except that 0 is explicitly legal (an
// owns-nothing program, spec.md §4.2 edge cases).
func validateProgram(p ProgramSpec) error {
	if p.Name == "" {
		return fmt.Errorf("program name must not be empty")
	}
	if p.Command == "" {
		return fmt.Errorf("command must not be empty")
	}
	// Processes is a uint8, so it is already bounded to 0..=255; nothing
	// further to check beyond that range being the documented one.
	if p.Umask != "" {
		if _, err := parseUmask(p.Umask); err != nil {
			return fmt.Errorf("invalid umask %q: %w", p.Umask, err)
		}
	}
	return nil
}

func parseUmask(s string) (uint32, error) {
	var n uint32
	_, err := fmt.Sscanf(s, "%o", &n)
	if err != nil {
		return 0, err
	}
	if n > 0o777 {
		return 0, fmt.Errorf("umask out of range")
	}
	return n, nil
}
