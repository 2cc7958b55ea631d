// Package procinfo reads a short status summary for a PID out of procfs,
// backing the supervisor's live-inspection detail panel (spec.md §1).
// It is read-only: it never changes a process's resource limits, and so
// doesn't touch the "dynamic resource limits" the spec places out of scope.
package procinfo

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Info is a short procfs snapshot for one PID.
type Info struct {
	PID     int
	Name    string
	State   string
	Threads int
	VmRSSKB int64
	OpenFDs int
}

// Read gathers Info for pid from /proc/[pid]/status and /proc/[pid]/fd.
// It returns an error if the process no longer exists — a normal,
// expected condition right after a child exits, not a supervisor fault.
func Read(pid int) (*Info, error) {
	procPath := fmt.Sprintf("/proc/%d", pid)
	if _, err := os.Stat(procPath); err != nil {
		return nil, fmt.Errorf("process %d not found: %w", pid, err)
	}

	info := &Info{PID: pid}
	if err := info.readStatus(procPath); err != nil {
		return nil, err
	}
	info.OpenFDs = countFDs(procPath)
	return info, nil
}

func (info *Info) readStatus(procPath string) error {
	data, err := os.ReadFile(filepath.Join(procPath, "status"))
	if err != nil {
		return err
	}

	for _, line := range strings.Split(string(data), "\n") {
		key, val, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		val = strings.TrimSpace(val)

		switch key {
		case "Name":
			info.Name = val
		case "State":
			info.State = val
		case "Threads":
			info.Threads, _ = strconv.Atoi(val)
		case "VmRSS":
			fields := strings.Fields(val)
			if len(fields) > 0 {
				info.VmRSSKB, _ = strconv.ParseInt(fields[0], 10, 64)
			}
		}
	}
	return nil
}

func countFDs(procPath string) int {
	entries, err := os.ReadDir(filepath.Join(procPath, "fd"))
	if err != nil {
		return 0
	}
	return len(entries)
}

// String renders a one-line summary for the TUI detail panel.
func (info *Info) String() string {
	return fmt.Sprintf("pid=%d state=%s threads=%d rss=%dKB fds=%d",
		info.PID, info.State, info.Threads, info.VmRSSKB, info.OpenFDs)
}
