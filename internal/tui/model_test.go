package tui

import (
	"testing"
	"time"

	"github.com/gosv-project/gosv/internal/supervisor"
)

func TestBuildRows_OneRowPerStatusBucket(t *testing.T) {
	now := time.Now()
	snapshot := []programSnapshot{
		{
			name: "web",
			children: []supervisor.ChildSnapshot{
				{PID: 1, Status: supervisor.Status{Kind: supervisor.StatusRunning, Since: now}},
				{PID: 2, Status: supervisor.Status{Kind: supervisor.StatusRunning, Since: now}},
				{PID: 3, Status: supervisor.Status{Kind: supervisor.StatusFinished, Since: now}},
			},
		},
	}

	rows := buildRows(snapshot)
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d, want 2 (one Running bucket, one Finished bucket)", len(rows))
	}
	if rows[0].statusLabel != "Running" || rows[0].count != "2/3" {
		t.Errorf("rows[0] = %+v, want Running 2/3", rows[0])
	}
	if rows[1].statusLabel != "Finished" || rows[1].count != "1/3" {
		t.Errorf("rows[1] = %+v, want Finished 1/3", rows[1])
	}
}

func TestBuildRows_NeverLaunchedProgramGetsAPlaceholderRow(t *testing.T) {
	rows := buildRows([]programSnapshot{{name: "idle"}})
	if len(rows) != 1 {
		t.Fatalf("len(rows) = %d, want 1", len(rows))
	}
	if rows[0].statusLabel != "Not launched" {
		t.Errorf("statusLabel = %q, want %q", rows[0].statusLabel, "Not launched")
	}
}

func TestBuildRows_BucketOrderIsFixed(t *testing.T) {
	now := time.Now()
	snapshot := []programSnapshot{
		{
			name: "web",
			children: []supervisor.ChildSnapshot{
				{PID: 1, Status: supervisor.Status{Kind: supervisor.StatusFinished, Since: now}},
				{PID: 2, Status: supervisor.Status{Kind: supervisor.StatusRunning, Since: now}},
				{PID: 3, Status: supervisor.Status{Kind: supervisor.StatusStopped, Since: now}},
			},
		},
	}

	rows := buildRows(snapshot)
	var order []string
	for _, r := range rows {
		order = append(order, r.statusLabel)
	}
	want := []string{"Running", "Stopped", "Finished"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}
