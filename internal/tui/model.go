package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/gosv-project/gosv/internal/procinfo"
	"github.com/gosv-project/gosv/internal/supervisor"
)

// row is one status-bucket line for a program, matching
// original_source's status_global aggregation: one row per distinct
// status present among a program's children, counted and timestamped.
type row struct {
	programName string
	statusLabel string
	count       string
	since       string
	samplePID   int
}

// programsMsg is how the supervisor loop hands the model a fresh
// snapshot, the Go analogue of the external TUI's draw(programs).
type programsMsg struct {
	snapshot []programSnapshot
}

type programSnapshot struct {
	name     string
	children []supervisor.ChildSnapshot
}

// snapshotPrograms builds the TUI-facing view of a []*Program without
// letting the model reach into Program internals beyond its exported
// snapshot accessor.
func snapshotPrograms(programs []*supervisor.Program) []programSnapshot {
	out := make([]programSnapshot, len(programs))
	for i, p := range programs {
		out[i] = programSnapshot{name: p.Name(), children: p.Children()}
	}
	return out
}

type model struct {
	table    table.Model
	detail   string
	showHelp bool
	rows     []row
	commands chan<- supervisor.Command
	width    int
}

func newModel(commands chan<- supervisor.Command) model {
	columns := []table.Column{
		{Title: "Program", Width: 16},
		{Title: "Status", Width: 14},
		{Title: "Count", Width: 8},
		{Title: "Since", Width: 12},
	}
	t := table.New(table.WithColumns(columns), table.WithFocused(true), table.WithHeight(12))
	s := table.DefaultStyles()
	s.Header = s.Header.BorderStyle(lipgloss.NormalBorder()).BorderBottom(true).Bold(true)
	s.Selected = s.Selected.Foreground(lipgloss.Color("229")).Background(lipgloss.Color("57"))
	t.SetStyles(s)

	return model{table: t, commands: commands, width: 80}
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.table.SetWidth(msg.Width - 4)
		return m, nil
	case programsMsg:
		m.rows = buildRows(msg.snapshot)
		m.table.SetRows(toTableRows(m.rows))
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.send(supervisor.Command{Kind: supervisor.CmdQuit})
	case "s":
		m.send(supervisor.Command{Kind: supervisor.CmdStart, Name: m.selectedName()})
	case "x":
		m.send(supervisor.Command{Kind: supervisor.CmdStop, Name: m.selectedName()})
	case "r":
		m.send(supervisor.Command{Kind: supervisor.CmdRestart, Name: m.selectedName()})
	case "R":
		m.send(supervisor.Command{Kind: supervisor.CmdReload})
	case "i":
		m.toggleDetail()
	case "?":
		m.showHelp = !m.showHelp
	default:
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m model) send(cmd supervisor.Command) {
	select {
	case m.commands <- cmd:
	default:
		// Drop the keypress rather than block the UI goroutine; the
		// supervisor loop polls frequently enough that this only
		// happens under a burst of repeated keys.
	}
}

func (m model) selectedName() string {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.rows) {
		return ""
	}
	return m.rows[idx].programName
}

func (m *model) toggleDetail() {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.rows) {
		m.detail = ""
		return
	}
	if m.detail != "" {
		m.detail = ""
		return
	}
	pid := m.rows[idx].samplePID
	if pid == 0 {
		m.detail = "no live process for this row"
		return
	}
	info, err := procinfo.Read(pid)
	if err != nil {
		m.detail = fmt.Sprintf("inspect pid %d: %v", pid, err)
		return
	}
	m.detail = info.String()
}

func (m model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("gosv — process supervisor"))
	b.WriteString("\n\n")
	b.WriteString(m.table.View())
	b.WriteString("\n")
	if m.detail != "" {
		b.WriteString(detailBox.Render(m.detail))
		b.WriteString("\n")
	}
	if m.showHelp {
		b.WriteString(helpStyle.Render(
			"s start · x stop · r restart · R reload · i inspect · q quit"))
	} else {
		b.WriteString(helpStyle.Render("? for help"))
	}
	return b.String()
}

// buildRows aggregates each program's children by status bucket, the Go
// equivalent of original_source's status_global: one row per status
// present, in Running/Starting/Terminating/Stopped/Finished order, and a
// single "Not launched" row for a program with no children at all.
func buildRows(snapshot []programSnapshot) []row {
	order := []supervisor.StatusKind{
		supervisor.StatusRunning,
		supervisor.StatusStarting,
		supervisor.StatusTerminating,
		supervisor.StatusStopped,
		supervisor.StatusFinished,
	}

	var rows []row
	for _, p := range snapshot {
		added := false
		for _, kind := range order {
			var (
				count     int
				latest    time.Time
				samplePID int
			)
			for _, c := range p.children {
				if c.Status.Kind != kind {
					continue
				}
				count++
				if c.Status.Since.After(latest) {
					latest = c.Status.Since
					samplePID = c.PID
				}
			}
			if count == 0 {
				continue
			}
			added = true
			rows = append(rows, row{
				programName: p.name,
				statusLabel: kind.String(),
				count:       fmt.Sprintf("%d/%d", count, len(p.children)),
				since:       sinceString(latest),
				samplePID:   samplePID,
			})
		}
		if !added {
			rows = append(rows, row{
				programName: p.name,
				statusLabel: "Not launched",
				count:       "0/0",
				since:       "-",
			})
		}
	}
	return rows
}

func sinceString(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return time.Since(t).Truncate(time.Second).String()
}

func toTableRows(rows []row) []table.Row {
	out := make([]table.Row, len(rows))
	for i, r := range rows {
		label := lipgloss.NewStyle().Foreground(statusColor(r.statusLabel)).Render(r.statusLabel)
		out[i] = table.Row{r.programName, label, r.count, r.since}
	}
	return out
}
