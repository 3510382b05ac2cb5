package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// View renders the entire TUI
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	sections := []string{
		m.renderHeader(),
		m.renderCurrentPanel(),
		m.renderTasksPanel(),
		m.renderLogsPanel(),
	}

	if m.showHelp {
		sections = append(sections, m.renderHelp())
	} else {
		sections = append(sections, helpStyle.Render("q quit • ? help • ctrl+l clear log"))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *Model) renderHeader() string {
	status := m.spinner.View() + " harvesting"
	if m.allDone {
		status = successStyle.Render("✓ done")
	}
	successes, failures := m.Totals()
	return headerStyle.Render(fmt.Sprintf("imgharvest  %s  %s %s  %s %s  %s %s",
		status,
		statsLabelStyle.Render("saved"), statsValueStyle.Render(FormatCount(successes)),
		statsLabelStyle.Render("failed"), statsValueStyle.Render(FormatCount(failures)),
		statsLabelStyle.Render("session"), statsValueStyle.Render(formatDuration(time.Since(m.sessionStartTime))),
	))
}

// renderCurrentPanel shows the progress bar of the task that emitted last
func (m *Model) renderCurrentPanel() string {
	title := titleStyle.Render(" CURRENT TASK ")
	tv := m.Current()
	if tv == nil {
		return panelStyle.Width(m.panelWidth()).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, dimStyle.Render("waiting for tasks")),
		)
	}

	info := fmt.Sprintf("%s %s %s",
		tv.Name,
		StateStyle(tv.State).Render(tv.State.String()),
		dimStyle.Render(fmt.Sprintf("%d/%d", tv.Progress, tv.Workload)),
	)
	return panelStyle.Width(m.panelWidth()).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, info, m.progress.ViewAs(tv.Fraction())),
	)
}

// renderTasksPanel lists every task seen so far
func (m *Model) renderTasksPanel() string {
	title := titleStyle.Render(" TASKS ")
	tasks := m.Tasks()
	if len(tasks) == 0 {
		return ""
	}

	start := len(tasks) - 5
	if start < 0 {
		start = 0
	}

	var items []string
	if start > 0 {
		items = append(items, dimStyle.Render(fmt.Sprintf("... %d earlier", start)))
	}
	for _, tv := range tasks[start:] {
		line := fmt.Sprintf("%s %s", StateStyle(tv.State).Render(fmt.Sprintf("%-11s", tv.State)), tv.Name)
		if tv.Finished {
			line += dimStyle.Render(fmt.Sprintf("  %d saved, %d failed, %s", tv.Successes, tv.Failures, formatDuration(tv.Elapsed)))
		}
		items = append(items, line)
	}

	return panelStyle.Width(m.panelWidth()).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, lipgloss.JoinVertical(lipgloss.Left, items...)),
	)
}

// renderLogsPanel renders the tail of the log that fits the window
func (m *Model) renderLogsPanel() string {
	title := titleStyle.Render(" LOG ")

	rows := m.height - 16
	if rows < 5 {
		rows = 5
	}
	start := len(m.logMessages) - rows
	if start < 0 {
		start = 0
	}

	maxMsgLen := m.panelWidth() - 30
	var logs []string
	for _, log := range m.logMessages[start:] {
		timestamp := logTimestampStyle.Render(log.Time.Format("15:04:05"))
		level := lipgloss.NewStyle().Foreground(log.Color).Bold(true).Render(fmt.Sprintf("[%-8s]", log.Level))
		logs = append(logs, fmt.Sprintf("%s %s %s", timestamp, level, logMessageStyle.Render(truncate(log.Message, maxMsgLen))))
	}

	content := strings.Join(logs, "\n")
	if content == "" {
		content = dimStyle.Render("No log lines yet...")
	}

	return panelStyle.Width(m.panelWidth()).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, content),
	)
}

func (m *Model) renderHelp() string {
	help := `  q/Q, ctrl+c  stop the running task and quit
  ?            toggle this help
  ctrl+l       clear the log

  ` + successStyle.Render("completed") + `  ` + warningStyle.Render("interrupted") + `  ` + errorStyle.Render("failed")
	return panelStyle.Width(m.panelWidth()).Render(help)
}

func (m *Model) panelWidth() int {
	w := m.width - 2
	if w < 20 {
		w = 20
	}
	return w
}

func truncate(s string, max int) string {
	if max < 4 {
		max = 4
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}

// formatDuration formats a duration as mm:ss or hh:mm:ss
func formatDuration(d time.Duration) string {
	if d < 0 {
		return "00:00"
	}

	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60

	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
