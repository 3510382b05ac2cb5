package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"imgharvest/pkg/journal"
)

// EntryMsg carries one journal entry into the program
type EntryMsg journal.Entry

// TaskDoneMsg is sent when a task reaches its terminal state
type TaskDoneMsg struct {
	ID        string
	Name      string
	State     journal.State
	Successes int
	Failures  int
	Elapsed   time.Duration
}

// AllDoneMsg is sent when no more tasks will run
type AllDoneMsg struct{}

// TickMsg is sent periodically to update the UI
type TickMsg time.Time

// Update handles all messages and updates the model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = progressWidth(msg.Width)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case TickMsg:
		if m.allDone {
			return m, nil
		}
		return m, tickCmd()

	case EntryMsg:
		m.AddEntry(journal.Entry(msg))
		return m, nil

	case TaskDoneMsg:
		m.FinishTask(msg)
		return m, nil

	case AllDoneMsg:
		m.allDone = true
		m.AddLogMessage(0, "INFO", "all tasks finished, press q to exit")
		return m, nil
	}

	return m, nil
}

// handleKeyPress handles keyboard input
func (m *Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "Q", "ctrl+c":
		if m.onQuit != nil {
			m.onQuit()
			m.onQuit = nil
		}
		return m, tea.Quit

	case "?":
		m.showHelp = !m.showHelp
		return m, nil

	case "ctrl+l":
		m.logMessages = nil
		return m, nil
	}

	return m, nil
}

func progressWidth(total int) int {
	w := total - 30
	if w < 10 {
		w = 10
	}
	if w > 80 {
		w = 80
	}
	return w
}

// tickCmd returns a command that sends a tick message
func tickCmd() tea.Cmd {
	return tea.Tick(time.Millisecond*250, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}
