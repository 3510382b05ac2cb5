package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	humanize "github.com/dustin/go-humanize"

	"imgharvest/pkg/journal"
)

// TaskView is the rendered state of one task
type TaskView struct {
	ID        string
	Name      string
	State     journal.State
	Progress  int
	Workload  int
	Successes int
	Failures  int
	Elapsed   time.Duration
	Finished  bool
	LastEntry time.Time
}

// Fraction returns progress as a value in [0, 1]
func (t *TaskView) Fraction() float64 {
	if t.Workload <= 0 {
		return 0
	}
	f := float64(t.Progress) / float64(t.Workload)
	if f > 1 {
		f = 1
	}
	return f
}

// LogMessage represents a log entry
type LogMessage struct {
	Time    time.Time
	Seq     uint64
	Level   string
	Message string
	Color   lipgloss.Color
}

// Model is the bubbletea model of the live journal view
type Model struct {
	spinner  spinner.Model
	progress progress.Model

	tasks   map[string]*TaskView
	order   []string
	current string

	sessionStartTime time.Time
	allDone          bool

	width          int
	height         int
	showHelp       bool
	logMessages    []LogMessage
	maxLogMessages int

	onQuit func()
}

// NewModel creates a model. onQuit runs once when the user quits.
func NewModel(onQuit func()) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(neonCyan)

	p := progress.New(progress.WithDefaultGradient())
	p.Width = 40

	return &Model{
		spinner:          s,
		progress:         p,
		tasks:            make(map[string]*TaskView),
		sessionStartTime: time.Now(),
		maxLogMessages:   200,
		onQuit:           onQuit,
	}
}

// Init initializes the model
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tickCmd())
}

// AddEntry folds a journal entry into the task view and the log
func (m *Model) AddEntry(e journal.Entry) {
	tv := m.task(e.TaskID, e.Task)
	tv.State = e.State
	tv.Progress = e.Progress
	tv.Workload = e.Workload
	tv.LastEntry = time.Now()
	m.current = e.TaskID

	level := e.Severity.String()
	if e.Title {
		level = "TITLE"
	}
	m.AddLogMessage(e.Seq, level, e.Body)
}

// FinishTask records the final counters of a task
func (m *Model) FinishTask(msg TaskDoneMsg) {
	tv := m.task(msg.ID, msg.Name)
	tv.State = msg.State
	tv.Successes = msg.Successes
	tv.Failures = msg.Failures
	tv.Elapsed = msg.Elapsed
	tv.Finished = true
	if tv.Workload > 0 && tv.State == journal.Completed {
		tv.Progress = tv.Workload
	}
}

func (m *Model) task(id, name string) *TaskView {
	tv, ok := m.tasks[id]
	if !ok {
		tv = &TaskView{ID: id, Name: name, State: journal.Waiting}
		m.tasks[id] = tv
		m.order = append(m.order, id)
	}
	if tv.Name == "" {
		tv.Name = name
	}
	return tv
}

// Current returns the task that emitted last, or nil
func (m *Model) Current() *TaskView {
	return m.tasks[m.current]
}

// Tasks returns every task in first-seen order
func (m *Model) Tasks() []*TaskView {
	out := make([]*TaskView, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.tasks[id])
	}
	return out
}

// AddLogMessage adds a log message, keeping the last maxLogMessages
func (m *Model) AddLogMessage(seq uint64, level, message string) {
	color := dimWhite
	switch level {
	case "ERROR", "CRITICAL":
		color = lipgloss.Color("#FF0000")
	case "WARN":
		color = neonOrange
	case "TITLE":
		color = neonMagenta
	case "INFO":
		color = neonCyan
	}

	m.logMessages = append(m.logMessages, LogMessage{
		Time:    time.Now(),
		Seq:     seq,
		Level:   level,
		Message: message,
		Color:   color,
	})

	if len(m.logMessages) > m.maxLogMessages {
		m.logMessages = m.logMessages[len(m.logMessages)-m.maxLogMessages:]
	}
}

// Totals sums successes and failures over finished tasks
func (m *Model) Totals() (successes, failures int) {
	for _, tv := range m.tasks {
		successes += tv.Successes
		failures += tv.Failures
	}
	return
}

// FormatCount renders n with thousands separators
func FormatCount(n int) string {
	return humanize.Comma(int64(n))
}
