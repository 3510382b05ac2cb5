package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"imgharvest/pkg/journal"
)

// TUI represents the terminal user interface
type TUI struct {
	program *tea.Program
	model   *Model
}

// NewTUI creates a TUI. onQuit runs when the user quits from the keyboard.
func NewTUI(onQuit func(), opts ...tea.ProgramOption) *TUI {
	model := NewModel(onQuit)
	opts = append([]tea.ProgramOption{tea.WithAltScreen()}, opts...)
	return &TUI{
		program: tea.NewProgram(model, opts...),
		model:   model,
	}
}

// Start runs the program until it quits
func (t *TUI) Start() error {
	_, err := t.program.Run()
	return err
}

// Stop stops the TUI gracefully
func (t *TUI) Stop() {
	t.program.Quit()
}

// Send sends a message to the TUI
func (t *TUI) Send(msg tea.Msg) {
	if t.program != nil {
		t.program.Send(msg)
	}
}

// OnProgress implements journal.Listener
func (t *TUI) OnProgress(e journal.Entry) {
	t.Send(EntryMsg(e))
}

// TaskDone reports the final counters of one task
func (t *TUI) TaskDone(id, name string, state journal.State, successes, failures int, elapsed time.Duration) {
	t.Send(TaskDoneMsg{
		ID:        id,
		Name:      name,
		State:     state,
		Successes: successes,
		Failures:  failures,
		Elapsed:   elapsed,
	})
}

// Done tells the view that no more tasks will run
func (t *TUI) Done() {
	t.Send(AllDoneMsg{})
}
