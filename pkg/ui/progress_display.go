package ui

import (
	"fmt"
	"io"
	"sync"
	"time"

	"imgharvest/pkg/journal"
)

// Renderer prints journal entries as plain terminal lines. It is a
// journal.Listener and is normally fed through a journal.QueuedListener.
type Renderer struct {
	mu       sync.Mutex
	out      io.Writer
	palette  Palette
	barWidth int
	current  string
}

// NewRenderer creates a renderer writing to out
func NewRenderer(out io.Writer, p Palette) *Renderer {
	return &Renderer{
		out:      out,
		palette:  p,
		barWidth: 20,
	}
}

// OnProgress renders one entry
func (r *Renderer) OnProgress(e journal.Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e.TaskID != r.current {
		r.current = e.TaskID
		fmt.Fprintf(r.out, "\n%s %s\n", r.palette.Magenta("▶"), r.palette.Cyan(e.Task))
	}

	if e.Title {
		fmt.Fprintf(r.out, "%s\n", r.palette.Magenta("== "+e.Body+" =="))
		return
	}

	fmt.Fprintf(r.out, "[%s] %s %s %s\n",
		r.palette.Dim(Bar(e.Progress, e.Workload, r.barWidth)),
		Counter(e.Progress, e.Workload),
		r.tag(e.Severity),
		r.body(e.Severity, e.Body),
	)
}

func (r *Renderer) tag(s journal.Severity) string {
	switch s {
	case journal.Warning:
		return r.palette.Yellow("WARN ")
	case journal.Error:
		return r.palette.Red("ERROR")
	case journal.Critical:
		return r.palette.Red("CRIT ")
	default:
		return r.palette.Green("INFO ")
	}
}

func (r *Renderer) body(s journal.Severity, body string) string {
	switch s {
	case journal.Error, journal.Critical:
		return r.palette.Red(body)
	default:
		return body
	}
}

// Complete prints the final line for one task
func (r *Renderer) Complete(name string, state journal.State, successes, failures int, elapsed time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	mark := r.palette.Green("✓")
	switch state {
	case journal.Failed:
		mark = r.palette.Red("✗")
	case journal.Interrupted:
		mark = r.palette.Yellow("⏸")
	}

	fmt.Fprintf(r.out, "%s %s: %s %s %d saved %s %d failed %s %s\n",
		mark,
		name,
		state,
		r.palette.Dim("•"),
		successes,
		r.palette.Dim("•"),
		failures,
		r.palette.Dim("•"),
		formatDuration(elapsed),
	)
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	} else if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
