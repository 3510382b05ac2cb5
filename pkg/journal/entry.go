package journal

import (
	"fmt"
	"strings"
)

// Severity tags an entry body
type Severity int

const (
	Info Severity = iota
	Warning
	Error
	Critical
)

func (s Severity) String() string {
	switch s {
	case Info:
		return "INFO"
	case Warning:
		return "WARN"
	case Error:
		return "ERROR"
	case Critical:
		return "CRITICAL"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// Entry is one emitted progress line. Entries are immutable once emitted.
type Entry struct {
	TaskID   string
	Task     string
	Seq      uint64
	Workload int
	Progress int
	Severity Severity
	Title    bool
	Body     string
	State    State
}

// String renders the entry as a single tagged log line
func (e Entry) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "#%d [%d/%d] ", e.Seq, e.Progress, e.Workload)
	if e.Title {
		b.WriteString("== " + e.Body + " ==")
		return b.String()
	}
	fmt.Fprintf(&b, "[%s] %s", e.Severity, e.Body)
	return b.String()
}

// Listener receives journal entries. OnProgress is called at most once per
// event and should return quickly.
type Listener interface {
	OnProgress(Entry)
}

// ListenerFunc adapts a function to Listener
type ListenerFunc func(Entry)

func (f ListenerFunc) OnProgress(e Entry) { f(e) }

// Discard drops every entry
var Discard Listener = ListenerFunc(func(Entry) {})
