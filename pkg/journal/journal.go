package journal

import (
	"fmt"
	"sync"

	errs "imgharvest/pkg/errors"
	"imgharvest/pkg/logger"
)

// State is the lifecycle state of a task
type State int

const (
	Waiting State = iota
	Running
	Interrupted
	Failed
	Completed
)

func (s State) String() string {
	switch s {
	case Waiting:
		return "waiting"
	case Running:
		return "running"
	case Interrupted:
		return "interrupted"
	case Failed:
		return "failed"
	case Completed:
		return "completed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Terminal reports whether s can no longer change
func (s State) Terminal() bool {
	return s == Interrupted || s == Failed || s == Completed
}

// Snapshot is a point-in-time copy of a journal's counters
type Snapshot struct {
	ID                  string
	Name                string
	State               State
	Progress            int
	Workload            int
	Successes           int
	Failures            int
	ConsecutiveFailures int
}

// Journal tracks the state and counters of one task and emits its log
// entries. Construction has no side effects.
type Journal struct {
	mu          sync.Mutex
	emitMu      sync.Mutex
	id          string
	name        string
	state       State
	progress    int
	workload    int
	successes   int
	failures    int
	consecutive int
	seq         uint64
	silent      bool
	listener    Listener
	log         logger.Logger
}

// Option configures a Journal
type Option func(*Journal)

// WithID sets the task identifier carried on every entry
func WithID(id string) Option {
	return func(j *Journal) { j.id = id }
}

// WithListener registers the entry listener
func WithListener(l Listener) Option {
	return func(j *Journal) { j.listener = l }
}

// WithLogger mirrors entries to l at debug level
func WithLogger(l logger.Logger) Option {
	return func(j *Journal) { j.log = l }
}

// Silent suppresses entry emission from the start
func Silent() Option {
	return func(j *Journal) { j.silent = true }
}

// New creates a journal in the Waiting state
func New(name string, opts ...Option) *Journal {
	j := &Journal{name: name, state: Waiting}
	for _, opt := range opts {
		opt(j)
	}
	if j.listener == nil {
		j.listener = Discard
	}
	if j.log == nil {
		j.log = logger.NewNopLogger()
	}
	return j
}

func (j *Journal) Name() string { return j.name }
func (j *Journal) ID() string { return j.id }

// Listener returns the registered listener
func (j *Journal) Listener() Listener {
	return j.listener
}

// SetSilent toggles entry emission
func (j *Journal) SetSilent(silent bool) {
	j.mu.Lock()
	j.silent = silent
	j.mu.Unlock()
}

// IsSilent reports whether entries are suppressed
func (j *Journal) IsSilent() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.silent
}

// State returns the current state
func (j *Journal) State() State {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

// Start moves Waiting to Running
func (j *Journal) Start() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.state != Waiting {
		return fmt.Errorf("start from %s: %w", j.state, errs.ErrInvalidTransition)
	}
	j.state = Running
	return nil
}

// Interrupt moves Running to Interrupted. Later calls are no-ops.
// It reports whether the journal is interrupted afterwards.
func (j *Journal) Interrupt() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.state == Running {
		j.state = Interrupted
	}
	return j.state == Interrupted
}

// Fail moves Running to Failed when consecutive failures exceed threshold.
// A threshold of 0 disables the check.
func (j *Journal) Fail(threshold int) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if threshold <= 0 || j.state != Running || j.consecutive <= threshold {
		return false
	}
	j.state = Failed
	return true
}

// Complete moves Running to Completed
func (j *Journal) Complete() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.state != Running {
		return false
	}
	j.state = Completed
	return true
}

// AddWorkload grows the expected amount of work
func (j *Journal) AddWorkload(n int) {
	if n <= 0 {
		return
	}
	j.mu.Lock()
	j.workload += n
	j.mu.Unlock()
}

// Advance records n completed units. Workload grows if progress would pass it.
func (j *Journal) Advance(n int) {
	if n <= 0 {
		return
	}
	j.mu.Lock()
	j.progress += n
	if j.progress > j.workload {
		j.workload = j.progress
	}
	j.mu.Unlock()
}

// Success counts a success and clears the consecutive failure run
func (j *Journal) Success() {
	j.mu.Lock()
	j.successes++
	j.consecutive = 0
	j.mu.Unlock()
}

// Failure counts a failure
func (j *Journal) Failure() {
	j.mu.Lock()
	j.failures++
	j.consecutive++
	j.mu.Unlock()
}

// Absorb folds the totals of a finished child task into this journal
func (j *Journal) Absorb(child Snapshot) {
	j.mu.Lock()
	j.successes += child.Successes
	j.failures += child.Failures
	if child.Successes > 0 {
		j.consecutive = 0
	}
	j.mu.Unlock()
}

// ConsecutiveFailures returns the current failure run length
func (j *Journal) ConsecutiveFailures() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.consecutive
}

// Snapshot copies the current counters
func (j *Journal) Snapshot() Snapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	return Snapshot{
		ID:                  j.id,
		Name:                j.name,
		State:               j.state,
		Progress:            j.progress,
		Workload:            j.workload,
		Successes:           j.successes,
		Failures:            j.failures,
		ConsecutiveFailures: j.consecutive,
	}
}

// Report emits a log entry
func (j *Journal) Report(sev Severity, format string, args ...interface{}) {
	j.emit(sev, false, fmt.Sprintf(format, args...))
}

// Info, Warn and Error are Report shorthands
func (j *Journal) Info(format string, args ...interface{}) {
	j.emit(Info, false, fmt.Sprintf(format, args...))
}

func (j *Journal) Warn(format string, args ...interface{}) {
	j.emit(Warning, false, fmt.Sprintf(format, args...))
}

func (j *Journal) Error(format string, args ...interface{}) {
	j.emit(Error, false, fmt.Sprintf(format, args...))
}

// ReportTitle emits a title entry
func (j *Journal) ReportTitle(format string, args ...interface{}) {
	j.emit(Info, true, fmt.Sprintf(format, args...))
}

// OnProgress re-emits a child journal's entry under this journal's
// numbering, so nested tasks share one ordered stream.
func (j *Journal) OnProgress(e Entry) {
	j.emit(e.Severity, e.Title, e.Body)
}

func (j *Journal) emit(sev Severity, title bool, body string) {
	j.emitMu.Lock()
	defer j.emitMu.Unlock()

	j.mu.Lock()
	if j.silent {
		j.mu.Unlock()
		return
	}
	j.seq++
	e := Entry{
		TaskID:   j.id,
		Task:     j.name,
		Seq:      j.seq,
		Workload: j.workload,
		Progress: j.progress,
		Severity: sev,
		Title:    title,
		Body:     body,
		State:    j.state,
	}
	j.mu.Unlock()

	j.log.DebugWithFields(body, map[string]interface{}{
		"task":     j.name,
		"seq":      e.Seq,
		"progress": e.Progress,
		"workload": e.Workload,
		"severity": sev.String(),
	})
	j.listener.OnProgress(e)
}
