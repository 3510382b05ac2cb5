package task

import (
	"context"

	"imgharvest/pkg/downloader"
	"imgharvest/pkg/journal"
)

// Task is one unit of acquisition work. Run drives j from Waiting to a
// terminal state and reports everything through it; failures never
// escape Run.
type Task interface {
	Name() string
	Run(ctx context.Context, j *journal.Journal)
}

// journalEvents turns downloader events into journal lines
func journalEvents(j *journal.Journal) downloader.EventListener {
	return downloader.EventFunc(func(e downloader.Event) {
		switch e.Status {
		case downloader.Saved, downloader.Resolving:
			j.Info("%s", e.Message)
		case downloader.Invalid:
			j.Warn("%s", e.Message)
		case downloader.Failed:
			j.Error("%s", e.Message)
		}
	})
}

// begin starts j, tolerating a journal the caller already started
func begin(j *journal.Journal) {
	if j.State() == journal.Waiting {
		_ = j.Start()
	}
}

// finish moves j to its terminal state and reports the totals. A task
// counts as interrupted only when cancellation cut its work short.
func finish(j *journal.Journal, interrupted bool) {
	if interrupted {
		if j.Interrupt() {
			j.Warn("interrupted")
		}
	} else {
		j.Complete()
	}
	s := j.Snapshot()
	j.Info("%s: %d saved, %d failed", s.State, s.Successes, s.Failures)
}
