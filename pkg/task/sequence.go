package task

import (
	"context"
	"fmt"
	"math"

	"github.com/dustin/go-humanize"

	errs "imgharvest/pkg/errors"
	"imgharvest/pkg/journal"
	"imgharvest/pkg/models"
)

// SequenceOptions tunes a SequenceTask
type SequenceOptions struct {
	Folder string
	// Exclude lists indices that are skipped without a download.
	Exclude []int
	// SafeThreshold disables the fail-threshold abort for indices at or below it.
	SafeThreshold int
	// FailThreshold aborts once consecutive failures exceed it. 0 disables.
	FailThreshold int
}

// SequenceTask downloads every index of a numbered URL range
type SequenceTask struct {
	name    string
	tpl     SequenceTemplate
	upper   int
	exclude map[int]bool
	opts    SequenceOptions
	fetcher Fetcher
}

// NewSequenceTask validates the template and bounds before any network
// activity. Bounds errors are the only errors a task returns.
func NewSequenceTask(rawTemplate string, upper int, fetcher Fetcher, opts SequenceOptions) (*SequenceTask, error) {
	tpl, err := ParseSequenceTemplate(rawTemplate)
	if err != nil {
		return nil, err
	}
	return newSequenceTask(tpl, upper, fetcher, opts)
}

func newSequenceTask(tpl SequenceTemplate, upper int, fetcher Fetcher, opts SequenceOptions) (*SequenceTask, error) {
	if upper < 0 {
		return nil, errs.Bounds("new sequence", "upper bound %d is negative", upper)
	}
	if upper < tpl.Lower {
		return nil, errs.Bounds("new sequence", "upper bound %d is below lower bound %d", upper, tpl.Lower)
	}
	if opts.FailThreshold < 0 {
		return nil, errs.Bounds("new sequence", "fail threshold %d is negative", opts.FailThreshold)
	}

	exclude := make(map[int]bool, len(opts.Exclude))
	for _, i := range opts.Exclude {
		exclude[i] = true
	}
	return &SequenceTask{
		name:    fmt.Sprintf("%s to %s", tpl, tpl.Format(upper)),
		tpl:     tpl,
		upper:   upper,
		exclude: exclude,
		opts:    opts,
		fetcher: fetcher,
	}, nil
}

func (t *SequenceTask) Name() string { return t.name }

// Workload returns how many indices Run will try. It saturates at
// math.MaxInt for a range spanning every non-negative int.
func (t *SequenceTask) Workload() int {
	span := t.upper - t.tpl.Lower
	n := span + 1
	if span == math.MaxInt {
		n = math.MaxInt
	}
	for i := range t.exclude {
		if i >= t.tpl.Lower && i <= t.upper {
			n--
		}
	}
	return n
}

// each calls fn for every index not excluded, in ascending order, until
// fn returns false. The loop ends on upper itself so math.MaxInt is safe.
func (t *SequenceTask) each(fn func(i int) bool) {
	for i := t.tpl.Lower; ; i++ {
		if !t.exclude[i] && !fn(i) {
			return
		}
		if i == t.upper {
			return
		}
	}
}

// Run walks the range. It stops early on cancellation, when consecutive
// failures past the safe threshold exceed the fail threshold, or when two
// successive downloads have the same size (a placeholder being served).
func (t *SequenceTask) Run(ctx context.Context, j *journal.Journal) {
	begin(j)
	t.fetcher.SetListener(journalEvents(j))

	j.AddWorkload(t.Workload())
	j.ReportTitle("Sequence %s", t.name)

	interrupted := false
	lastSize := int64(-1)
	t.each(func(i int) bool {
		if ctx.Err() != nil {
			interrupted = true
			return false
		}
		if i > t.opts.SafeThreshold && j.Fail(t.opts.FailThreshold) {
			j.Error("aborting at %d: more than %d consecutive failures", i, t.opts.FailThreshold)
			return false
		}

		rawURL := t.tpl.URL(i)
		_, name, ext := models.SplitURLFilename(rawURL)
		f, err := t.fetcher.Download(ctx, rawURL, t.opts.Folder, name, ext)
		j.Advance(1)
		if err != nil {
			j.Failure()
			return true
		}
		j.Success()

		if f.Size == lastSize {
			j.Warn("aborting at %d: two consecutive files of %s, the server is likely serving a placeholder",
				i, humanize.Bytes(uint64(f.Size)))
			return false
		}
		lastSize = f.Size
		return true
	})

	finish(j, interrupted)
}
