package task

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	errs "imgharvest/pkg/errors"
	"imgharvest/pkg/journal"
)

// SourceExtensions lists the file types a folder search picks up
var SourceExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".bmp": true, ".webp": true,
}

// ReverseSearchOptions selects and tunes the strategies run per image
type ReverseSearchOptions struct {
	Larger     bool
	More       bool
	LargerOpts LargerOptions
	MoreOpts   MoreOptions
}

// ReverseSearchTask searches every source image and feeds the candidates
// to the Larger and then the More strategy
type ReverseSearchTask struct {
	name     string
	sources  []string
	searcher Searcher
	fetcher  Fetcher
	mover    Mover
	opts     ReverseSearchOptions
}

// NewReverseSearchTask collects the source images at target, a file or a
// folder. With neither strategy selected both run.
func NewReverseSearchTask(target string, searcher Searcher, fetcher Fetcher, mover Mover, opts ReverseSearchOptions) (*ReverseSearchTask, error) {
	sources, err := collectSources(target)
	if err != nil {
		return nil, err
	}
	if !opts.Larger && !opts.More {
		opts.Larger, opts.More = true, true
	}
	return &ReverseSearchTask{
		name:     "search " + target,
		sources:  sources,
		searcher: searcher,
		fetcher:  fetcher,
		mover:    mover,
		opts:     opts,
	}, nil
}

func (t *ReverseSearchTask) Name() string { return t.name }

// Sources returns the images the task will search for
func (t *ReverseSearchTask) Sources() []string {
	return append([]string(nil), t.sources...)
}

// Run searches each source in turn. A failed search is reported and the
// next source is tried.
func (t *ReverseSearchTask) Run(ctx context.Context, j *journal.Journal) {
	begin(j)
	t.fetcher.SetListener(journalEvents(j))
	j.AddWorkload(len(t.sources))
	j.ReportTitle("Reverse search of %d image(s)", len(t.sources))

	interrupted := false
	for _, path := range t.sources {
		if ctx.Err() != nil {
			interrupted = true
			break
		}
		if !t.searchOne(ctx, j, path) {
			interrupted = true
			break
		}
		j.Advance(1)
	}

	finish(j, interrupted)
}

// searchOne returns false when cancellation stopped it before every
// selected strategy ran
func (t *ReverseSearchTask) searchOne(ctx context.Context, j *journal.Journal, path string) bool {
	res, err := t.searcher.Search(ctx, path)
	if err != nil && ctx.Err() != nil {
		return false
	}
	if err != nil {
		j.Failure()
		j.Error("%s: %v (after %s)", filepath.Base(path), err, res.Elapsed.Round(time.Millisecond))
		return true
	}
	j.Info("%s: %d candidate(s) in %s", filepath.Base(path), len(res.Candidates), res.Elapsed.Round(time.Millisecond))

	if t.opts.Larger {
		if ctx.Err() != nil {
			return false
		}
		if f := FindLarger(ctx, j, t.fetcher, t.mover, res.Source, res.Candidates, t.opts.LargerOpts); f == nil && ctx.Err() != nil {
			return false
		}
	}
	if t.opts.More {
		if ctx.Err() != nil {
			return false
		}
		return FindMore(ctx, j, t.fetcher, res.Candidates, t.opts.MoreOpts)
	}
	return true
}

func collectSources(target string) ([]string, error) {
	info, err := os.Stat(target)
	if err != nil {
		return nil, errs.Load("stat", target, err)
	}
	if !info.IsDir() {
		return []string{target}, nil
	}

	entries, err := os.ReadDir(target)
	if err != nil {
		return nil, errs.Load("read dir", target, err)
	}
	var sources []string
	for _, e := range entries {
		if e.IsDir() || !SourceExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		sources = append(sources, filepath.Join(target, e.Name()))
	}
	if len(sources) == 0 {
		return nil, errs.Load("scan", target, fmt.Errorf("no images in folder"))
	}
	sort.Strings(sources)
	return sources, nil
}
