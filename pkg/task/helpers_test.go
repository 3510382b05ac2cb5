package task

import (
	"context"
	"strings"
	"sync"

	"imgharvest/pkg/downloader"
	"imgharvest/pkg/journal"
)

type recorder struct {
	mu      sync.Mutex
	entries []journal.Entry
}

func (r *recorder) OnProgress(e journal.Entry) {
	r.mu.Lock()
	r.entries = append(r.entries, e)
	r.mu.Unlock()
}

func (r *recorder) bodies() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.Body)
	}
	return out
}

func (r *recorder) contains(sev journal.Severity, text string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.Severity == sev && strings.Contains(e.Body, text) {
			return true
		}
	}
	return false
}

func newJournal() (*journal.Journal, *recorder) {
	rec := &recorder{}
	return journal.New("test", journal.WithListener(rec)), rec
}

// fakeFetcher answers downloads from a size function; size < 0 fails
type fakeFetcher struct {
	size    func(rawURL string) int64
	visited []string
}

func (f *fakeFetcher) Download(ctx context.Context, rawURL, folder, filename, ext string) (*downloader.File, error) {
	f.visited = append(f.visited, rawURL)
	n := f.size(rawURL)
	if n < 0 {
		return nil, context.DeadlineExceeded
	}
	return &downloader.File{URL: rawURL, Path: folder + "/" + filename + "." + ext, Size: n}, nil
}

func (f *fakeFetcher) SetListener(downloader.EventListener) {}
