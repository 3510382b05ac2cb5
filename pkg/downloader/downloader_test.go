package downloader

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imgharvest/pkg/config"
	errs "imgharvest/pkg/errors"
	"imgharvest/pkg/logger"
	"imgharvest/pkg/storage"
	"imgharvest/pkg/webclient"
)

const imageAccept = "image/webp,image/*"

var (
	validImage = bytes.Repeat([]byte{0xFF, 0xD8, 0xFF, 0xE0}, 512)
	htmlPage   = append([]byte("<html>"), bytes.Repeat([]byte(" "), 4096)...)
)

type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) OnDownload(e Event) {
	l.mu.Lock()
	l.events = append(l.events, e)
	l.mu.Unlock()
}

func (l *eventLog) statuses() []Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Status, 0, len(l.events))
	for _, e := range l.events {
		out = append(out, e.Status)
	}
	return out
}

func newTestDownloader(t *testing.T) (*Downloader, *eventLog, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewManager(dir)
	require.NoError(t, err)

	client := webclient.New(webclient.Options{
		ConnectTimeout: time.Second,
		ReadTimeout:    2 * time.Second,
		Logger:         logger.NewNopLogger(),
	})
	cfg := config.DownloadConfig{
		MinFileSize:  1024,
		SniffHTML:    true,
		BlogPrefixes: []string{"tumblr_"},
		BlogReferer:  "https://www.tumblr.com/",
		ImageAccept:  imageAccept,
	}

	d := New(client, store, cfg, logger.NewNopLogger())
	events := &eventLog{}
	d.SetListener(events)
	return d, events, dir
}

func TestDownloadValidImage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(validImage)
	}))
	defer server.Close()

	d, events, dir := newTestDownloader(t)
	f, err := d.Download(context.Background(), server.URL+"/img_001.jpg", dir, "img_001", "jpg")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "img_001.jpg"), f.Path)
	assert.Equal(t, int64(len(validImage)), f.Size)
	assert.Equal(t, []Status{Saved}, events.statuses())

	data, err := os.ReadFile(f.Path)
	require.NoError(t, err)
	assert.Equal(t, validImage, data)
}

func TestDownloadRejectsInvalidContent(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"too small", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("tiny")) }},
		{"html page", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write(htmlPage) }},
		{"not found", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write(validImage)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			d, events, dir := newTestDownloader(t)
			f, err := d.Download(context.Background(), server.URL+"/photo.jpg", dir, "photo", "jpg")

			assert.Nil(t, f)
			require.Error(t, err)
			assert.True(t, errs.IsKind(err, errs.KindDownload))
			assert.ErrorIs(t, err, errs.ErrInvalidContent)
			assert.Equal(t, []Status{Invalid, Failed}, events.statuses())

			entries, err := os.ReadDir(dir)
			require.NoError(t, err)
			assert.Empty(t, entries, "invalid file must be deleted")
		})
	}
}

func TestDownloadStripsQueryString(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		if r.URL.RawQuery != "" {
			_, _ = w.Write(htmlPage)
			return
		}
		_, _ = w.Write(validImage)
	}))
	defer server.Close()

	d, events, dir := newTestDownloader(t)
	f, err := d.Download(context.Background(), server.URL+"/pic.jpg?size=thumb", dir, "pic", "jpg")
	require.NoError(t, err)

	assert.Equal(t, server.URL+"/pic.jpg", f.URL)
	assert.Equal(t, filepath.Join(dir, "pic.jpg"), f.Path)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
	assert.Equal(t, []Status{Invalid, Resolving, Saved}, events.statuses())
}

func TestDownloadQueryStripRunsOnce(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_, _ = w.Write(htmlPage)
	}))
	defer server.Close()

	d, events, dir := newTestDownloader(t)
	_, err := d.Download(context.Background(), server.URL+"/pic.jpg?a=1", dir, "pic", "jpg")
	require.Error(t, err)

	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
	assert.Equal(t, []Status{Invalid, Resolving, Invalid, Failed}, events.statuses())
}

func TestDownloadBlogResolver(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept") == imageAccept && r.Header.Get("Referer") == "https://www.tumblr.com/" {
			_, _ = w.Write(validImage)
			return
		}
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write(htmlPage)
	}))
	defer server.Close()

	d, events, dir := newTestDownloader(t)
	f, err := d.Download(context.Background(), server.URL+"/tumblr_abc_1280.jpg?x=1", dir, "tumblr_abc_1280", "jpg")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "tumblr_abc_1280.jpg"), f.Path)
	assert.Equal(t, []Status{Invalid, Resolving, Saved}, events.statuses())
}

func TestDownloadRepeatDoesNotResolve(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_, _ = w.Write(validImage)
	}))
	defer server.Close()

	d, events, dir := newTestDownloader(t)
	first, err := d.Download(context.Background(), server.URL+"/tumblr_x.jpg?q=1", dir, "tumblr_x", "jpg")
	require.NoError(t, err)
	second, err := d.Download(context.Background(), server.URL+"/tumblr_x.jpg?q=1", dir, "tumblr_x", "jpg")
	require.NoError(t, err)

	assert.Equal(t, first.Size, second.Size)
	assert.NotEqual(t, first.Path, second.Path)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
	assert.Equal(t, []Status{Saved, Saved}, events.statuses())
}

func TestDownloadNetworkFailure(t *testing.T) {
	d, events, dir := newTestDownloader(t)
	_, err := d.Download(context.Background(), "http://127.0.0.1:1/a.jpg?x=1", dir, "a", "jpg")

	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.KindDownload))
	assert.Equal(t, []Status{Failed}, events.statuses(), "network errors are not resolved")
}

func TestDownloadCompletesDespiteCancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(validImage)
	}))
	defer server.Close()

	d, _, dir := newTestDownloader(t)
	d.cfg.MinCooldown = time.Minute
	d.cfg.MaxCooldown = time.Minute
	d.cooldown.Min = time.Minute
	d.cooldown.Max = time.Minute

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	f, err := d.Download(ctx, server.URL+"/b.jpg", dir, "b", "jpg")
	require.NoError(t, err)
	assert.NotNil(t, f)
	assert.Less(t, time.Since(start), 10*time.Second, "cooldown stops on cancellation")
}
