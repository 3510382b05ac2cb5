package main

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imgharvest/internal/orchestrator"
	"imgharvest/pkg/config"
	"imgharvest/pkg/journal"
)

// execute runs the root command with args and returns its output
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

// writeConfig writes a config with cooldowns off so tests run fast
func writeConfig(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "imgharvest.yaml")
	content := "download:\n  min_cooldown: 0s\n  max_cooldown: 0s\nlogging:\n  level: error\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func imageBody(size int) []byte {
	body := bytes.Repeat([]byte{0x42}, size)
	body[0], body[1] = 0xFF, 0xD8
	return body
}

// galleryServer serves img_<n>.jpg for every n in sizes and 404 otherwise
func galleryServer(t *testing.T, sizes map[string]int) *httptest.Server {
	t.Helper()
	r := mux.NewRouter()
	r.HandleFunc("/gallery/img_{n}.jpg", func(w http.ResponseWriter, req *http.Request) {
		size, ok := sizes[mux.Vars(req)["n"]]
		if !ok {
			http.NotFound(w, req)
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write(imageBody(size))
	})
	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return server
}

func TestSequenceCommandEndToEnd(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	sizes := map[string]int{"001": 6000, "002": 7000, "003": 8000}
	server := galleryServer(t, sizes)

	dir := t.TempDir()
	outDir := filepath.Join(dir, "out")

	out, err := execute(t,
		"sequence", server.URL+"/gallery/img_{001}.jpg",
		"--to", "5",
		"--fail-threshold", "1",
		"--config", writeConfig(t, dir),
		"--output", outDir,
		"--quiet",
	)
	require.NoError(t, err)

	assert.Contains(t, out, "completed")
	assert.Contains(t, out, "3 saved")
	assert.Contains(t, out, "2 failed")

	for n, size := range sizes {
		info, err := os.Stat(filepath.Join(outDir, "img_"+n+".jpg"))
		require.NoError(t, err, n)
		assert.Equal(t, int64(size), info.Size())
	}
	_, err = os.Stat(filepath.Join(outDir, "img_004.jpg"))
	assert.True(t, os.IsNotExist(err))
}

func TestSequenceCommandFolderIsInsideOutput(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Cleanup(func() { seqFolder = "" })
	server := galleryServer(t, map[string]int{"1": 6000, "2": 7000})

	dir := t.TempDir()
	outDir := filepath.Join(dir, "out")

	_, err := execute(t,
		"sequence", server.URL+"/gallery/img_{1}.jpg",
		"--to", "2",
		"--folder", "sub",
		"--config", writeConfig(t, dir),
		"--output", outDir,
		"--quiet",
	)
	require.NoError(t, err)

	for _, n := range []string{"1", "2"} {
		_, err := os.Stat(filepath.Join(outDir, "sub", "img_"+n+".jpg"))
		assert.NoError(t, err, n)
	}
	_, err = os.Stat("sub")
	assert.True(t, os.IsNotExist(err))

	_, err = execute(t,
		"sequence", server.URL+"/gallery/img_{1}.jpg",
		"--to", "2",
		"--folder", "../elsewhere",
		"--config", writeConfig(t, dir),
		"--output", outDir,
		"--quiet",
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outside")
}

func TestSequenceCommandRejectsBadTemplate(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()

	_, err := execute(t,
		"sequence", "http://x.test/img_{a}.jpg",
		"--to", "3",
		"--config", writeConfig(t, dir),
		"--output", filepath.Join(dir, "out"),
		"--quiet",
	)
	require.Error(t, err)
}

func TestConfigInitShowValidate(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	path := filepath.Join(dir, "generated.yaml")

	out, err := execute(t, "config", "init", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration file created")

	saved := config.DefaultConfig()
	require.NoError(t, saved.LoadFromFile(path))
	assert.Equal(t, config.DefaultConfig().Search, saved.Search)

	_, err = execute(t, "config", "init", "--config", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	out, err = execute(t, "config", "show", "--config", path, "--output", filepath.Join(dir, "out"))
	require.NoError(t, err)
	assert.Contains(t, out, "base_directory: "+filepath.Join(dir, "out"))

	out, err = execute(t, "config", "validate", "--config", path, "--output", filepath.Join(dir, "out"))
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration is valid")
}

func TestReport(t *testing.T) {
	noColor = true
	defer func() { noColor = false }()

	tests := []struct {
		name      string
		states    []journal.State
		wantError string
	}{
		{"all completed", []journal.State{journal.Completed, journal.Completed}, ""},
		{"one failed", []journal.State{journal.Completed, journal.Failed}, "1 of 2 task(s) failed"},
		{"interrupted", []journal.State{journal.Interrupted, journal.Failed}, "interrupted"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var summaries []orchestrator.Summary
			for i, s := range tt.states {
				summaries = append(summaries, orchestrator.Summary{
					ID:      fmt.Sprint(i),
					Name:    fmt.Sprintf("task %d", i),
					State:   s,
					Elapsed: time.Second,
				})
			}

			var buf bytes.Buffer
			err := report(&buf, summaries)
			if tt.wantError == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantError)
			}
			assert.Contains(t, buf.String(), "task 0")
		})
	}
}
