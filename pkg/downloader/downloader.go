package downloader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"

	"imgharvest/pkg/config"
	errs "imgharvest/pkg/errors"
	"imgharvest/pkg/logger"
	"imgharvest/pkg/ratelimit"
	"imgharvest/pkg/webclient"
)

// HTTPClient fetches a URL with optional header overrides
type HTTPClient interface {
	Get(ctx context.Context, rawURL string, headers map[string]string) (*webclient.Response, error)
}

// Storage creates, writes and removes destination files
type Storage interface {
	CreateValidFile(folder, filename, ext string) (string, error)
	Write(path string, r io.Reader) (int64, error)
	Remove(path string) error
}

// File is a validated download on disk
type File struct {
	URL  string
	Path string
	Size int64
}

// Downloader fetches one URL into one validated local file
type Downloader struct {
	client   HTTPClient
	storage  Storage
	cfg      config.DownloadConfig
	cooldown ratelimit.Cooldown
	listener EventListener
	logger   logger.Logger
}

// New creates a Downloader
func New(client HTTPClient, storage Storage, cfg config.DownloadConfig, log logger.Logger) *Downloader {
	return &Downloader{
		client:   client,
		storage:  storage,
		cfg:      cfg,
		cooldown: ratelimit.Cooldown{Min: cfg.MinCooldown, Max: cfg.MaxCooldown},
		listener: discardEvents,
		logger:   logger.OrDefault(log).WithField("component", "downloader"),
	}
}

// SetListener registers the receiver of download events
func (d *Downloader) SetListener(l EventListener) {
	if l == nil {
		l = discardEvents
	}
	d.listener = l
}

// Download fetches rawURL into folder/filename.ext. Invalid content is
// deleted and resolved once through the blog resolver or by stripping the
// query string. On success a randomized cooldown follows. The in-flight
// request is not interrupted by ctx; only the cooldown is.
func (d *Downloader) Download(ctx context.Context, rawURL, folder, filename, ext string) (*File, error) {
	f, err := d.download(ctx, rawURL, folder, filename, ext, false)
	if err != nil {
		return nil, err
	}
	if d.cfg.MaxCooldown > 0 {
		_ = d.cooldown.Pause(ctx)
	}
	return f, nil
}

// download does one attempt. internal marks retries triggered by resolution.
func (d *Downloader) download(ctx context.Context, rawURL, folder, filename, ext string, internal bool) (*File, error) {
	path, err := d.storage.CreateValidFile(folder, filename, ext)
	if err != nil {
		return nil, d.fail(rawURL, "", fmt.Errorf("failed to create destination: %w", err))
	}

	size, err := d.fetchTo(ctx, rawURL, path, nil)
	if err == nil {
		d.emit(Event{Status: Saved, URL: rawURL, Path: path, Size: size,
			Message: fmt.Sprintf("saved %s (%s)", path, humanize.Bytes(uint64(size)))})
		return &File{URL: rawURL, Path: path, Size: size}, nil
	}
	_ = d.storage.Remove(path)

	if !isInvalid(err) {
		return nil, d.fail(rawURL, path, err)
	}
	d.emit(Event{Status: Invalid, URL: rawURL, Path: path, Message: fmt.Sprintf("deleted invalid file %s: %v", path, err)})

	switch {
	case d.hasBlogPrefix(filename):
		d.emit(Event{Status: Resolving, URL: rawURL, Message: "retrying with image headers"})
		return d.resolveBlog(ctx, rawURL, folder, filename, ext)
	case !internal && strings.Contains(rawURL, "?"):
		cleaned := rawURL[:strings.Index(rawURL, "?")]
		d.emit(Event{Status: Resolving, URL: rawURL, Message: "retrying without query: " + cleaned})
		return d.download(ctx, cleaned, folder, filename, ext, true)
	default:
		return nil, d.fail(rawURL, "", err)
	}
}

// resolveBlog re-requests rawURL with image Accept and referer headers,
// which blog image hosts require, and writes the raw body.
func (d *Downloader) resolveBlog(ctx context.Context, rawURL, folder, filename, ext string) (*File, error) {
	path, err := d.storage.CreateValidFile(folder, filename, ext)
	if err != nil {
		return nil, d.fail(rawURL, "", fmt.Errorf("failed to create destination: %w", err))
	}

	headers := map[string]string{"Accept": d.cfg.ImageAccept}
	if d.cfg.BlogReferer != "" {
		headers["Referer"] = d.cfg.BlogReferer
	}
	size, err := d.fetchTo(ctx, rawURL, path, headers)
	if err != nil {
		_ = d.storage.Remove(path)
		return nil, d.fail(rawURL, path, err)
	}

	d.emit(Event{Status: Saved, URL: rawURL, Path: path, Size: size,
		Message: fmt.Sprintf("saved %s via blog resolver (%s)", path, humanize.Bytes(uint64(size)))})
	return &File{URL: rawURL, Path: path, Size: size}, nil
}

// fetchTo downloads rawURL into path and validates the body
func (d *Downloader) fetchTo(ctx context.Context, rawURL, path string, headers map[string]string) (int64, error) {
	resp, err := d.client.Get(context.WithoutCancel(ctx), rawURL, headers)
	if err != nil {
		return 0, err
	}
	if err := webclient.CheckStatus(resp); err != nil {
		return 0, fmt.Errorf("%w: %v", errs.ErrInvalidContent, err)
	}
	if err := d.validate(resp.Body); err != nil {
		return 0, err
	}
	return d.storage.Write(path, bytes.NewReader(resp.Body))
}

// validate rejects bodies below the size threshold and, when sniffing is
// on, bodies starting with '<' (an HTML page served instead of an image)
func (d *Downloader) validate(body []byte) error {
	if int64(len(body)) < d.cfg.MinFileSize {
		return fmt.Errorf("%w: %d bytes is below minimum %d", errs.ErrInvalidContent, len(body), d.cfg.MinFileSize)
	}
	if d.cfg.SniffHTML && len(body) > 0 && body[0] == '<' {
		return fmt.Errorf("%w: body looks like markup", errs.ErrInvalidContent)
	}
	return nil
}

func (d *Downloader) hasBlogPrefix(filename string) bool {
	for _, prefix := range d.cfg.BlogPrefixes {
		if prefix != "" && strings.HasPrefix(filename, prefix) {
			return true
		}
	}
	return false
}

func (d *Downloader) fail(rawURL, path string, cause error) error {
	err := errs.Download("download", rawURL, cause)
	d.emit(Event{Status: Failed, URL: rawURL, Path: path, Message: err.Error()})
	return err
}

func (d *Downloader) emit(e Event) {
	fields := map[string]interface{}{
		"status": e.Status.String(),
		"url":    e.URL,
	}
	if e.Path != "" {
		fields["path"] = e.Path
	}
	if e.Size > 0 {
		fields["size"] = e.Size
	}
	if e.Status == Failed {
		d.logger.ErrorWithFields(e.Message, fields)
	} else {
		d.logger.DebugWithFields(e.Message, fields)
	}
	d.listener.OnDownload(e)
}
