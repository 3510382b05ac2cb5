package search

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"time"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"imgharvest/pkg/config"
	errs "imgharvest/pkg/errors"
	"imgharvest/pkg/logger"
	"imgharvest/pkg/models"
	"imgharvest/pkg/webclient"
)

// HTTPClient is the part of the web client the searcher needs
type HTTPClient interface {
	Get(ctx context.Context, rawURL string, headers map[string]string) (*webclient.Response, error)
	PostMultipart(ctx context.Context, rawURL, field, filename string, data []byte) (*webclient.Response, error)
}

// Result is the outcome of one reverse-image search. Elapsed is set even
// when the search fails.
type Result struct {
	Source     models.SourceImage
	ResultsURL string
	SizesURL   string
	Candidates []models.Candidate
	Elapsed    time.Duration
}

// Searcher runs the upload, redirect, scrape and parse protocol
type Searcher struct {
	client HTTPClient
	cfg    config.SearchConfig
	re     *regexp.Regexp
	logger logger.Logger
}

// New creates a Searcher. The candidate regex must have two groups: the
// URL and the comma separated dimensions.
func New(client HTTPClient, cfg config.SearchConfig, log logger.Logger) (*Searcher, error) {
	re, err := regexp.Compile(cfg.CandidateRegex)
	if err != nil {
		return nil, fmt.Errorf("invalid candidate regex: %w", err)
	}
	if re.NumSubexp() < 2 {
		return nil, fmt.Errorf("candidate regex needs 2 groups, has %d", re.NumSubexp())
	}
	return &Searcher{
		client: client,
		cfg:    cfg,
		re:     re,
		logger: logger.OrDefault(log).WithField("component", "search"),
	}, nil
}

// Search looks up the image at path and returns the candidates found on
// its "all sizes" page. A results page without that link yields no
// candidates and no error.
func (s *Searcher) Search(ctx context.Context, path string) (Result, error) {
	start := time.Now()
	res, err := s.search(ctx, path)
	res.Elapsed = time.Since(start)

	fields := map[string]interface{}{
		"path":       path,
		"candidates": len(res.Candidates),
		"elapsed_ms": res.Elapsed.Milliseconds(),
	}
	if err != nil && ctx.Err() != nil {
		s.logger.DebugWithFields("search stopped", fields)
	} else if err != nil {
		s.logger.WithError(err).WarnWithFields("search failed", fields)
	} else {
		s.logger.DebugWithFields("search finished", fields)
	}
	return res, err
}

// search lets each request finish once sent and checks ctx between them
func (s *Searcher) search(ctx context.Context, path string) (Result, error) {
	var res Result

	source, data, err := Load(path)
	if err != nil {
		return res, err
	}
	res.Source = source
	if err := ctx.Err(); err != nil {
		return res, err
	}

	resp, err := s.client.PostMultipart(context.WithoutCancel(ctx), s.cfg.Endpoint, s.cfg.UploadField, filepath.Base(path), data)
	if err != nil {
		return res, errs.Upload("upload", s.cfg.Endpoint, err)
	}
	location := resp.Location()
	if location == "" {
		return res, errs.Upload("upload", s.cfg.Endpoint, errs.ErrNoLocation)
	}
	resultsURL, err := resolve(s.cfg.Endpoint, location)
	if err != nil {
		return res, errs.Upload("upload", s.cfg.Endpoint, err)
	}
	res.ResultsURL = resultsURL.String()
	if err := ctx.Err(); err != nil {
		return res, err
	}

	page, err := s.fetchPage(ctx, res.ResultsURL)
	if err != nil {
		return res, err
	}
	sizesURL, ok := FindSizesLink(page, resultsURL, s.cfg.LinkPrefix, s.cfg.LinkText)
	if !ok {
		return res, nil
	}
	res.SizesURL = sizesURL
	if err := ctx.Err(); err != nil {
		return res, err
	}

	page, err = s.fetchPage(ctx, sizesURL)
	if err != nil {
		return res, err
	}
	res.Candidates = ParseCandidates(page, s.cfg.ScriptMarker, s.re)
	return res, nil
}

func (s *Searcher) fetchPage(ctx context.Context, rawURL string) ([]byte, error) {
	resp, err := s.client.Get(context.WithoutCancel(ctx), rawURL, nil)
	if err != nil {
		return nil, errs.Search("fetch page", rawURL, err)
	}
	if err := webclient.CheckStatus(resp); err != nil {
		return nil, errs.Search("fetch page", rawURL, err)
	}
	return resp.Body, nil
}

// Load reads the image at path and decodes its dimensions
func Load(path string) (models.SourceImage, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.SourceImage{}, nil, errs.Load("read", path, err)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return models.SourceImage{}, nil, errs.Load("decode", path, err)
	}
	return models.SourceImage{
		Path:     path,
		Width:    cfg.Width,
		Height:   cfg.Height,
		ByteSize: int64(len(data)),
	}, data, nil
}

func resolve(base, ref string) (*url.URL, error) {
	b, err := url.Parse(base)
	if err != nil {
		return nil, err
	}
	r, err := url.Parse(ref)
	if err != nil {
		return nil, err
	}
	return b.ResolveReference(r), nil
}
