package webclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"sync"
	"time"

	"imgharvest/pkg/config"
	"imgharvest/pkg/logger"
	"imgharvest/pkg/ratelimit"
)

var (
	// ErrReadTimeout is returned when the body stalls longer than the read timeout
	ErrReadTimeout = errors.New("read timeout")
	// ErrBodyTooLarge is returned when a body exceeds the configured maximum
	ErrBodyTooLarge = errors.New("response body too large")
)

// StatusError reports a response outside the 2xx/3xx range
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d for %s", e.Code, e.URL)
}

// Response is a fully read HTTP response
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	URL        string
}

// Location returns the redirect target, empty when absent
func (r *Response) Location() string {
	return r.Header.Get("Location")
}

// Options configures a Client
type Options struct {
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	UserAgent      string
	MaxBodySize    int64
	Limiter        ratelimit.Limiter
	Logger         logger.Logger
}

// Client issues GET and multipart POST requests with connect and read
// timeouts and exposes raw headers and bytes
type Client struct {
	httpClient  *http.Client
	noRedirect  *http.Client
	readTimeout time.Duration
	maxBody     int64
	limiter     ratelimit.Limiter
	logger      logger.Logger

	mu      sync.RWMutex
	headers map[string]string
}

// New creates a Client
func New(opts Options) *Client {
	log := logger.OrDefault(opts.Logger)
	limiter := opts.Limiter
	if limiter == nil {
		limiter = ratelimit.Unlimited{}
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{
		Timeout:   opts.ConnectTimeout,
		KeepAlive: 30 * time.Second,
	}).DialContext
	transport.TLSHandshakeTimeout = opts.ConnectTimeout
	transport.ResponseHeaderTimeout = opts.ReadTimeout

	headers := map[string]string{
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8",
		"Accept-Language": "en-US,en;q=0.9",
		"Cache-Control":   "no-cache",
	}
	if opts.UserAgent != "" {
		headers["User-Agent"] = opts.UserAgent
	}

	return &Client{
		httpClient: &http.Client{Transport: transport},
		noRedirect: &http.Client{
			Transport: transport,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		readTimeout: opts.ReadTimeout,
		maxBody:     opts.MaxBodySize,
		limiter:     limiter,
		logger:      log,
		headers:     headers,
	}
}

// NewFromConfig builds a Client from the HTTP and rate limit sections
func NewFromConfig(cfg *config.Config, log logger.Logger) *Client {
	return New(Options{
		ConnectTimeout: cfg.HTTP.ConnectTimeout,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		UserAgent:      cfg.HTTP.UserAgent,
		MaxBodySize:    cfg.HTTP.MaxBodySize,
		Limiter:        ratelimit.New(cfg.RateLimit.RequestsPerMinute),
		Logger:         log,
	})
}

// SetHeader sets a default header sent with every request
func (c *Client) SetHeader(key, value string) {
	c.mu.Lock()
	c.headers[key] = value
	c.mu.Unlock()
}

// Get fetches rawURL, following redirects. headers override the defaults.
func (c *Client) Get(ctx context.Context, rawURL string, headers map[string]string) (*Response, error) {
	req, err := http.NewRequest(http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(ctx, c.httpClient, req, headers)
}

// PostMultipart uploads data as a single multipart file field. Redirects
// are not followed so the caller can read the Location header.
func (c *Client) PostMultipart(ctx context.Context, rawURL, field, filename string, data []byte) (*Response, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile(field, filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("failed to write form file: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart body: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, rawURL, &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(ctx, c.noRedirect, req, map[string]string{"Content-Type": w.FormDataContentType()})
}

func (c *Client) do(ctx context.Context, hc *http.Client, req *http.Request, headers map[string]string) (*Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	req = req.WithContext(ctx)

	c.mu.RLock()
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}
	c.mu.RUnlock()
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := hc.Do(req)
	if err != nil {
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"method":      req.Method,
			"url":         req.URL.String(),
			"error":       err.Error(),
			"duration_ms": time.Since(start).Milliseconds(),
		})
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL, err)
	}
	defer resp.Body.Close()

	body, err := readAll(limitBody(resp.Body, c.maxBody), c.readTimeout, cancel)
	logger.LogRequest(c.logger, req.Method, req.URL.String(), resp.StatusCode, time.Since(start).Milliseconds())
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
		URL:        req.URL.String(),
	}, nil
}

// CheckStatus returns a *StatusError for 4xx and 5xx responses
func CheckStatus(resp *Response) error {
	if resp.StatusCode >= 400 {
		return &StatusError{Code: resp.StatusCode, URL: resp.URL}
	}
	return nil
}

// cappedReader fails once more than limit bytes have been read
type cappedReader struct {
	r     io.Reader
	limit int64
	read  int64
}

func (cr *cappedReader) Read(p []byte) (int, error) {
	if rest := cr.limit - cr.read + 1; int64(len(p)) > rest {
		p = p[:rest]
	}
	n, err := cr.r.Read(p)
	cr.read += int64(n)
	if cr.read > cr.limit {
		return n, ErrBodyTooLarge
	}
	return n, err
}

func limitBody(r io.Reader, limit int64) io.Reader {
	if limit <= 0 {
		return r
	}
	return &cappedReader{r: r, limit: limit}
}

// idleReader pushes back a deadline every time data arrives
type idleReader struct {
	r       io.Reader
	timer   *time.Timer
	timeout time.Duration
}

func (ir *idleReader) Read(p []byte) (int, error) {
	n, err := ir.r.Read(p)
	if n > 0 {
		ir.timer.Reset(ir.timeout)
	}
	return n, err
}

// readAll reads r to the end, calling cancel if no data arrives for timeout
func readAll(r io.Reader, timeout time.Duration, cancel context.CancelFunc) ([]byte, error) {
	if timeout <= 0 {
		return io.ReadAll(r)
	}

	var fired bool
	var mu sync.Mutex
	timer := time.AfterFunc(timeout, func() {
		mu.Lock()
		fired = true
		mu.Unlock()
		cancel()
	})
	defer timer.Stop()

	data, err := io.ReadAll(&idleReader{r: r, timer: timer, timeout: timeout})
	if err != nil {
		mu.Lock()
		stalled := fired
		mu.Unlock()
		if stalled {
			return nil, ErrReadTimeout
		}
		return nil, err
	}
	return data, nil
}
