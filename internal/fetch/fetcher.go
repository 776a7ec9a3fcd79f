// Package fetch performs the outbound HTTP requests of a harvest with
// per-host rate limiting, optional robots.txt compliance, a response cache
// and bounded retries.
package fetch

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ppiankov/facultyscope/internal/cache"
	"github.com/ppiankov/facultyscope/internal/model"
	"github.com/ppiankov/facultyscope/internal/observability"
	"github.com/ppiankov/facultyscope/internal/util"
	"github.com/ppiankov/facultyscope/internal/worker"
)

// ErrDisallowed is returned when robots.txt forbids a URL
var ErrDisallowed = errors.New("disallowed by robots.txt")

// SleepFunc waits between retry attempts. Tests replace it.
var SleepFunc = func(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

const (
	retryBaseDelay = 500 * time.Millisecond
	maxRedirects   = 3
)

// StatusError reports a non-2xx response
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status: %d %s", e.Code, http.StatusText(e.Code))
}

// Request describes one outbound request
type Request struct {
	Method string
	URL    string
	Header http.Header
	Form   url.Values

	// NoCache bypasses the response cache
	NoCache bool
}

// Result contains the response body and metadata
type Result struct {
	Body        []byte
	StatusCode  int
	ContentType string
	FinalURL    string
	FromCache   bool
}

// Fetcher executes requests
type Fetcher struct {
	httpClient  *http.Client
	userAgent   string
	maxBytes    int64
	maxAttempts int
	limiter     *worker.Limiter
	robots      *util.RobotsChecker
	cache       cache.Cache
	metrics     *observability.Metrics
	logger      zerolog.Logger
}

// Option configures a Fetcher
type Option func(*Fetcher)

// WithLimiter rate limits requests per host
func WithLimiter(l *worker.Limiter) Option {
	return func(f *Fetcher) { f.limiter = l }
}

// WithRobots enforces robots.txt
func WithRobots(r *util.RobotsChecker) Option {
	return func(f *Fetcher) { f.robots = r }
}

// WithCache caches successful anonymous responses
func WithCache(c cache.Cache) Option {
	return func(f *Fetcher) { f.cache = c }
}

// WithMetrics records fetch outcomes
func WithMetrics(m *observability.Metrics) Option {
	return func(f *Fetcher) { f.metrics = m }
}

// WithLogger sets the logger
func WithLogger(l zerolog.Logger) Option {
	return func(f *Fetcher) { f.logger = l }
}

// NewFetcher creates a new Fetcher with the given configuration
func NewFetcher(cfg model.HTTPConfig, opts ...Option) *Fetcher {
	maxBytes := cfg.MaxBodyBytes
	if maxBytes <= 0 {
		maxBytes = 8 << 20
	}
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	transport := &http.Transport{
		Proxy: util.NewProxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy),
	}
	if cfg.InsecureTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // some college sites ship broken chains
	}

	f := &Fetcher{
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		},
		userAgent:   cfg.UserAgent,
		maxBytes:    maxBytes,
		maxAttempts: attempts,
		logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch performs a GET request without retries
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Result, error) {
	return f.Do(ctx, Request{Method: http.MethodGet, URL: rawURL})
}

// FetchWithRetry performs a GET request with retries on transient failures
func (f *Fetcher) FetchWithRetry(ctx context.Context, rawURL string) (*Result, error) {
	return f.DoWithRetry(ctx, Request{Method: http.MethodGet, URL: rawURL})
}

// DoWithRetry executes req, retrying transient failures with jittered
// exponential backoff. Permanent failures return immediately.
func (f *Fetcher) DoWithRetry(ctx context.Context, req Request) (*Result, error) {
	var lastErr error
	for attempt := 0; attempt < f.maxAttempts; attempt++ {
		if attempt > 0 {
			f.metrics.RecordRetry(hostOf(req.URL))
			SleepFunc(ctx, backoff(attempt))
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result, err := f.Do(ctx, req)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !isRetryableFetchError(err) {
			return nil, err
		}
		f.logger.Debug().Err(err).Str("url", req.URL).Int("attempt", attempt+1).Msg("retrying fetch")
	}
	return nil, lastErr
}

// Do executes req once
func (f *Fetcher) Do(ctx context.Context, req Request) (*Result, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	var body []byte
	if req.Form != nil {
		body = []byte(req.Form.Encode())
	}

	cacheable := f.cache != nil && !req.NoCache && req.Header.Get("Authorization") == ""
	key := cache.RequestKey(method, req.URL, body)
	if cacheable {
		if data, ok := f.cache.Get(key); ok {
			f.metrics.RecordFetch(hostOf(req.URL), "cached")
			return &Result{Body: data, StatusCode: http.StatusOK, FinalURL: req.URL, FromCache: true}, nil
		}
	}

	if f.robots != nil {
		allowed, delay, err := f.robots.CanFetch(ctx, req.URL)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		if !allowed {
			return nil, fmt.Errorf("%w: %s", ErrDisallowed, req.URL)
		}
		if delay > 0 {
			SleepFunc(ctx, delay)
		}
	}

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx, req.URL); err != nil {
			return nil, fmt.Errorf("create request: rate limit: %w", err)
		}
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("User-Agent", f.userAgent)
	httpReq.Header.Set("Accept", "text/html,application/xhtml+xml,application/json;q=0.9,*/*;q=0.8")
	httpReq.Header.Set("Accept-Language", "zh-CN,zh;q=0.9,en;q=0.8")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
	}
	for k, vs := range req.Header {
		httpReq.Header.Del(k)
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}

	resp, err := f.httpClient.Do(httpReq)
	if err != nil {
		f.metrics.RecordFetch(hostOf(req.URL), "error")
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		f.metrics.RecordFetch(hostOf(req.URL), "error")
		return nil, &StatusError{Code: resp.StatusCode}
	}

	// Read body with size limit
	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		f.metrics.RecordFetch(hostOf(req.URL), "error")
		return nil, fmt.Errorf("read body: %w", err)
	}
	f.metrics.RecordFetch(hostOf(req.URL), "ok")

	if cacheable {
		_ = f.cache.Set(key, data, 0)
	}

	return &Result{
		Body:        data,
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		FinalURL:    resp.Request.URL.String(),
	}, nil
}

// isRetryableFetchError reports whether a failed request may succeed on a
// later attempt: server errors, throttling and transport failures
func isRetryableFetchError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code >= 500 || statusErr.Code == http.StatusTooManyRequests
	}

	msg := err.Error()
	if strings.HasPrefix(msg, "unexpected status: ") {
		var code int
		if _, scanErr := fmt.Sscanf(msg, "unexpected status: %d", &code); scanErr == nil {
			return code >= 500 || code == http.StatusTooManyRequests
		}
		return false
	}
	return isTransport(err)
}

func isTransport(err error) bool {
	return strings.HasPrefix(err.Error(), "fetch: ")
}

func backoff(attempt int) time.Duration {
	d := retryBaseDelay << (attempt - 1)
	jitter := time.Duration(rand.Int64N(int64(d)/2 + 1))
	return d + jitter
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Host
}
