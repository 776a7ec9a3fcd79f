package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/facultyscope/internal/cache"
	"github.com/ppiankov/facultyscope/internal/model"
	"github.com/ppiankov/facultyscope/internal/util"
	"github.com/ppiankov/facultyscope/internal/worker"
)

func testConfig() model.HTTPConfig {
	return model.HTTPConfig{
		Timeout:      5 * time.Second,
		UserAgent:    "test-agent",
		MaxBodyBytes: 1 << 20,
		MaxAttempts:  3,
	}
}

func noSleep(t *testing.T) {
	t.Helper()
	orig := SleepFunc
	SleepFunc = func(context.Context, time.Duration) {}
	t.Cleanup(func() { SleepFunc = orig })
}

func TestFetchWithRetry_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != "test-agent" {
			t.Errorf("User-Agent = %q", got)
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = fmt.Fprint(w, "<html><body>OK</body></html>")
	}))
	defer server.Close()

	fetcher := NewFetcher(testConfig())
	result, err := fetcher.FetchWithRetry(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if string(result.Body) != "<html><body>OK</body></html>" {
		t.Errorf("Unexpected body: %s", result.Body)
	}
	if result.ContentType != "text/html" {
		t.Errorf("Unexpected content type: %s", result.ContentType)
	}
}

func TestFetchWithRetry_TransientThenSuccess(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := attempts.Add(1)
		if n <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = fmt.Fprint(w, "<html>OK</html>")
	}))
	defer server.Close()
	noSleep(t)

	fetcher := NewFetcher(testConfig())
	result, err := fetcher.FetchWithRetry(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected success after retries, got %v", err)
	}
	if string(result.Body) != "<html>OK</html>" {
		t.Errorf("Unexpected body: %s", result.Body)
	}
	if attempts.Load() != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts.Load())
	}
}

func TestFetchWithRetry_PermanentFailure(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()
	noSleep(t)

	fetcher := NewFetcher(testConfig())
	_, err := fetcher.FetchWithRetry(context.Background(), server.URL)
	if err == nil {
		t.Fatal("Expected error for 404, got nil")
	}
	if got := err.Error(); got != "unexpected status: 404 Not Found" {
		t.Errorf("Unexpected error: %s", got)
	}
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.Code != http.StatusNotFound {
		t.Errorf("Expected StatusError 404, got %v", err)
	}
	if attempts.Load() != 1 {
		t.Errorf("404 should not be retried, got %d attempts", attempts.Load())
	}
}

func TestFetchWithRetry_AllRetriesExhausted(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()
	noSleep(t)

	fetcher := NewFetcher(testConfig())
	_, err := fetcher.FetchWithRetry(context.Background(), server.URL)
	if err == nil {
		t.Fatal("Expected error after all retries exhausted")
	}
	if attempts.Load() != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts.Load())
	}
}

func TestFetchWithRetry_429Retried(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = fmt.Fprint(w, "<html>OK</html>")
	}))
	defer server.Close()
	noSleep(t)

	fetcher := NewFetcher(testConfig())
	if _, err := fetcher.FetchWithRetry(context.Background(), server.URL); err != nil {
		t.Fatalf("Expected success after 429 retry, got %v", err)
	}
	if attempts.Load() != 2 {
		t.Errorf("Expected 2 attempts, got %d", attempts.Load())
	}
}

func TestDo_PostForm(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm: %v", err)
			return
		}
		if got := r.PostForm.Get("columnId"); got != "50802" {
			t.Errorf("columnId = %q", got)
		}
		if got := r.Header.Get("X-Requested-With"); got != "XMLHttpRequest" {
			t.Errorf("X-Requested-With = %q", got)
		}
		_, _ = fmt.Fprint(w, `{"data":[]}`)
	}))
	defer server.Close()

	fetcher := NewFetcher(testConfig())
	result, err := fetcher.Do(context.Background(), Request{
		Method: http.MethodPost,
		URL:    server.URL,
		Header: http.Header{"X-Requested-With": {"XMLHttpRequest"}},
		Form:   map[string][]string{"columnId": {"50802"}},
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if string(result.Body) != `{"data":[]}` {
		t.Errorf("Unexpected body: %s", result.Body)
	}
}

func TestDo_Cache(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = fmt.Fprint(w, "page")
	}))
	defer server.Close()

	fetcher := NewFetcher(testConfig(), WithCache(cache.NewMemoryCache(time.Minute, time.Minute)))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := fetcher.Fetch(ctx, server.URL); err != nil {
			t.Fatalf("Fetch: %v", err)
		}
	}
	second, err := fetcher.Fetch(ctx, server.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !second.FromCache || string(second.Body) != "page" {
		t.Errorf("expected cached page, got %+v", second)
	}
	if hits.Load() != 1 {
		t.Errorf("expected 1 server hit, got %d", hits.Load())
	}

	// Authorized requests bypass the cache
	req := Request{URL: server.URL, Header: http.Header{"Authorization": {"Bearer t"}}}
	if _, err := fetcher.Do(ctx, req); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if hits.Load() != 2 {
		t.Errorf("expected authorized request to reach the server, got %d hits", hits.Load())
	}
}

func TestDo_RobotsDisallowed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			_, _ = io.WriteString(w, "User-agent: *\nDisallow: /private\n")
			return
		}
		_, _ = io.WriteString(w, "ok")
	}))
	defer server.Close()

	fetcher := NewFetcher(testConfig(),
		WithRobots(util.NewRobotsChecker("test-agent", time.Second)),
		WithLimiter(worker.NewLimiter(100, 10)),
	)

	_, err := fetcher.Fetch(context.Background(), server.URL+"/private/page.htm")
	if !errors.Is(err, ErrDisallowed) {
		t.Fatalf("expected ErrDisallowed, got %v", err)
	}
	if _, err := fetcher.Fetch(context.Background(), server.URL+"/public.htm"); err != nil {
		t.Fatalf("public page: %v", err)
	}
}

func TestDo_BodyLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "0123456789")
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.MaxBodyBytes = 4
	result, err := NewFetcher(cfg).Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(result.Body) != "0123" {
		t.Errorf("expected truncated body, got %q", result.Body)
	}
}

func TestIsRetryableFetchError(t *testing.T) {
	tests := []struct {
		err       string
		retryable bool
	}{
		{"unexpected status: 503 Service Unavailable", true},
		{"unexpected status: 500 Internal Server Error", true},
		{"unexpected status: 502 Bad Gateway", true},
		{"unexpected status: 429 Too Many Requests", true},
		{"unexpected status: 404 Not Found", false},
		{"unexpected status: 403 Forbidden", false},
		{"unexpected status: 401 Unauthorized", false},
		{"fetch: connection refused", true},
		{"fetch: connection reset by peer", true},
		{"create request: invalid URL", false},
		{"read body: unexpected EOF", false},
	}

	for _, tt := range tests {
		t.Run(tt.err, func(t *testing.T) {
			err := fmt.Errorf("%s", tt.err)
			if got := isRetryableFetchError(err); got != tt.retryable {
				t.Errorf("isRetryableFetchError(%q) = %v, want %v", tt.err, got, tt.retryable)
			}
		})
	}
}

func TestIsRetryableFetchError_Typed(t *testing.T) {
	if !isRetryableFetchError(fmt.Errorf("search: %w", &StatusError{Code: 502})) {
		t.Error("wrapped 502 should be retryable")
	}
	if isRetryableFetchError(&StatusError{Code: 400}) {
		t.Error("400 should not be retryable")
	}
	if isRetryableFetchError(nil) {
		t.Error("Expected nil error to not be retryable")
	}
	if isRetryableFetchError(context.Canceled) {
		t.Error("cancellation should not be retryable")
	}
}
