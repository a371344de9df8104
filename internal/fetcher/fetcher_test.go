package fetcher

import (
	"compress/gzip"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gretools/greharvest/internal/config"
	"github.com/gretools/greharvest/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

// stubFetcher fails a fixed number of times before succeeding.
type stubFetcher struct {
	failures  int
	calls     int
	retryable bool
}

func (s *stubFetcher) Fetch(ctx context.Context, req *types.Request) (*types.Response, error) {
	s.calls++
	if s.calls <= s.failures {
		return nil, &types.FetchError{URL: req.URLString(), Err: errors.New("boom"), Retryable: s.retryable}
	}
	return &types.Response{StatusCode: 200, Body: []byte("ok"), FinalURL: req.URLString()}, nil
}

func (s *stubFetcher) Close() error { return nil }
func (s *stubFetcher) Type() string { return "stub" }

func TestFetchWithRetryEventualSuccess(t *testing.T) {
	f := &stubFetcher{failures: 2, retryable: true}
	req, _ := types.NewRequest("https://example.com/q.html")
	req.MaxRetries = 3

	resp, err := FetchWithRetry(context.Background(), f, req, time.Millisecond, testLogger)
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if resp.StatusCode != 200 {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if f.calls != 3 {
		t.Errorf("calls = %d, want 3", f.calls)
	}
}

func TestFetchWithRetryExhaustion(t *testing.T) {
	f := &stubFetcher{failures: 10, retryable: true}
	req, _ := types.NewRequest("https://example.com/q.html")
	req.MaxRetries = 2

	_, err := FetchWithRetry(context.Background(), f, req, time.Millisecond, testLogger)
	if err == nil {
		t.Fatal("expected exhaustion error")
	}
	if !errors.Is(err, types.ErrMaxRetries) {
		t.Errorf("expected ErrMaxRetries, got %v", err)
	}
	// Initial attempt plus MaxRetries retries.
	if f.calls != 3 {
		t.Errorf("calls = %d, want 3", f.calls)
	}
}

func TestFetchWithRetryNonRetryable(t *testing.T) {
	f := &stubFetcher{failures: 10, retryable: false}
	req, _ := types.NewRequest("https://example.com/q.html")
	req.MaxRetries = 3

	_, err := FetchWithRetry(context.Background(), f, req, time.Millisecond, testLogger)
	if err == nil {
		t.Fatal("expected error")
	}
	if f.calls != 1 {
		t.Errorf("non-retryable error should not retry, calls = %d", f.calls)
	}
}

func TestFetchWithRetryContextCancel(t *testing.T) {
	f := &stubFetcher{failures: 10, retryable: true}
	req, _ := types.NewRequest("https://example.com/q.html")
	req.MaxRetries = 5

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := FetchWithRetry(ctx, f, req, time.Hour, testLogger)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func newTestFetcher(t *testing.T) *HTTPFetcher {
	t.Helper()
	f, err := NewHTTPFetcher(config.DefaultConfig(), testLogger)
	if err != nil {
		t.Fatalf("create fetcher: %v", err)
	}
	return f
}

func TestHTTPFetcherSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			t.Error("missing User-Agent header")
		}
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html><body>hello</body></html>"))
	}))
	defer server.Close()

	f := newTestFetcher(t)
	defer f.Close()

	req, _ := types.NewRequest(server.URL)
	resp, err := f.Fetch(context.Background(), req)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !resp.IsSuccess() {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if string(resp.Body) != "<html><body>hello</body></html>" {
		t.Errorf("body = %q", resp.Body)
	}
}

func TestHTTPFetcherGzip(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		gz.Write([]byte("<html>compressed</html>"))
		gz.Close()
	}))
	defer server.Close()

	f := newTestFetcher(t)
	defer f.Close()

	req, _ := types.NewRequest(server.URL)
	resp, err := f.Fetch(context.Background(), req)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if string(resp.Body) != "<html>compressed</html>" {
		t.Errorf("body = %q", resp.Body)
	}
}

func TestHTTPFetcherBadRequestIsRetryable(t *testing.T) {
	// The forum intermittently serves 400 for valid pages.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	f := newTestFetcher(t)
	defer f.Close()

	req, _ := types.NewRequest(server.URL)
	_, err := f.Fetch(context.Background(), req)

	var fe *types.FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	if !fe.Retryable {
		t.Error("400 should be retryable")
	}
	if fe.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d", fe.StatusCode)
	}
}

func TestHTTPFetcherNotFoundNotRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	f := newTestFetcher(t)
	defer f.Close()

	req, _ := types.NewRequest(server.URL)
	_, err := f.Fetch(context.Background(), req)

	var fe *types.FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	if fe.Retryable {
		t.Error("404 should not be retryable")
	}
}

func TestHTTPFetcherRateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	f := newTestFetcher(t)
	defer f.Close()

	req, _ := types.NewRequest(server.URL)
	_, err := f.Fetch(context.Background(), req)

	var fe *types.FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	if !fe.Retryable || fe.RetryAfter != 7*time.Second {
		t.Errorf("retryable=%v retryAfter=%s", fe.Retryable, fe.RetryAfter)
	}
}

func TestHTTPFetcherServerErrorThenRetrySucceeds(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("<html>recovered</html>"))
	}))
	defer server.Close()

	f := newTestFetcher(t)
	defer f.Close()

	req, _ := types.NewRequest(server.URL)
	req.MaxRetries = 2
	resp, err := FetchWithRetry(context.Background(), f, req, time.Millisecond, testLogger)
	if err != nil {
		t.Fatalf("expected recovery, got %v", err)
	}
	if string(resp.Body) != "<html>recovered</html>" {
		t.Errorf("body = %q", resp.Body)
	}
	if hits.Load() != 2 {
		t.Errorf("hits = %d, want 2", hits.Load())
	}
}

func TestParseRetryAfter(t *testing.T) {
	if d := parseRetryAfter("30"); d != 30*time.Second {
		t.Errorf("got %s", d)
	}
	if d := parseRetryAfter("900"); d != 120*time.Second {
		t.Errorf("cap failed: %s", d)
	}
	if d := parseRetryAfter(""); d != 5*time.Second {
		t.Errorf("default failed: %s", d)
	}
}
