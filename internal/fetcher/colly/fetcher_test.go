package collyfetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestFetchReturnsPage(t *testing.T) {
	t.Parallel()

	const body = "<html><body><table><tr><th>Pos</th><th>Driver</th></tr></table></body></html>"
	var gotAgent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAgent = r.UserAgent()
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	f := New(Config{UserAgent: "pitboard-test", Timeout: 5 * time.Second})
	page, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}

	if page.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", page.StatusCode)
	}
	if string(page.Body) != body {
		t.Fatalf("unexpected body %q", page.Body)
	}
	if page.UsedJS {
		t.Fatal("plain fetch must not report JS usage")
	}
	if page.Duration <= 0 {
		t.Fatal("expected a measured duration")
	}
	if gotAgent != "pitboard-test" {
		t.Fatalf("expected user agent override, got %q", gotAgent)
	}
}

func TestFetchServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	f := New(Config{Timeout: 5 * time.Second})
	if _, err := f.Fetch(context.Background(), srv.URL); err == nil {
		t.Fatal("expected error for 503 response")
	}
}

func TestFetchMaxPageBytes(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 2048)))
	}))
	defer srv.Close()

	f := New(Config{Timeout: 5 * time.Second, MaxPageBytes: 1024})
	if _, err := f.Fetch(context.Background(), srv.URL); err == nil {
		t.Fatal("expected error when page exceeds max bytes")
	}
}

func TestFetchContextCancellation(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
		_, _ = w.Write([]byte("late"))
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	f := New(Config{Timeout: 5 * time.Second})
	if _, err := f.Fetch(ctx, srv.URL); err == nil {
		t.Fatal("expected cancellation error")
	}
}

func TestFetchSetsAcceptHeader(t *testing.T) {
	t.Parallel()

	var gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAccept = r.Header.Get("Accept")
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f := New(Config{Timeout: 5 * time.Second})
	if _, err := f.Fetch(context.Background(), srv.URL); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !strings.Contains(gotAccept, "text/html") {
		t.Fatalf("expected html accept header, got %q", gotAccept)
	}
}
