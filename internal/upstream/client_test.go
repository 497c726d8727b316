package upstream

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

func newTestClient(t *testing.T, baseURL string, cfg Config) *Client {
	t.Helper()
	cfg.BaseURL = baseURL
	c, err := New(cfg, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	c.backoff = time.Millisecond
	return c
}

func TestFetchPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/articles" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("Authorization = %q", got)
		}
		q := r.URL.Query()
		if q.Get("pagination[page]") != "2" || q.Get("pagination[pageSize]") != "15" {
			t.Errorf("pagination query = %v", q)
		}
		if q.Get("sort[0]") != "publishedAt:desc" || q.Get("populate") != "*" {
			t.Errorf("sort/populate query = %v", q)
		}
		fmt.Fprint(w, `{"data":[{"id":16},{"id":17}],"meta":{"pagination":{"page":2,"pageSize":15,"pageCount":3,"total":32}}}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, Config{Token: "secret"})
	p, err := c.FetchPage(context.Background(), 2, 15)
	if err != nil {
		t.Fatalf("FetchPage: %v", err)
	}
	if len(p.Data) != 2 || p.TotalPages() != 3 || p.Meta.Pagination.Total != 32 {
		t.Errorf("unexpected page: %+v", p)
	}
}

func TestFetchByID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/articles/42":
			fmt.Fprint(w, `{"data":{"id":42,"title":"Answer"}}`)
		case "/api/articles/7":
			fmt.Fprint(w, `{"data":null}`)
		default:
			http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, Config{})
	ctx := context.Background()

	item, err := c.FetchByID(ctx, "42")
	if err != nil {
		t.Fatalf("FetchByID: %v", err)
	}
	if string(item) != `{"id":42,"title":"Answer"}` {
		t.Errorf("item = %s", item)
	}

	if _, err := c.FetchByID(ctx, "7"); !errors.Is(err, ErrNotFound) {
		t.Errorf("null data: err = %v, want ErrNotFound", err)
	}

	_, err = c.FetchByID(ctx, "404")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("404: err = %v, want ErrNotFound", err)
	}
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusNotFound {
		t.Errorf("404: err = %v, want *StatusError", err)
	}
}

func TestFetchBySlug(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("filters[slug][$eq]"); got != "hello-world" {
			fmt.Fprint(w, `{"data":[],"meta":{"pagination":{"page":1,"pageSize":25,"pageCount":0,"total":0}}}`)
			return
		}
		fmt.Fprint(w, `{"data":[{"id":1,"slug":"hello-world"}]}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, Config{})
	ctx := context.Background()

	items, err := c.FetchBySlug(ctx, "hello-world")
	if err != nil || len(items) != 1 {
		t.Fatalf("FetchBySlug = %v, %v", items, err)
	}

	items, err = c.FetchBySlug(ctx, "missing")
	if err != nil || len(items) != 0 {
		t.Fatalf("FetchBySlug(missing) = %v, %v", items, err)
	}
}

func TestServerErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, Config{MaxRetries: 3})
	_, err := c.FetchPage(context.Background(), 1, 15)

	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusInternalServerError {
		t.Fatalf("err = %v, want 500 StatusError", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestConnectionErrorIsRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			// Drop the connection without a response.
			conn, _, err := w.(http.Hijacker).Hijack()
			if err == nil {
				conn.Close()
			}
			return
		}
		fmt.Fprint(w, `{"data":[{"id":1}],"meta":{"pagination":{"page":1,"pageSize":15,"pageCount":1,"total":1}}}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, Config{MaxRetries: 3})
	p, err := c.FetchPage(context.Background(), 1, 15)
	if err != nil {
		t.Fatalf("FetchPage: %v", err)
	}
	if len(p.Data) != 1 {
		t.Errorf("len(data) = %d", len(p.Data))
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestRetriesExhausted(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := l.Addr().String()
	l.Close()

	c := newTestClient(t, "http://"+addr, Config{MaxRetries: 2})
	if _, err := c.FetchPage(context.Background(), 1, 15); err == nil {
		t.Fatal("expected connection error")
	}
}

func TestPerCallTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, Config{Timeout: 20 * time.Millisecond, MaxRetries: 3})

	start := time.Now()
	_, err := c.FetchByID(context.Background(), "1")
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Errorf("timeout took %v; timeouts must not be retried", time.Since(start))
	}
}

func TestNewRejectsRelativeURL(t *testing.T) {
	if _, err := New(Config{BaseURL: "cms.local"}, nil); err == nil {
		t.Fatal("expected error for relative base URL")
	}
}
