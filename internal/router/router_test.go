package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap/zaptest"

	"articles-cache-api/internal/cache"
	"articles-cache-api/internal/codec"
	"articles-cache-api/internal/handler"
	"articles-cache-api/internal/model"
	"articles-cache-api/internal/service"
)

type staticSource struct{}

func (staticSource) FetchPage(ctx context.Context, page, pageSize int) (*model.Page, error) {
	return &model.Page{
		Data: []json.RawMessage{json.RawMessage(`{"id":1}`)},
		Meta: model.PageMeta{Pagination: model.Pagination{Page: 1, PageSize: pageSize, PageCount: 1, Total: 1}},
	}, nil
}

func (staticSource) FetchByID(ctx context.Context, id string) (json.RawMessage, error) {
	return json.RawMessage(`{"id":1}`), nil
}

func (staticSource) FetchBySlug(ctx context.Context, slug string) ([]json.RawMessage, error) {
	return []json.RawMessage{json.RawMessage(`{"id":1}`)}, nil
}

func newTestRouter(t *testing.T, adminKeys []string) http.Handler {
	t.Helper()
	log := zaptest.NewLogger(t)
	store := cache.NewMemoryCache(0)
	t.Cleanup(func() { store.Close() })

	articles := service.NewArticleService(staticSource{}, store, codec.JSON{}, service.ArticleConfig{}, log)
	return New(Config{
		Handler:        handler.New("articles-cache-api", "test", store, "memory"),
		ArticleHandler: handler.NewArticleHandler(articles, log),
		AdminHandler:   handler.NewAdminHandler(articles, "memory", "json"),
		AdminKeys:      adminKeys,
		AllowedOrigins: []string{"https://articles.example.com"},
		CORSMaxAge:     300,
		Logger:         log,
	})
}

func TestRoutes(t *testing.T) {
	r := newTestRouter(t, []string{"secret"})

	tests := []struct {
		target   string
		header   map[string]string
		wantCode int
	}{
		{"/articles", nil, http.StatusOK},
		{"/articles?page=1", nil, http.StatusOK},
		{"/articles/1", nil, http.StatusOK},
		{"/articles/slug/hello", nil, http.StatusOK},
		{"/api/status", nil, http.StatusOK},
		{"/api/v1/health", nil, http.StatusOK},
		{"/api/v1/ready", nil, http.StatusOK},
		{"/api/v1/admin/stats", nil, http.StatusUnauthorized},
		{"/api/v1/admin/stats", map[string]string{"X-API-Key": "wrong"}, http.StatusUnauthorized},
		{"/api/v1/admin/stats", map[string]string{"X-API-Key": "secret"}, http.StatusOK},
		{"/api/v1/admin/stats", map[string]string{"Authorization": "Bearer secret"}, http.StatusOK},
		{"/nope", nil, http.StatusNotFound},
	}

	for _, tc := range tests {
		req := httptest.NewRequest(http.MethodGet, tc.target, nil)
		for k, v := range tc.header {
			req.Header.Set(k, v)
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		if rec.Code != tc.wantCode {
			t.Errorf("GET %s %v: status = %d, want %d", tc.target, tc.header, rec.Code, tc.wantCode)
		}
		if rec.Header().Get("X-Request-ID") == "" {
			t.Errorf("GET %s: missing X-Request-ID", tc.target)
		}
	}
}

func TestAdminRoutesDisabledWithoutKeys(t *testing.T) {
	r := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/stats", nil)
	req.Header.Set("X-API-Key", "anything")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestCORS(t *testing.T) {
	r := newTestRouter(t, nil)

	tests := []struct {
		origin string
		want   string
	}{
		{"https://articles.example.com", "https://articles.example.com"},
		{"https://evil.example.com", ""},
	}
	for _, tc := range tests {
		req := httptest.NewRequest(http.MethodGet, "/articles", nil)
		req.Header.Set("Origin", tc.origin)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tc.want {
			t.Errorf("origin %s: Access-Control-Allow-Origin = %q, want %q", tc.origin, got, tc.want)
		}
	}
}

func TestRequestIDPropagated(t *testing.T) {
	r := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Errorf("X-Request-ID = %q, want abc-123", got)
	}
}
