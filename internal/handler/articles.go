package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"articles-cache-api/internal/model"
	"articles-cache-api/internal/service"
	"articles-cache-api/pkg/apierror"
	"articles-cache-api/pkg/response"
)

// ArticleService is the read API the article handlers serve from.
type ArticleService interface {
	ListAll(ctx context.Context) ([]json.RawMessage, error)
	ListPage(ctx context.Context, page, pageSize int) (*model.Page, error)
	GetByID(ctx context.Context, id string) (json.RawMessage, error)
	GetBySlug(ctx context.Context, slug string) (json.RawMessage, error)
}

// ArticleHandler handles article HTTP requests.
type ArticleHandler struct {
	articles ArticleService
	log      *zap.Logger
}

// NewArticleHandler creates a new article handler.
func NewArticleHandler(articles ArticleService, logger *zap.Logger) *ArticleHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ArticleHandler{
		articles: articles,
		log:      logger.Named("handler"),
	}
}

// ListArticles handles GET /articles
// Without a page parameter the full list is returned; with ?page=N[&pageSize=M]
// a single page is returned together with its pagination meta.
func (h *ArticleHandler) ListArticles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if !q.Has("page") && !q.Has("pageSize") {
		items, err := h.articles.ListAll(r.Context())
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		response.OK(w, items)
		return
	}

	page, err := intParam(q.Get("page"))
	if err != nil {
		response.Error(w, apierror.BadRequest("page must be a positive integer"))
		return
	}
	pageSize, err := intParam(q.Get("pageSize"))
	if err != nil {
		response.Error(w, apierror.BadRequest("pageSize must be a positive integer"))
		return
	}

	p, err := h.articles.ListPage(r.Context(), page, pageSize)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	pg := p.Meta.Pagination
	response.JSONWithMeta(w, http.StatusOK, p.Data, response.Meta{
		Page:      pg.Page,
		PageSize:  pg.PageSize,
		PageCount: pg.PageCount,
		Total:     pg.Total,
	})
}

// GetArticle handles GET /articles/{id}
func (h *ArticleHandler) GetArticle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		response.Error(w, apierror.BadRequest("id is required"))
		return
	}

	item, err := h.articles.GetByID(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.OK(w, item)
}

// GetArticleBySlug handles GET /articles/slug/{slug}
func (h *ArticleHandler) GetArticleBySlug(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if slug == "" {
		response.Error(w, apierror.BadRequest("slug is required"))
		return
	}

	item, err := h.articles.GetBySlug(r.Context(), slug)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.OK(w, item)
}

// writeError maps service errors onto API errors.
func (h *ArticleHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		response.Error(w, apierror.NotFound("Article not found"))
	case errors.Is(err, context.Canceled):
		// Client went away; nothing useful to send.
		h.log.Debug("request cancelled", zap.String("path", r.URL.Path))
	case errors.Is(err, service.ErrUpstreamUnavailable), errors.Is(err, context.DeadlineExceeded):
		h.log.Error("upstream request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err))
		response.Error(w, apierror.BadGateway("Failed to fetch articles from upstream"))
	default:
		h.log.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		response.Error(w, err)
	}
}

// intParam parses an optional positive integer query parameter; empty means 0.
func intParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, errors.New("not a positive integer")
	}
	return n, nil
}
