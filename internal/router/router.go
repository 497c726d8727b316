package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"articles-cache-api/internal/handler"
	"articles-cache-api/internal/middleware"
	"articles-cache-api/pkg/apierror"
	"articles-cache-api/pkg/response"
)

// Config holds the configuration for creating a router.
type Config struct {
	Handler        *handler.Handler
	ArticleHandler *handler.ArticleHandler
	AdminHandler   *handler.AdminHandler
	AdminKeys      []string
	AllowedOrigins []string
	CORSMaxAge     int
	Logger         *zap.Logger
}

// New creates and configures the HTTP router.
func New(cfg Config) *chi.Mux {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()

	// Global middleware stack (applies to ALL routes)
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logging(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-API-Key"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           cfg.CORSMaxAge,
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, apierror.NotFound(""))
	})

	if cfg.ArticleHandler != nil {
		r.Route("/articles", func(r chi.Router) {
			r.Get("/", cfg.ArticleHandler.ListArticles)
			r.Get("/slug/{slug}", cfg.ArticleHandler.GetArticleBySlug)
			r.Get("/{id}", cfg.ArticleHandler.GetArticle)
		})
	}

	if cfg.Handler != nil {
		r.Get("/api/status", cfg.Handler.Status)
	}

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.Handler != nil {
			r.Get("/health", cfg.Handler.Health)
			r.Get("/ready", cfg.Handler.Ready)
		}

		// Admin endpoints exist only when keys are configured.
		if cfg.AdminHandler != nil && len(cfg.AdminKeys) > 0 {
			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.APIKey(cfg.AdminKeys))
				r.Get("/stats", cfg.AdminHandler.GetStats)
			})
		}
	})

	return r
}
