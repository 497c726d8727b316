package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"articles-cache-api/internal/cache"
	"articles-cache-api/internal/codec"
	"articles-cache-api/internal/model"
	"articles-cache-api/internal/upstream"
)

// ArticleSource is the content API as seen by the service.
// FetchByID reports a missing article with an error matching upstream.ErrNotFound.
type ArticleSource interface {
	FetchPage(ctx context.Context, page, pageSize int) (*model.Page, error)
	FetchByID(ctx context.Context, id string) (json.RawMessage, error)
	FetchBySlug(ctx context.Context, slug string) ([]json.RawMessage, error)
}

// ArticleConfig holds the fetch engine tunables.
type ArticleConfig struct {
	TTL            time.Duration
	PageSize       int
	MaxPageSize    int
	MaxConcurrency int
	KeyPrefix      string

	// MaxPages bounds the page count a list-all will fan out over.
	MaxPages int

	// SingleFlight collapses concurrent misses on the same key into one upstream fetch.
	SingleFlight bool
}

// DefaultArticleConfig returns the defaults used when a field is left zero.
func DefaultArticleConfig() ArticleConfig {
	return ArticleConfig{
		TTL:            30 * time.Minute,
		PageSize:       15,
		MaxPageSize:    100,
		MaxConcurrency: 5,
		MaxPages:       1000,
	}
}

// Stats is a snapshot of the service counters.
type Stats struct {
	Hits          int64 `json:"hits"`
	Misses        int64 `json:"misses"`
	CacheErrors   int64 `json:"cache_errors"`
	UpstreamCalls int64 `json:"upstream_calls"`
	SharedFetches int64 `json:"shared_fetches"`
}

type counters struct {
	hits          atomic.Int64
	misses        atomic.Int64
	cacheErrors   atomic.Int64
	upstreamCalls atomic.Int64
	sharedFetches atomic.Int64
}

// ArticleService serves articles cache-aside: every read checks the cache,
// falls back to the content API on a miss and stores the result with a TTL.
type ArticleService struct {
	source ArticleSource
	cache  cache.Cache
	codec  codec.Codec
	keys   KeyBuilder
	cfg    ArticleConfig
	sf     *singleflight.Group
	log    *zap.Logger
	stats  counters
}

// NewArticleService creates the service. Zero config fields take their defaults;
// a nil codec means JSON.
func NewArticleService(source ArticleSource, store cache.Cache, c codec.Codec, cfg ArticleConfig, logger *zap.Logger) *ArticleService {
	def := DefaultArticleConfig()
	if cfg.TTL <= 0 {
		cfg.TTL = def.TTL
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = def.PageSize
	}
	if cfg.MaxPageSize < cfg.PageSize {
		cfg.MaxPageSize = max(def.MaxPageSize, cfg.PageSize)
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = def.MaxConcurrency
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = def.MaxPages
	}
	if c == nil {
		c = codec.JSON{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &ArticleService{
		source: source,
		cache:  store,
		codec:  c,
		keys:   KeyBuilder{Prefix: cfg.KeyPrefix},
		cfg:    cfg,
		log:    logger.Named("articles"),
	}
	if cfg.SingleFlight {
		s.sf = &singleflight.Group{}
	}
	return s
}

// ListAll returns every article, newest first. On a miss it fetches page 1,
// learns the page count and fetches the remaining pages concurrently.
func (s *ArticleService) ListAll(ctx context.Context) ([]json.RawMessage, error) {
	return cacheAside(ctx, s, s.keys.All(), s.fetchAll)
}

// ListPage returns one page envelope. page < 1 means the first page and
// pageSize <= 0 means the default size; sizes above the maximum are capped.
func (s *ArticleService) ListPage(ctx context.Context, page, pageSize int) (*model.Page, error) {
	page, pageSize = s.normalizePage(page, pageSize)

	return cacheAside(ctx, s, s.keys.Page(page, pageSize), func(ctx context.Context) (*model.Page, error) {
		p, err := s.fetchPage(ctx, "list-page", page, pageSize)
		if err != nil {
			return nil, err
		}
		if p.Data == nil {
			p.Data = []json.RawMessage{}
		}
		return p, nil
	})
}

// GetByID returns a single article.
func (s *ArticleService) GetByID(ctx context.Context, id string) (json.RawMessage, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("empty id: %w", ErrNotFound)
	}

	return cacheAside(ctx, s, s.keys.ByID(id), func(ctx context.Context) (json.RawMessage, error) {
		s.stats.upstreamCalls.Add(1)
		item, err := s.source.FetchByID(ctx, id)
		if errors.Is(err, upstream.ErrNotFound) {
			return nil, fmt.Errorf("article %q: %w", id, ErrNotFound)
		}
		if err != nil {
			return nil, &UpstreamError{Op: "by-id", Target: id, Err: err}
		}
		return item, nil
	})
}

// GetBySlug returns the first article whose slug matches. A slug with no
// match yields ErrNotFound and nothing is cached for it.
func (s *ArticleService) GetBySlug(ctx context.Context, slug string) (json.RawMessage, error) {
	if strings.TrimSpace(slug) == "" {
		return nil, fmt.Errorf("empty slug: %w", ErrNotFound)
	}

	return cacheAside(ctx, s, s.keys.BySlug(slug), func(ctx context.Context) (json.RawMessage, error) {
		s.stats.upstreamCalls.Add(1)
		items, err := s.source.FetchBySlug(ctx, slug)
		if err != nil {
			return nil, &UpstreamError{Op: "by-slug", Target: slug, Err: err}
		}
		if len(items) == 0 {
			return nil, fmt.Errorf("article with slug %q: %w", slug, ErrNotFound)
		}
		return items[0], nil
	})
}

// Stats returns a snapshot of the counters.
func (s *ArticleService) Stats() Stats {
	return Stats{
		Hits:          s.stats.hits.Load(),
		Misses:        s.stats.misses.Load(),
		CacheErrors:   s.stats.cacheErrors.Load(),
		UpstreamCalls: s.stats.upstreamCalls.Load(),
		SharedFetches: s.stats.sharedFetches.Load(),
	}
}

// fetchAll assembles the full list. Pages land in slots indexed by page
// number, so the result is in page order whatever order fetches complete in.
func (s *ArticleService) fetchAll(ctx context.Context) ([]json.RawMessage, error) {
	first, err := s.fetchPage(ctx, "list-all", 1, s.cfg.PageSize)
	if err != nil {
		return nil, err
	}

	pageCount := first.TotalPages()
	if pageCount > s.cfg.MaxPages {
		return nil, &UpstreamError{
			Op:     "list-all",
			Target: "page 1",
			Err:    fmt.Errorf("%w: upstream reported %d pages, limit is %d", ErrTooManyPages, pageCount, s.cfg.MaxPages),
		}
	}
	if pageCount <= 1 {
		if first.Data == nil {
			return []json.RawMessage{}, nil
		}
		return first.Data, nil
	}

	slots := make([][]json.RawMessage, pageCount)
	slots[0] = first.Data

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.MaxConcurrency)

	for page := 2; page <= pageCount; page++ {
		page := page
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return &AggregationError{Page: page, Err: err}
			}

			p, err := s.fetchPage(gctx, "list-all", page, s.cfg.PageSize)
			if err != nil {
				return &AggregationError{Page: page, Err: err}
			}
			if got := p.Meta.Pagination.PageCount; got != 0 && got != pageCount {
				return &AggregationError{Page: page, Err: &UpstreamError{
					Op:     "list-all",
					Target: strconv.Itoa(page),
					Err:    fmt.Errorf("%w: page 1 reported %d pages, page %d reported %d", ErrInconsistentSnapshot, pageCount, page, got),
				}}
			}

			slots[page-1] = p.Data
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 0
	for _, items := range slots {
		total += len(items)
	}
	all := make([]json.RawMessage, 0, total)
	for _, items := range slots {
		all = append(all, items...)
	}

	s.log.Debug("assembled article list",
		zap.Int("pages", pageCount),
		zap.Int("items", len(all)))

	return all, nil
}

func (s *ArticleService) fetchPage(ctx context.Context, op string, page, pageSize int) (*model.Page, error) {
	s.stats.upstreamCalls.Add(1)
	p, err := s.source.FetchPage(ctx, page, pageSize)
	if err != nil {
		return nil, &UpstreamError{Op: op, Target: "page " + strconv.Itoa(page), Err: err}
	}
	return p, nil
}

func (s *ArticleService) normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = s.cfg.PageSize
	}
	if pageSize > s.cfg.MaxPageSize {
		pageSize = s.cfg.MaxPageSize
	}
	return page, pageSize
}

// cacheAside runs the read path shared by every operation:
// cache check, upstream fetch on miss, cache write, return.
func cacheAside[T any](ctx context.Context, s *ArticleService, key string, fetch func(context.Context) (T, error)) (T, error) {
	var cached T
	if s.readCache(ctx, key, &cached) {
		return cached, nil
	}

	if s.sf == nil {
		return fetchAndStore(ctx, s, key, fetch)
	}

	// The flight outlives any single caller; upstream per-call timeouts bound it.
	ch := s.sf.DoChan(key, func() (any, error) {
		return fetchAndStore(context.WithoutCancel(ctx), s, key, fetch)
	})

	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Shared {
			s.stats.sharedFetches.Add(1)
		}
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}

func fetchAndStore[T any](ctx context.Context, s *ArticleService, key string, fetch func(context.Context) (T, error)) (T, error) {
	v, err := fetch(ctx)
	if err != nil {
		return v, err
	}
	s.writeCache(ctx, key, v)
	return v, nil
}

// readCache decodes the entry at key into dst. Store errors and undecodable
// entries count as misses.
func (s *ArticleService) readCache(ctx context.Context, key string, dst any) bool {
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		s.stats.misses.Add(1)
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.stats.cacheErrors.Add(1)
			s.log.Warn("cache read failed, fetching from upstream",
				zap.String("key", key),
				zap.Error(err))
		}
		return false
	}

	if err := s.codec.Unmarshal(data, dst); err != nil {
		s.stats.misses.Add(1)
		s.stats.cacheErrors.Add(1)
		s.log.Warn("cache entry undecodable, fetching from upstream",
			zap.String("key", key),
			zap.String("codec", s.codec.Name()),
			zap.Error(err))
		return false
	}

	s.stats.hits.Add(1)
	s.log.Debug("cache hit", zap.String("key", key))
	return true
}

// writeCache stores v under key. Failures are logged and otherwise ignored.
func (s *ArticleService) writeCache(ctx context.Context, key string, v any) {
	data, err := s.codec.Marshal(v)
	if err != nil {
		s.stats.cacheErrors.Add(1)
		s.log.Error("cache entry encode failed", zap.String("key", key), zap.Error(err))
		return
	}

	if err := s.cache.Set(ctx, key, data, s.cfg.TTL); err != nil {
		s.stats.cacheErrors.Add(1)
		s.log.Warn("cache write failed",
			zap.String("key", key),
			zap.Int("bytes", len(data)),
			zap.Error(err))
		return
	}

	s.log.Debug("cached", zap.String("key", key), zap.Duration("ttl", s.cfg.TTL))
}
