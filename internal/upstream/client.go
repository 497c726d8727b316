// Package upstream talks to the remote content API.
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"articles-cache-api/internal/model"
)

const articlesPath = "/api/articles"

// ErrNotFound is returned when the content API answers 404.
var ErrNotFound = errors.New("upstream: not found")

// StatusError reports a non-2xx response.
type StatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream: %s returned %d: %s", e.URL, e.StatusCode, e.Body)
}

// Is lets callers match a 404 with errors.Is(err, ErrNotFound).
func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// Config holds the client settings.
type Config struct {
	BaseURL    string
	Token      string
	Timeout    time.Duration
	MaxRetries int

	// MaxIdleConns is the size of the idle pool; MaxConnsPerHost bounds open
	// connections to the content API during fan-out.
	MaxIdleConns    int
	MaxConnsPerHost int
}

// Client fetches articles over a pooled HTTP transport.
type Client struct {
	http       *http.Client
	baseURL    string
	token      string
	timeout    time.Duration
	maxRetries int
	backoff    time.Duration
	log        *zap.Logger
}

// New creates a client. The returned client is safe for concurrent use.
func New(cfg Config, logger *zap.Logger) (*Client, error) {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("upstream: invalid base URL %q", cfg.BaseURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxIdle := cfg.MaxIdleConns
	if maxIdle <= 0 {
		maxIdle = 10
	}
	maxPerHost := cfg.MaxConnsPerHost
	if maxPerHost <= 0 {
		maxPerHost = 20
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        maxIdle,
		MaxIdleConnsPerHost: maxIdle,
		MaxConnsPerHost:     maxPerHost,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		ForceAttemptHTTP2:   true,
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		http:       &http.Client{Transport: transport},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.Token,
		timeout:    timeout,
		maxRetries: cfg.MaxRetries,
		backoff:    100 * time.Millisecond,
		log:        logger,
	}, nil
}

// FetchPage fetches one page of articles, newest first.
func (c *Client) FetchPage(ctx context.Context, page, pageSize int) (*model.Page, error) {
	q := url.Values{}
	q.Set("populate", "*")
	q.Set("sort[0]", "publishedAt:desc")
	q.Set("pagination[page]", strconv.Itoa(page))
	q.Set("pagination[pageSize]", strconv.Itoa(pageSize))

	var p model.Page
	if err := c.get(ctx, articlesPath, q, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// FetchByID fetches a single article and unwraps its data envelope.
// A null data field is reported as ErrNotFound.
func (c *Client) FetchByID(ctx context.Context, id string) (json.RawMessage, error) {
	q := url.Values{}
	q.Set("populate", "*")

	var item model.Item
	if err := c.get(ctx, articlesPath+"/"+url.PathEscape(id), q, &item); err != nil {
		return nil, err
	}
	if len(item.Data) == 0 || string(item.Data) == "null" {
		return nil, ErrNotFound
	}
	return item.Data, nil
}

// FetchBySlug returns every article whose slug equals slug.
func (c *Client) FetchBySlug(ctx context.Context, slug string) ([]json.RawMessage, error) {
	q := url.Values{}
	q.Set("filters[slug][$eq]", slug)
	q.Set("populate", "*")

	var p model.Page
	if err := c.get(ctx, articlesPath, q, &p); err != nil {
		return nil, err
	}
	return p.Data, nil
}

// get performs one logical GET, retrying transient connection errors.
func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	target := c.baseURL + path
	if len(q) > 0 {
		target += "?" + q.Encode()
	}

	var err error
	for attempt := 0; ; attempt++ {
		err = c.do(ctx, target, out)
		if err == nil || attempt >= c.maxRetries || !isTransient(ctx, err) {
			return err
		}

		c.log.Debug("retrying upstream request",
			zap.String("url", target),
			zap.Int("attempt", attempt+1),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return err
		case <-time.After(c.backoff * time.Duration(attempt+1)):
		}
	}
}

func (c *Client) do(ctx context.Context, target string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("upstream: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{StatusCode: resp.StatusCode, URL: target, Body: strings.TrimSpace(string(body))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("upstream: decode %s: %w", target, err)
	}
	return nil
}

// isTransient reports whether err is a connection-level failure worth retrying.
// HTTP status errors and caller cancellation are never retried.
func isTransient(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return false
	}
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return !netErr.Timeout()
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
