package service

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means the content API has no article matching the id or slug.
	ErrNotFound = errors.New("article not found")

	// ErrUpstreamUnavailable matches every failure to get an answer from the content API.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrPartialAggregation matches a list-all that failed on one of its pages.
	ErrPartialAggregation = errors.New("list-all aborted")

	// ErrTooManyPages means page 1 reported more pages than the configured limit.
	ErrTooManyPages = errors.New("page count exceeds limit")

	// ErrInconsistentSnapshot means a page reported a different page count than page 1.
	ErrInconsistentSnapshot = errors.New("page count changed during aggregation")
)

// UpstreamError describes a failed call to the content API.
type UpstreamError struct {
	Op     string // list-all, list-page, by-id or by-slug
	Target string // page number, id or slug
	Err    error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("failed to fetch %s %s: %v", e.Op, e.Target, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

func (e *UpstreamError) Is(target error) bool { return target == ErrUpstreamUnavailable }

// AggregationError reports the page that aborted a list-all.
type AggregationError struct {
	Page int
	Err  error
}

func (e *AggregationError) Error() string {
	return fmt.Sprintf("failed to fetch articles: page %d: %v", e.Page, e.Err)
}

func (e *AggregationError) Unwrap() error { return e.Err }

func (e *AggregationError) Is(target error) bool { return target == ErrPartialAggregation }
