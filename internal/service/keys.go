package service

import (
	"strconv"
	"strings"
)

// Key kinds. Each occupies its own segment so keys of different kinds
// can never collide, whatever the id or slug contains.
const (
	keyAll    = "articles"
	keyPage   = "articles:page"
	keyByID   = "article:id"
	keyBySlug = "article:slug"
)

// KeyBuilder derives cache keys, optionally under a namespace prefix.
type KeyBuilder struct {
	Prefix string
}

// All is the key of the full article list.
func (k KeyBuilder) All() string {
	return k.join(keyAll)
}

// Page is the key of one page envelope.
func (k KeyBuilder) Page(page, pageSize int) string {
	return k.join(keyPage, strconv.Itoa(page), "size", strconv.Itoa(pageSize))
}

// ByID is the key of a single article looked up by id.
func (k KeyBuilder) ByID(id string) string {
	return k.join(keyByID, id)
}

// BySlug is the key of a single article looked up by slug.
func (k KeyBuilder) BySlug(slug string) string {
	return k.join(keyBySlug, slug)
}

func (k KeyBuilder) join(parts ...string) string {
	key := strings.Join(parts, ":")
	if k.Prefix == "" {
		return key
	}
	return k.Prefix + ":" + key
}
