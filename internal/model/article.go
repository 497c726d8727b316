package model

import (
	"bytes"
	"encoding/json"
)

// Page is one upstream list response: the items plus pagination metadata.
// Items are kept as raw JSON; their shape belongs to the content API.
type Page struct {
	Data []json.RawMessage `json:"data" msgpack:"data" cbor:"data"`
	Meta PageMeta          `json:"meta" msgpack:"meta" cbor:"meta"`
}

// PageMeta is the meta block of a list response. Pagination is parsed; Raw
// keeps the whole object as received so fields other than pagination survive
// caching.
type PageMeta struct {
	Pagination Pagination      `json:"pagination" msgpack:"pagination" cbor:"pagination"`
	Raw        json.RawMessage `json:"-" msgpack:"raw,omitempty" cbor:"raw,omitempty"`
}

type plainPageMeta PageMeta

// MarshalJSON writes the upstream meta object unchanged when one was received.
func (m PageMeta) MarshalJSON() ([]byte, error) {
	if len(m.Raw) > 0 {
		return m.Raw, nil
	}
	return json.Marshal(plainPageMeta(m))
}

// UnmarshalJSON parses pagination and keeps a copy of the raw object.
func (m *PageMeta) UnmarshalJSON(data []byte) error {
	var p plainPageMeta
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*m = PageMeta(p)
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null")) {
		m.Raw = append(json.RawMessage(nil), trimmed...)
	}
	return nil
}

// Pagination describes where a page sits in the full result set.
// Page numbers are 1-based.
type Pagination struct {
	Page      int `json:"page" msgpack:"page" cbor:"page"`
	PageSize  int `json:"pageSize" msgpack:"pageSize" cbor:"pageSize"`
	PageCount int `json:"pageCount" msgpack:"pageCount" cbor:"pageCount"`
	Total     int `json:"total" msgpack:"total" cbor:"total"`
}

// TotalPages returns the discovered page count, treating a missing or
// nonsensical value as a single page.
func (p *Page) TotalPages() int {
	if p.Meta.Pagination.PageCount < 1 {
		return 1
	}
	return p.Meta.Pagination.PageCount
}

// Item is the single-object envelope returned by the by-id endpoint.
type Item struct {
	Data json.RawMessage `json:"data"`
}
