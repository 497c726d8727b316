// Package codec serializes cache entries. Every codec must round-trip the raw
// JSON item bytes unchanged.
package codec

import (
	"encoding/json"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/vmihailenco/msgpack/v5"
)

// Codec encodes values to bytes for the cache store and back.
type Codec interface {
	Name() string
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// New returns the codec registered under name.
func New(name string) (Codec, error) {
	switch name {
	case "", "json":
		return JSON{}, nil
	case "msgpack":
		return Msgpack{}, nil
	case "cbor":
		return CBOR{}, nil
	default:
		return nil, fmt.Errorf("unknown cache codec %q", name)
	}
}

// JSON stores entries as plain JSON, readable with redis-cli.
type JSON struct{}

func (JSON) Name() string                       { return "json" }
func (JSON) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (JSON) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// Msgpack stores entries with vmihailenco/msgpack. Raw JSON items are
// carried as binary strings.
type Msgpack struct{}

func (Msgpack) Name() string                       { return "msgpack" }
func (Msgpack) Marshal(v any) ([]byte, error)      { return msgpack.Marshal(v) }
func (Msgpack) Unmarshal(data []byte, v any) error { return msgpack.Unmarshal(data, v) }

// CBOR stores entries with fxamacker/cbor.
type CBOR struct{}

func (CBOR) Name() string                       { return "cbor" }
func (CBOR) Marshal(v any) ([]byte, error)      { return cbor.Marshal(v) }
func (CBOR) Unmarshal(data []byte, v any) error { return cbor.Unmarshal(data, v) }
