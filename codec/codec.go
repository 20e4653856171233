// Package codec serializes vec manifests.
//
// Manifests are self-describing: Wrap prefixes the encoded bytes with the
// codec name and Unwrap selects the codec by that name, so a store written
// with one codec stays readable after the default changes.
package codec

import (
	"errors"
	"fmt"
)

// Codec encodes/decodes values.
// Implementations must be safe for concurrent use.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// ErrUnknownCodec reports a codec name with no built-in implementation.
var ErrUnknownCodec = errors.New("codec: unknown codec")

// ByName returns a built-in codec by its stable name.
func ByName(name string) (Codec, bool) {
	switch name {
	case "json":
		return JSON{}, true
	case "go-json":
		return GoJSON{}, true
	default:
		return nil, false
	}
}

// Wrap marshals v with c and prefixes the result with c's name:
// [name length u8][name][payload].
func Wrap(c Codec, v any) ([]byte, error) {
	if c == nil {
		c = Default
	}
	name := c.Name()
	if len(name) == 0 || len(name) > 255 {
		return nil, fmt.Errorf("codec: invalid name %q", name)
	}
	b, err := c.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("codec %s: marshal: %w", name, err)
	}
	out := make([]byte, 0, 1+len(name)+len(b))
	out = append(out, byte(len(name)))
	out = append(out, name...)
	return append(out, b...), nil
}

// Unwrap decodes data produced by Wrap into v and returns the codec that
// was recorded.
func Unwrap(data []byte, v any) (Codec, error) {
	if len(data) == 0 || len(data) < 1+int(data[0]) {
		return nil, fmt.Errorf("codec: truncated header (%d bytes)", len(data))
	}
	name := string(data[1 : 1+int(data[0])])
	c, ok := ByName(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
	}
	if err := c.Unmarshal(data[1+len(name):], v); err != nil {
		return nil, fmt.Errorf("codec %s: unmarshal: %w", name, err)
	}
	return c, nil
}
