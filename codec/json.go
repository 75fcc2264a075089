package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
)

// JSON is the codec a Cache uses when none is configured. The zero value is
// ready to use.
//
// With Strict set, payloads carrying fields V does not know about (or
// trailing data) fail to decode. Entries written before a value type lost a
// field then read as undecodable, and the cache drops them instead of
// serving a half-filled value.
type JSON[V any] struct {
	Strict bool
}

var _ Codec[struct{}] = JSON[struct{}]{}

func (JSON[V]) Encode(v V) ([]byte, error) { return json.Marshal(v) }

func (c JSON[V]) Decode(b []byte) (V, error) {
	var v V
	if !c.Strict {
		err := json.Unmarshal(b, &v)
		return v, err
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		return v, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		var zero V
		return zero, errTrailing
	}
	return v, nil
}

var errTrailing = errors.New("codec: trailing data after json value")
