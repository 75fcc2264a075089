package codec

import (
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// CBOR stores values as CBOR (fxamacker/cbor). Build it with NewCBOR or
// MustCBOR; the zero value has no modes and will panic.
//
// deterministic selects the Core Deterministic encoding kvcache also uses for
// structured keys, so equal values produce equal payloads (useful when the
// store deduplicates or when payloads are compared across writers). Times
// are written as RFC 3339 strings either way.
//
// Untyped maps (V = any, or any-typed fields) decode to map[string]any, the
// shape the JSON codec produces, so switching codecs does not change what
// callers type-assert on.
type CBOR[V any] struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

var _ Codec[struct{}] = CBOR[struct{}]{}

func NewCBOR[V any](deterministic bool) (CBOR[V], error) {
	eo := cbor.PreferredUnsortedEncOptions()
	if deterministic {
		eo = cbor.CoreDetEncOptions()
	}
	eo.Time = cbor.TimeRFC3339Nano
	em, err := eo.EncMode()
	if err != nil {
		return CBOR[V]{}, err
	}

	do := cbor.DecOptions{DefaultMapType: reflect.TypeOf(map[string]any(nil))}
	dm, err := do.DecMode()
	if err != nil {
		return CBOR[V]{}, err
	}
	return CBOR[V]{enc: em, dec: dm}, nil
}

// MustCBOR panics if the modes cannot be built. For package-level vars.
func MustCBOR[V any](deterministic bool) CBOR[V] {
	c, err := NewCBOR[V](deterministic)
	if err != nil {
		panic(err)
	}
	return c
}

func (c CBOR[V]) Encode(v V) ([]byte, error) { return c.enc.Marshal(v) }

func (c CBOR[V]) Decode(b []byte) (V, error) {
	var v V
	err := c.dec.Unmarshal(b, &v)
	return v, err
}
