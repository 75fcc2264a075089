package codec

import (
	"errors"
	"fmt"
)

// ErrTooLarge is wrapped by Limit when a payload exceeds its bound.
var ErrTooLarge = errors.New("codec: payload too large")

// Limit bounds payload sizes around another codec. Zero or negative bounds
// are off.
//
// MaxEncode keeps oversized results out of the store: the Cache treats the
// failure like any encode error, so Set reports false and the value is
// still returned to the caller of a wrapped function. MaxDecode guards
// reads from a store shared with other writers.
type Limit[V any] struct {
	Inner     Codec[V]
	MaxEncode int
	MaxDecode int
}

func (c Limit[V]) Encode(v V) ([]byte, error) {
	b, err := c.Inner.Encode(v)
	if err != nil {
		return nil, err
	}
	if c.MaxEncode > 0 && len(b) > c.MaxEncode {
		return nil, fmt.Errorf("%w: encoded %d > %d", ErrTooLarge, len(b), c.MaxEncode)
	}
	return b, nil
}

func (c Limit[V]) Decode(b []byte) (V, error) {
	if c.MaxDecode > 0 && len(b) > c.MaxDecode {
		var zero V
		return zero, fmt.Errorf("%w: stored %d > %d", ErrTooLarge, len(b), c.MaxDecode)
	}
	return c.Inner.Decode(b)
}
