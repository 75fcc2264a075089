// Package codec converts cached values to and from the bytes a store.Store
// keeps. Pick one per Cache; all entries written by a cache must be read back
// with the same codec.
package codec

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}
