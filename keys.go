package kvcache

import (
	"encoding"
	"errors"
	"fmt"
	"math/big"
	"reflect"
	"strconv"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/unkn0wn-root/kvcache/internal/util"
)

// Normalizer maps a caller key to the value that identifies it in the store.
// Return a string to use it verbatim, or any encodable value (typically a
// projection of K's fields) to have it hashed.
type Normalizer[K any] func(K) any

// HashFunc turns a canonical key encoding into a fixed-length store key.
type HashFunc func(canonical []byte) string

var (
	// SHA256 yields 64 hex chars. Default.
	SHA256 HashFunc = util.SHA256Hex
	// XXHash64 yields 16 hex chars. Faster, but collisions become plausible
	// past a few hundred million distinct keys.
	XXHash64 HashFunc = util.XXHash64Hex
)

// canonicalEnc is RFC 8949 Core Deterministic CBOR: map keys and struct fields
// are sorted bytewise, ints take their shortest form regardless of Go width.
var canonicalEnc = func() cbor.EncMode {
	eo := cbor.CoreDetEncOptions()
	eo.Time = cbor.TimeRFC3339Nano
	em, err := eo.EncMode()
	if err != nil {
		panic(err)
	}
	return em
}()

// StoreKey derives the store key for key.
//
// The normalized key is returned unchanged when its kind is string. Anything
// else is encoded canonically and hashed, so maps that differ only in
// insertion order share a store key. A nil normalize is identity and a nil
// hash is SHA256.
//
// Keys that cannot be encoded return a *SerializationError.
func StoreKey[K any](key K, normalize Normalizer[K], hash HashFunc) (string, error) {
	var nk any = key
	if normalize != nil {
		nk = normalize(key)
	}
	if s, ok := asString(nk); ok {
		return s, nil
	}
	b, err := canonical(nk)
	if err != nil {
		return "", err
	}
	if hash == nil {
		hash = SHA256
	}
	return hash(b), nil
}

// Canonical returns the canonical encoding StoreKey hashes.
func Canonical(v any) ([]byte, error) { return canonical(v) }

func canonical(v any) ([]byte, error) {
	if err := checkEncodable(reflect.ValueOf(v), "$", map[visit]struct{}{}); err != nil {
		return nil, err
	}
	b, err := canonicalEnc.Marshal(v)
	if err != nil {
		return nil, &SerializationError{Path: "$", Err: err}
	}
	return b, nil
}

func asString(v any) (string, bool) {
	if s, ok := v.(string); ok {
		return s, true
	}
	rv := reflect.ValueOf(v)
	if rv.IsValid() && rv.Kind() == reflect.String {
		return rv.String(), true
	}
	return "", false
}

var (
	errCycle       = errors.New("cycle detected")
	errUnsupported = errors.New("unsupported kind")
	errUnexported  = errors.New("unexported field")

	cborMarshaler   = reflect.TypeOf((*cbor.Marshaler)(nil)).Elem()
	binaryMarshaler = reflect.TypeOf((*encoding.BinaryMarshaler)(nil)).Elem()
	timeType        = reflect.TypeOf(time.Time{})
	bigIntType      = reflect.TypeOf(big.Int{})
)

// visit identifies a reference on the current walk path.
type visit struct {
	ptr uintptr
	typ reflect.Type
	n   int
}

// checkEncodable walks v the way the CBOR encoder will and rejects what it
// would choke on (cycles overflow the stack instead of returning an error)
// or silently leave out (unexported fields).
// Only references on the current path are tracked, so shared-but-acyclic
// sub-values are fine.
func checkEncodable(v reflect.Value, path string, onPath map[visit]struct{}) error {
	if !v.IsValid() {
		return nil
	}
	if encodesItself(v.Type()) {
		return nil
	}

	switch v.Kind() {
	case reflect.Func, reflect.Chan, reflect.UnsafePointer, reflect.Complex64, reflect.Complex128:
		// nil or not, none of these has an encoding
		return &SerializationError{Path: path, Err: fmt.Errorf("%w %s", errUnsupported, v.Kind())}

	case reflect.Interface:
		if v.IsNil() {
			return nil
		}
		return checkEncodable(v.Elem(), path, onPath)

	case reflect.Pointer:
		if v.IsNil() {
			return nil
		}
		return enter(v, 0, path, onPath, func() error {
			return checkEncodable(v.Elem(), path, onPath)
		})

	case reflect.Map:
		if v.IsNil() {
			return nil
		}
		return enter(v, 0, path, onPath, func() error {
			it := v.MapRange()
			for it.Next() {
				kp := path + "[" + fmt.Sprint(it.Key()) + "]"
				if err := checkEncodable(it.Key(), kp, onPath); err != nil {
					return err
				}
				if err := checkEncodable(it.Value(), kp, onPath); err != nil {
					return err
				}
			}
			return nil
		})

	case reflect.Slice:
		if v.IsNil() || v.Len() == 0 {
			return nil
		}
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return nil // byte string
		}
		return enter(v, v.Len(), path, onPath, func() error {
			return checkElems(v, path, onPath)
		})

	case reflect.Array:
		return checkElems(v, path, onPath)

	case reflect.Struct:
		t := v.Type()
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if f.Name == "_" || skippedField(f) {
				continue
			}
			fp := path + "." + f.Name
			// the encoder drops these silently; keys differing only there would collide
			if !f.IsExported() && !(f.Anonymous && embedsStruct(f.Type)) {
				return &SerializationError{Path: fp, Err: errUnexported}
			}
			if err := checkEncodable(v.Field(i), fp, onPath); err != nil {
				return err
			}
		}
	}
	return nil
}

func checkElems(v reflect.Value, path string, onPath map[visit]struct{}) error {
	for i := 0; i < v.Len(); i++ {
		if err := checkEncodable(v.Index(i), path+"["+strconv.Itoa(i)+"]", onPath); err != nil {
			return err
		}
	}
	return nil
}

func enter(v reflect.Value, n int, path string, onPath map[visit]struct{}, walk func() error) error {
	k := visit{ptr: v.Pointer(), typ: v.Type(), n: n}
	if _, seen := onPath[k]; seen {
		return &SerializationError{Path: path, Err: errCycle}
	}
	onPath[k] = struct{}{}
	err := walk()
	delete(onPath, k)
	return err
}

// encodesItself reports whether the encoder uses t's own marshaling rather
// than walking its fields.
func encodesItself(t reflect.Type) bool {
	switch t {
	case timeType, bigIntType:
		return true
	}
	if t.Kind() == reflect.Interface {
		return false
	}
	pt := reflect.PointerTo(t)
	return t.Implements(cborMarshaler) || pt.Implements(cborMarshaler) ||
		t.Implements(binaryMarshaler) || pt.Implements(binaryMarshaler)
}

// embedsStruct reports whether an embedded field contributes its fields to
// the encoding (struct or pointer to struct).
func embedsStruct(t reflect.Type) bool {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Kind() == reflect.Struct
}

// skippedField mirrors the encoder: `cbor:"-"` wins, then `json:"-"`.
func skippedField(f reflect.StructField) bool {
	if tag, ok := f.Tag.Lookup("cbor"); ok {
		return tag == "-"
	}
	return f.Tag.Get("json") == "-"
}
