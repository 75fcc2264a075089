package kvcache

import (
	"errors"
	"fmt"
)

// ErrUnserializableKey matches every *SerializationError.
var ErrUnserializableKey = errors.New("kvcache: key is not serializable")

// Op names the step of a cache operation that failed.
type Op string

const (
	OpGet    Op = "get"
	OpSet    Op = "set"
	OpDelete Op = "delete"
	OpClear  Op = "clear"
	OpEncode Op = "encode"
	OpDecode Op = "decode"
)

// OpError is what the ErrorHandler receives for a contained failure.
// Key is the store key (empty for clear).
type OpError struct {
	Op  Op
	Key string
	Err error
}

func (e *OpError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("kvcache: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("kvcache: %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

// SerializationError reports a key that cannot be canonically encoded:
// a cycle, a func/chan/complex/unsafe.Pointer value, an unexported struct
// field, or an encoder failure.
// Path locates the offending value ("$" is the normalized key itself).
type SerializationError struct {
	Path string
	Err  error
}

func (e *SerializationError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("kvcache: key not serializable: %v", e.Err)
	}
	return fmt.Sprintf("kvcache: key not serializable at %s: %v", e.Path, e.Err)
}

func (e *SerializationError) Unwrap() []error {
	errs := make([]error, 0, 2)
	errs = append(errs, ErrUnserializableKey)
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// PanicError carries a value recovered from a panicking store call.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string { return fmt.Sprintf("store panicked: %v", e.Value) }
