package sharedptr

import (
	"io"
)

// Unique is a single-owner handle, with a customizable teardown function
// (deleter), which may be adopted by a Factory, see Adopt and FromUnique.
//
// Like Shared, Unique is a value type, and assignment does not transfer
// ownership in any meaningful sense. Prefer passing it by pointer.
type Unique[T any] struct {
	ptr     *T
	deleter func(ptr *T)
}

// NewUnique returns a Unique owning ptr, which will be torn down using
// deleter, or DefaultDelete, if deleter is nil.
func NewUnique[T any](ptr *T, deleter func(ptr *T)) Unique[T] {
	return Unique[T]{ptr: ptr, deleter: deleter}
}

// MakeUnique returns a Unique owning a new heap allocated copy of value,
// using DefaultDelete.
func MakeUnique[T any](value T) Unique[T] {
	ptr := new(T)
	*ptr = value
	return Unique[T]{ptr: ptr}
}

// DefaultDelete is the default teardown function. It calls Close, if the
// pointer (or, failing that, the value) implements io.Closer. Any error is
// discarded. Adopting a Unique without a deleter, using a Factory configured
// WithLogger, will log any such errors.
func DefaultDelete[T any](ptr *T) {
	_ = closePayload(ptr)
}

// Get returns the owned pointer, which may be nil.
func (x Unique[T]) Get() *T {
	return x.ptr
}

// Valid returns true if the pointer is non-nil.
func (x Unique[T]) Valid() bool {
	return x.ptr != nil
}

// Deleter returns the teardown function, which will be DefaultDelete, if no
// deleter was provided.
func (x Unique[T]) Deleter() func(ptr *T) {
	if x.deleter == nil {
		return DefaultDelete[T]
	}
	return x.deleter
}

// Release relinquishes ownership, returning the pointer, without tearing it
// down. The deleter is retained.
func (x *Unique[T]) Release() *T {
	ptr := x.ptr
	x.ptr = nil
	return ptr
}

// Reset tears down the pointer, if any, leaving x empty.
func (x *Unique[T]) Reset() {
	if ptr := x.Release(); ptr != nil {
		x.Deleter()(ptr)
	}
}

func closePayload[T any](ptr *T) error {
	if ptr == nil {
		return nil
	}
	if c, ok := any(ptr).(io.Closer); ok {
		return c.Close()
	}
	// e.g. T is an interface or pointer type
	if c, ok := any(*ptr).(io.Closer); ok && c != nil {
		return c.Close()
	}
	return nil
}
