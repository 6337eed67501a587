package sharedptr

import (
	"cmp"
	"unsafe"
)

// Alias returns a new Shared, sharing ownership with owner, but yielding
// ptr, e.g. a pointer to a field of the payload. A strong reference is
// added. The result is empty, regardless of ptr, if owner has no control
// block, or has expired.
func Alias[U, T any](owner Shared[T], ptr *U) Shared[U] {
	if owner.cb == nil || !owner.cb.IncStrongNonZero(nil) {
		return Shared[U]{}
	}
	return Shared[U]{cb: owner.cb, ptr: ptr}
}

// AliasMove is Alias, but transfers the strong reference of owner, leaving
// it empty, rather than adding a reference.
func AliasMove[U, T any](owner *Shared[T], ptr *U) Shared[U] {
	v := owner.Move()
	if v.cb == nil {
		return Shared[U]{}
	}
	return Shared[U]{cb: v.cb, ptr: ptr}
}

// Reinterpret returns an alias of s, with the payload pointer converted
// using unsafe.Pointer. The caller is responsible for the validity of the
// conversion.
func Reinterpret[U, T any](s Shared[T]) Shared[U] {
	return Alias(s, (*U)(unsafe.Pointer(s.ptr)))
}

// Downcast returns an alias of s, with the payload pointer asserted to be
// a *U. This succeeds if *T is *U, or if the payload is itself a non-nil *U,
// e.g. T is an interface type. If the assertion fails, the result is empty,
// and no reference is added.
func Downcast[U, T any](s Shared[T]) Shared[U] {
	if s.ptr == nil {
		return Shared[U]{}
	}
	if p, ok := any(s.ptr).(*U); ok {
		return Alias(s, p)
	}
	if p, ok := any(*s.ptr).(*U); ok && p != nil {
		return Alias(s, p)
	}
	return Shared[U]{}
}

// Equal returns true if a and b have the same payload pointer.
func Equal[T, U any](a Shared[T], b Shared[U]) bool {
	return unsafe.Pointer(a.ptr) == unsafe.Pointer(b.ptr)
}

// Compare orders a and b by payload pointer address, returning -1, 0, or +1,
// per cmp.Compare.
func Compare[T, U any](a Shared[T], b Shared[U]) int {
	return cmp.Compare(uintptr(unsafe.Pointer(a.ptr)), uintptr(unsafe.Pointer(b.ptr)))
}

// SameOwner returns true if a and b share a control block, including if
// neither have one.
func SameOwner(a, b Owned) bool {
	return ownerOf(a) == ownerOf(b)
}

// NoOwner returns true if a has no control block.
func NoOwner(a Owned) bool {
	return ownerOf(a) == nil
}

// OwnerBefore orders a and b by control block address, which is the owner
// based ordering (as opposed to Compare), suitable for associative
// containers of Weak handles.
func OwnerBefore(a, b Owned) bool {
	return uintptr(unsafe.Pointer(ownerOf(a))) < uintptr(unsafe.Pointer(ownerOf(b)))
}

func ownerOf(v Owned) *ControlBlock {
	if v == nil {
		return nil
	}
	return v.Owner()
}
