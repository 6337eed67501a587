package sharedptr

import (
	"fmt"
)

// Weak is a handle holding a weak reference to a control block, which keeps
// the storage (but not the payload) alive. Use Lock to obtain a Shared.
//
// Like Shared, the zero value is empty, and assignment does not add a
// reference. Every Weak must be released exactly once, using Reset.
type Weak[T any] struct {
	cb  *ControlBlock
	ptr *T
}

// AliasWeak returns a new Weak, observing the control block of w, which
// will yield ptr, if locked. The result is empty if w has no control block.
func AliasWeak[U, T any](w Weak[T], ptr *U) Weak[U] {
	if w.cb == nil {
		return Weak[U]{}
	}
	w.cb.IncWeak(nil)
	return Weak[U]{cb: w.cb, ptr: ptr}
}

// Lock attempts to obtain a strong reference, returning an empty Shared, if
// the payload has expired. Lock is linearizable with the release of the
// last strong reference, i.e. it never returns a handle to a payload that
// has been (or is being) torn down.
func (x Weak[T]) Lock() Shared[T] {
	if x.cb == nil || !x.cb.IncStrongNonZero(nil) {
		return Shared[T]{}
	}
	return Shared[T]{cb: x.cb, ptr: x.ptr}
}

// Expired returns true if there are no strong references, including if x
// has no control block. A false result may be stale by the time it is
// observed, see Lock.
func (x Weak[T]) Expired() bool {
	return x.UseCount() == 0
}

// UseCount returns the number of strong references to the control block, or
// 0 if there is no control block.
func (x Weak[T]) UseCount() int {
	if x.cb == nil {
		return 0
	}
	return x.cb.StrongCount()
}

// Valid returns true if x has a control block, even if it has expired.
func (x Weak[T]) Valid() bool {
	return x.cb != nil
}

// Owner returns the control block, which may be nil.
func (x Weak[T]) Owner() *ControlBlock {
	return x.cb
}

// OwnerBefore is OwnerBefore(x, y).
func (x Weak[T]) OwnerBefore(y Owned) bool {
	return OwnerBefore(x, y)
}

// String formats the observed pointer, which must not be dereferenced.
func (x Weak[T]) String() string {
	return fmt.Sprintf(`%p`, x.ptr)
}

// Clone returns a new handle, adding a weak reference, if x has a control
// block.
func (x *Weak[T]) Clone() Weak[T] {
	if x.cb != nil {
		x.cb.IncWeak(x)
	}
	return *x
}

// Move transfers the weak reference to the returned handle, leaving x empty.
func (x *Weak[T]) Move() Weak[T] {
	v := *x
	*x = Weak[T]{}
	return v
}

// Reset releases the weak reference, if any, leaving x empty.
func (x *Weak[T]) Reset() {
	cb := x.cb
	*x = Weak[T]{}
	if cb != nil {
		cb.DecWeak(x)
	}
}

// Swap exchanges the contents of x and y.
func (x *Weak[T]) Swap(y *Weak[T]) {
	*x, *y = *y, *x
}
