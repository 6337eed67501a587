package sharedptr

import (
	"fmt"
)

type (
	// Shared is a handle holding a strong reference to a control block, and
	// a payload pointer, which is usually (but not necessarily, see Alias)
	// the payload managed by that control block.
	//
	// The zero value is an empty handle. Shared is a value type, but copying
	// it via assignment does NOT add a reference: use Clone to copy, and
	// Move to transfer. Every handle obtained from this package must be
	// released exactly once, using Reset, or by transferring it (e.g. to a
	// Slot, or via Move).
	//
	// A single Shared value must not be mutated concurrently, but distinct
	// handles sharing a control block may be used from different goroutines,
	// unless the factory was configured using WithLocal. See Slot for a
	// handle that may be shared between goroutines.
	Shared[T any] struct {
		cb  *ControlBlock
		ptr *T
	}

	// Owned models handles that share ownership of (or observe) a control
	// block, i.e. Shared and Weak.
	Owned interface {
		Owner() *ControlBlock
	}
)

var (
	// compile time assertions

	_ Owned = Shared[int]{}
	_ Owned = Weak[int]{}
)

// Get returns the payload pointer, which may be nil.
func (x Shared[T]) Get() *T {
	return x.ptr
}

// Valid returns true if the payload pointer is non-nil.
func (x Shared[T]) Valid() bool {
	return x.ptr != nil
}

// UseCount returns the number of strong references to the control block, or
// 0 if there is no control block.
func (x Shared[T]) UseCount() int {
	if x.cb == nil {
		return 0
	}
	return x.cb.StrongCount()
}

// Owner returns the control block, which may be nil.
func (x Shared[T]) Owner() *ControlBlock {
	return x.cb
}

// String formats the payload pointer.
func (x Shared[T]) String() string {
	return fmt.Sprintf(`%p`, x.ptr)
}

// Weak returns a new Weak, observing the same control block and payload.
// The result is empty if x has no control block.
func (x Shared[T]) Weak() Weak[T] {
	if x.cb == nil {
		return Weak[T]{}
	}
	x.cb.IncWeak(nil)
	return Weak[T]{cb: x.cb, ptr: x.ptr}
}

// OwnerBefore is OwnerBefore(x, y).
func (x Shared[T]) OwnerBefore(y Owned) bool {
	return OwnerBefore(x, y)
}

// Clone returns a new handle, adding a strong reference, if x has a control
// block.
func (x *Shared[T]) Clone() Shared[T] {
	if x.cb != nil {
		x.cb.IncStrong(x)
	}
	return *x
}

// Move transfers ownership to the returned handle, leaving x empty.
func (x *Shared[T]) Move() Shared[T] {
	v := *x
	*x = Shared[T]{}
	return v
}

// Reset releases the strong reference, if any, leaving x empty. Releasing
// the last strong reference tears down the payload.
func (x *Shared[T]) Reset() {
	cb := x.cb
	*x = Shared[T]{}
	if cb != nil {
		cb.DecStrong(x)
	}
}

// Swap exchanges the contents of x and y.
func (x *Shared[T]) Swap(y *Shared[T]) {
	*x, *y = *y, *x
}
