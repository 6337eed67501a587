package sharedptr

// SelfRef may be embedded in a payload type T, to allow the payload to
// obtain handles to itself. The binding is established when the payload is
// constructed by a Factory (any construction mode), and cleared after
// teardown: payloads constructed in place are reset to their zero value, and
// adopted payloads are unbound once their deleter returns.
//
// Go copies embedded fields on assignment, so copies of a bound payload
// (including one copied out of a Shared) are detected, and behave as if
// unbound. Overwriting a bound payload with an unbound value discards the
// binding.
//
// Example:
//
//	type Node struct {
//		sharedptr.SelfRef[Node]
//		children []sharedptr.Shared[Node]
//	}
type SelfRef[T any] struct {
	cb     *ControlBlock
	ptr    *T
	anchor *SelfRef[T]
}

// SharedFromSelf returns a new Shared to the payload, or an empty Shared,
// if unbound, or the payload is being torn down, e.g. from within Close.
func (x *SelfRef[T]) SharedFromSelf() Shared[T] {
	if !x.bound() || !x.cb.IncStrongNonZero(x) {
		return Shared[T]{}
	}
	return Shared[T]{cb: x.cb, ptr: x.ptr}
}

// WeakFromSelf returns a new Weak to the payload, or an empty Weak, if
// unbound.
func (x *SelfRef[T]) WeakFromSelf() Weak[T] {
	if !x.bound() {
		return Weak[T]{}
	}
	x.cb.IncWeak(x)
	return Weak[T]{cb: x.cb, ptr: x.ptr}
}

// SharedFrom returns a new Shared, sharing ownership of the payload
// embedding self, but yielding ptr, typically a field of the payload. The
// result is empty under the same conditions as SharedFromSelf.
func SharedFrom[U, T any](self *SelfRef[T], ptr *U) Shared[U] {
	s := self.SharedFromSelf()
	return AliasMove(&s, ptr)
}

func (x *SelfRef[T]) bound() bool {
	return x != nil && x.anchor == x && x.cb != nil
}

func (x *SelfRef[T]) bindSelf(cb *ControlBlock, ptr *T) {
	x.cb = cb
	x.ptr = ptr
	x.anchor = x
}

func (x *SelfRef[T]) unbindSelf() {
	if x.anchor == x {
		*x = SelfRef[T]{}
	}
}
