package sharedptr

type (
	// ControlBlock is the bookkeeping shared by every Shared and Weak handle
	// of a single allocation. It tracks the strong and weak reference counts,
	// and performs the two-phase teardown: the payload is destroyed when the
	// strong count reaches zero, and the storage is released when the weak
	// count reaches zero.
	//
	// A ControlBlock starts with a strong count of 1, and a weak count of 1,
	// the latter being an implicit weak reference held collectively by all
	// strong references, released exactly once, immediately after the payload
	// is destroyed. Neither count is ever resurrected, once it reaches zero.
	//
	// Instances are allocated by a Factory, and are only ever accessed via
	// pointer. The methods are exposed for advanced use, e.g. custom handle
	// types, and every increment must be paired with exactly one decrement.
	// Violating this contract is undefined behavior, and is not detected.
	//
	// The zero value is not usable: it has no payload or storage to release.
	// Its counts may be inspected, and hooks are skipped, but releasing the
	// last reference of a zero ControlBlock panics.
	ControlBlock struct {
		factory *Factory

		// destroyPayload tears down the payload, without releasing storage
		destroyPayload func(cb *ControlBlock)

		// destroyStorage releases the storage of the block, including any
		// embedded payload, using the allocator that allocated it
		destroyStorage func(cb *ControlBlock)

		strong refCounter
		weak   refCounter

		// local indicates the counts are not operated on atomically
		local bool
	}

	// Hooks receives control block lifecycle events, e.g. to implement leak
	// tracking or reference audits. Implementations may be configured using
	// WithHooks, and must be safe for concurrent use, unless the Factory is
	// configured using WithLocal.
	//
	// The src parameter is an opaque identifier of the handle on whose behalf
	// the operation was performed, typically a pointer to a Shared or Weak,
	// which may be nil, e.g. for the reference held by a newly-constructed
	// handle. It must not be dereferenced.
	//
	// Hooks are called outside any teardown, i.e. the "destroy" events are
	// called prior to decrementing, and the "new" events after incrementing.
	// The implicit weak reference does not trigger any events.
	Hooks interface {
		OnNewStrong(cb *ControlBlock, src any)
		OnDestroyStrong(cb *ControlBlock, src any)
		OnNewWeak(cb *ControlBlock, src any)
		OnDestroyWeak(cb *ControlBlock, src any)
	}
)

// IncStrong adds a strong reference. The caller must already hold a strong
// reference, directly or indirectly, otherwise see IncStrongNonZero.
func (x *ControlBlock) IncStrong(src any) {
	x.strongRefs().Inc()
	x.onNewStrong(src)
}

// DecStrong releases a strong reference. Releasing the last strong reference
// destroys the payload, then releases the implicit weak reference, which may
// release the storage.
func (x *ControlBlock) DecStrong(src any) {
	if h := x.hooks(); h != nil {
		h.OnDestroyStrong(x, src)
	}
	if x.strongRefs().Dec() == 0 {
		x.destroyPayload(x)
		x.decWeak()
	}
}

// IncStrongNonZero attempts to add a strong reference, failing if the strong
// count is zero, i.e. the payload has been (or is being) destroyed. This is
// the basis of weak to strong promotion.
func (x *ControlBlock) IncStrongNonZero(src any) bool {
	if x.strongRefs().IncNonZero() == 0 {
		return false
	}
	x.onNewStrong(src)
	return true
}

// StrongCount returns the number of strong references. The value is
// inherently racy, unless the caller holds the only strong reference.
func (x *ControlBlock) StrongCount() int {
	return int(x.strongRefs().Count())
}

// IncWeak adds a weak reference. The caller must already hold a strong or
// weak reference.
func (x *ControlBlock) IncWeak(src any) {
	x.weakRefs().Inc()
	if h := x.hooks(); h != nil {
		h.OnNewWeak(x, src)
	}
}

// DecWeak releases a weak reference. Releasing the last weak reference
// (including the implicit one) releases the storage.
func (x *ControlBlock) DecWeak(src any) {
	if h := x.hooks(); h != nil {
		h.OnDestroyWeak(x, src)
	}
	x.decWeak()
}

// WeakCount returns the number of weak references, including the implicit
// weak reference held while the strong count is non-zero.
func (x *ControlBlock) WeakCount() int {
	return int(x.weakRefs().Count())
}

// Local returns true if the counts are not operated on atomically, see also
// WithLocal.
func (x *ControlBlock) Local() bool {
	return x.local
}

func (x *ControlBlock) strongRefs() RefCount { return x.strong.get(x.local) }

func (x *ControlBlock) weakRefs() RefCount { return x.weak.get(x.local) }

func (x *ControlBlock) hooks() Hooks { return x.factory.get().hooks }

// onNewStrong notifies the hooks of a strong reference that has already been
// counted, which may be deferred until after a critical section, see Slot.
func (x *ControlBlock) onNewStrong(src any) {
	if h := x.hooks(); h != nil {
		h.OnNewStrong(x, src)
	}
}

func (x *ControlBlock) decWeak() {
	if x.weakRefs().Dec() == 0 {
		x.destroyStorage(x)
	}
}
