package sharedptr

import (
	"golang.org/x/sys/cpu"
)

// Slot is a mutable cell holding a Shared, which is safe for concurrent use,
// e.g. to publish the current version of a configuration. The zero value is
// an empty slot.
//
// All operations are guarded by a spin lock, and are linearizable. Handles
// displaced from the slot are released, and hooks are notified, after the
// lock is dropped, so neither payload teardown nor Hooks run inside the
// critical section.
//
// The slot is padded to occupy its own cache line(s). It must not be copied
// after first use. Close (or Store an empty handle) to release the held
// reference.
type Slot[T any] struct {
	_     cpu.CacheLinePad
	value Shared[T]
	lock  spinLock
	_     cpu.CacheLinePad
}

// NewSlot returns a new Slot, taking ownership of h, e.g. NewSlot(s.Move()).
func NewSlot[T any](h Shared[T]) *Slot[T] {
	return &Slot[T]{value: h}
}

// Load returns a new strong reference to the current value.
func (x *Slot[T]) Load() Shared[T] {
	x.lock.Lock()
	v := x.cloneLocked()
	x.lock.Unlock()
	x.notifyClone(v)
	return v
}

// Store replaces the current value with h, taking ownership of it. The
// previous value is released.
func (x *Slot[T]) Store(h Shared[T]) {
	old := x.Exchange(h)
	old.Reset()
}

// Exchange replaces the current value with h, taking ownership of it, and
// returns the previous value, which the caller must release.
func (x *Slot[T]) Exchange(h Shared[T]) Shared[T] {
	x.lock.Lock()
	old := x.value
	x.value = h
	x.lock.Unlock()
	return old
}

// CompareExchange replaces the current value with desired, if the current
// value has the same payload pointer as expected, transferring ownership of
// desired to the slot (leaving it empty), and releasing the previous value.
// Otherwise, expected is replaced by a new strong reference to the current
// value (releasing the prior contents of expected), desired is left
// unmodified, and false is returned.
func (x *Slot[T]) CompareExchange(expected, desired *Shared[T]) bool {
	x.lock.Lock()
	if x.value.ptr == expected.ptr {
		old := x.value
		x.value = desired.Move()
		x.lock.Unlock()
		old.Reset()
		return true
	}
	current := x.cloneLocked()
	x.lock.Unlock()
	x.notifyClone(current)
	expected.Reset()
	*expected = current
	return false
}

// cloneLocked counts a new strong reference to the current value, without
// notifying hooks, see notifyClone.
func (x *Slot[T]) cloneLocked() Shared[T] {
	v := x.value
	if v.cb != nil {
		v.cb.strongRefs().Inc()
	}
	return v
}

func (x *Slot[T]) notifyClone(v Shared[T]) {
	if v.cb != nil {
		v.cb.onNewStrong(&x.value)
	}
}

// Close releases the current value, leaving the slot empty.
func (x *Slot[T]) Close() error {
	x.Store(Shared[T]{})
	return nil
}
