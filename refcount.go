package sharedptr

import (
	uberatomic "go.uber.org/atomic"
)

type (
	// RefCount models a single reference counter, as used (twice, strong and
	// weak) by ControlBlock. Implementations are AtomicRefCount and
	// LocalRefCount, which have identical observable behavior, the difference
	// being only that the latter is unsafe for concurrent use.
	//
	// All methods return the count after the operation. Decrementing past
	// zero is a contract violation, and is not detected.
	RefCount interface {
		// Inc increments the count, returning the new count.
		Inc() uint32

		// Dec decrements the count, returning the new count. A return value of
		// 0 indicates the caller released the last reference.
		Dec() uint32

		// Count returns the current count, which is inherently racy for the
		// atomic implementation.
		Count() uint32

		// IncNonZero increments the count, only if it is non-zero, returning
		// the new count, or 0 if the count was (already) 0, in which case the
		// count is not modified.
		IncNonZero() uint32
	}

	// AtomicRefCount is a RefCount that is safe for concurrent use.
	//
	// The zero value has a count of 0, meaning it has already been released.
	// See also NewAtomicRefCount.
	AtomicRefCount struct {
		count uberatomic.Uint32
	}

	// LocalRefCount is a RefCount that is NOT safe for concurrent use, and is
	// intended for use cases confined to a single goroutine.
	//
	// The zero value has a count of 0, meaning it has already been released.
	// See also NewLocalRefCount.
	LocalRefCount struct {
		count uint32
	}

	// refCounter is one of the counts of a ControlBlock, only one variant of
	// which is ever used, per ControlBlock.local.
	refCounter struct {
		atomic AtomicRefCount
		local  LocalRefCount
	}
)

var (
	// compile time assertions

	_ RefCount = (*AtomicRefCount)(nil)
	_ RefCount = (*LocalRefCount)(nil)
)

// NewAtomicRefCount returns a new AtomicRefCount with a count of 1.
func NewAtomicRefCount() *AtomicRefCount {
	x := new(AtomicRefCount)
	x.count.Store(1)
	return x
}

// NewLocalRefCount returns a new LocalRefCount with a count of 1.
func NewLocalRefCount() *LocalRefCount {
	return &LocalRefCount{count: 1}
}

// Inc implements RefCount.Inc.
func (x *AtomicRefCount) Inc() uint32 { return x.count.Inc() }

// Dec implements RefCount.Dec. It is sequentially consistent, so writes made
// prior to any decrement are visible to the caller that observes zero.
func (x *AtomicRefCount) Dec() uint32 { return x.count.Dec() }

// Count implements RefCount.Count.
func (x *AtomicRefCount) Count() uint32 { return x.count.Load() }

// IncNonZero implements RefCount.IncNonZero.
func (x *AtomicRefCount) IncNonZero() uint32 {
	for {
		v := x.count.Load()
		if v == 0 {
			return 0
		}
		if x.count.CompareAndSwap(v, v+1) {
			return v + 1
		}
	}
}

// Inc implements RefCount.Inc.
func (x *LocalRefCount) Inc() uint32 {
	x.count++
	return x.count
}

// Dec implements RefCount.Dec.
func (x *LocalRefCount) Dec() uint32 {
	x.count--
	return x.count
}

// Count implements RefCount.Count.
func (x *LocalRefCount) Count() uint32 { return x.count }

// IncNonZero implements RefCount.IncNonZero.
func (x *LocalRefCount) IncNonZero() uint32 {
	if x.count == 0 {
		return 0
	}
	return x.Inc()
}

func (x *refCounter) get(local bool) RefCount {
	if local {
		return &x.local
	}
	return &x.atomic
}
