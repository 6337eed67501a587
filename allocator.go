package sharedptr

import (
	"fmt"
	"reflect"
	"sync"
	"unsafe"
)

type (
	// Allocator provides the storage for control blocks, and (for the
	// in-place construction modes) their payloads, which share the one
	// allocation.
	//
	// Since the Factory allocates synthetic block types, rather than the
	// payload type, the type is a parameter of each call, i.e. every
	// Allocator is implicitly "rebindable" to any type.
	//
	// Memory returned by Allocate MUST be Go-managed memory, suitable for
	// storing values of typ, e.g. as allocated by reflect.New, as blocks
	// contain pointers, which must remain visible to the garbage collector.
	// Memory returned by Allocate must be zeroed.
	//
	// Every successful Allocate is paired with exactly one Deallocate, on the
	// same Allocator, with the same typ and n.
	Allocator interface {
		// Allocate returns storage for n contiguous values of typ, or an error,
		// which will be propagated to the caller of the construction function.
		Allocate(typ reflect.Type, n int) (unsafe.Pointer, error)

		// Deallocate releases storage previously returned by Allocate.
		Deallocate(ptr unsafe.Pointer, typ reflect.Type, n int)
	}

	// HeapAllocator is the default Allocator, which allocates directly from
	// the Go heap, leaving reclamation to the garbage collector.
	HeapAllocator struct{}

	// PoolAllocator is an Allocator that recycles storage, using a sync.Pool
	// per type. Single value allocations (the only kind performed by
	// Factory) are pooled, others are delegated to HeapAllocator.
	//
	// The zero value is ready to use. It must not be copied after first use.
	PoolAllocator struct {
		pools sync.Map // map[reflect.Type]*sync.Pool
	}
)

var (
	// compile time assertions

	_ Allocator = HeapAllocator{}
	_ Allocator = (*PoolAllocator)(nil)
)

// Allocate implements Allocator.Allocate.
func (HeapAllocator) Allocate(typ reflect.Type, n int) (unsafe.Pointer, error) {
	if typ == nil || n <= 0 {
		return nil, fmt.Errorf(`sharedptr: allocate: invalid request: %v x %d`, typ, n)
	}
	if n == 1 {
		return reflect.New(typ).UnsafePointer(), nil
	}
	return reflect.New(reflect.ArrayOf(n, typ)).UnsafePointer(), nil
}

// Deallocate implements Allocator.Deallocate, and is a no-op.
func (HeapAllocator) Deallocate(unsafe.Pointer, reflect.Type, int) {}

// NewPoolAllocator returns a new PoolAllocator, equivalent to the zero value.
func NewPoolAllocator() *PoolAllocator {
	return new(PoolAllocator)
}

// Allocate implements Allocator.Allocate.
func (x *PoolAllocator) Allocate(typ reflect.Type, n int) (unsafe.Pointer, error) {
	if n != 1 || typ == nil {
		return HeapAllocator{}.Allocate(typ, n)
	}
	return x.pool(typ).Get().(unsafe.Pointer), nil
}

// Deallocate implements Allocator.Deallocate. The storage is zeroed prior to
// being recycled.
func (x *PoolAllocator) Deallocate(ptr unsafe.Pointer, typ reflect.Type, n int) {
	if ptr == nil || n != 1 || typ == nil {
		return
	}
	reflect.NewAt(typ, ptr).Elem().SetZero()
	x.pool(typ).Put(ptr)
}

func (x *PoolAllocator) pool(typ reflect.Type) *sync.Pool {
	if v, ok := x.pools.Load(typ); ok {
		return v.(*sync.Pool)
	}
	v, _ := x.pools.LoadOrStore(typ, &sync.Pool{New: func() any {
		return reflect.New(typ).UnsafePointer()
	}})
	return v.(*sync.Pool)
}
