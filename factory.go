package sharedptr

import (
	"errors"
	"fmt"
	"reflect"
	"unsafe"

	"github.com/joeycumines/logiface"
)

type (
	// Factory allocates control blocks, and is the entry point for
	// constructing Shared handles, see Make, MakeFunc, MakeForOverwrite, and
	// Adopt. A Factory is immutable, and safe for concurrent use.
	//
	// A nil *Factory is valid, and behaves like the default factory, which
	// uses atomic reference counts, and HeapAllocator, without hooks or
	// logging.
	Factory struct {
		allocator Allocator
		hooks     Hooks
		logger    *logiface.Logger[logiface.Event]
		local     bool
	}

	// resourceBlock is the single allocation of the in-place construction
	// modes, holding the control block and the payload.
	resourceBlock[T any] struct {
		cb    ControlBlock
		value T
	}

	// uniqueBlock is the allocation for an adopted Unique, the payload of
	// which is allocated separately.
	uniqueBlock[T any] struct {
		cb     ControlBlock
		unique Unique[T]
	}

	// selfBinder is implemented by *T when T embeds SelfRef[T].
	selfBinder[T any] interface {
		bindSelf(cb *ControlBlock, ptr *T)
		unbindSelf()
	}
)

// construction kinds, for logging
const (
	kindValue     = `value`
	kindFunc      = `func`
	kindOverwrite = `overwrite`
	kindAdopt     = `adopt`
)

var (
	defaultFactory = &Factory{allocator: HeapAllocator{}}

	errNilStorage = errors.New(`allocator returned nil storage`)
)

// NewFactory initializes a new Factory, using the provided options.
func NewFactory(opts ...Option) (*Factory, error) {
	cfg, err := resolveFactoryOptions(opts)
	if err != nil {
		return nil, err
	}
	return &Factory{
		allocator: cfg.allocator,
		hooks:     cfg.hooks,
		logger:    cfg.logger,
		local:     cfg.local,
	}, nil
}

// Allocator returns the allocator used by the factory.
func (x *Factory) Allocator() Allocator {
	return x.get().allocator
}

// Local returns true if the factory's control blocks use non-atomic counts.
func (x *Factory) Local() bool {
	return x.get().local
}

func (x *Factory) get() *Factory {
	if x == nil {
		return defaultFactory
	}
	return x
}

// Make constructs a new Shared, holding a copy of value, in a single
// allocation with its control block.
func Make[T any](f *Factory, value T) (Shared[T], error) {
	f = f.get()
	b, err := allocateBlock[resourceBlock[T]](f, kindValue)
	if err != nil {
		return Shared[T]{}, err
	}
	b.value = value
	return newResourceShared(f, b, kindValue), nil
}

// MakeFunc constructs a new Shared, in a single allocation with its control
// block, initializing the payload in place, using init, which may be nil.
// If init returns an error, the storage is released, and the error is
// returned, wrapped.
func MakeFunc[T any](f *Factory, init func(ptr *T) error) (Shared[T], error) {
	f = f.get()
	b, err := allocateBlock[resourceBlock[T]](f, kindFunc)
	if err != nil {
		return Shared[T]{}, err
	}
	if init != nil {
		if err := init(&b.value); err != nil {
			typ := reflect.TypeFor[resourceBlock[T]]()
			f.logInitError(typ, err)
			var zero T
			b.value = zero
			f.allocator.Deallocate(unsafe.Pointer(b), typ, 1)
			return Shared[T]{}, fmt.Errorf(`sharedptr: init %v: %w`, reflect.TypeFor[T](), err)
		}
	}
	return newResourceShared(f, b, kindFunc), nil
}

// MakeForOverwrite constructs a new Shared, in a single allocation with its
// control block, leaving the payload as the zero value, which the caller is
// expected to overwrite.
func MakeForOverwrite[T any](f *Factory) (Shared[T], error) {
	f = f.get()
	b, err := allocateBlock[resourceBlock[T]](f, kindOverwrite)
	if err != nil {
		return Shared[T]{}, err
	}
	return newResourceShared(f, b, kindOverwrite), nil
}

// Adopt constructs a new Shared, taking ownership of the pointer held by u,
// which is released exactly once, on success. The payload will be torn down
// using the deleter of u, or the factory's default teardown, if u has no
// deleter.
//
// If u is nil or empty, the result is an empty Shared, and nothing is
// allocated. If allocation fails, u retains ownership.
func Adopt[T any](f *Factory, u *Unique[T]) (Shared[T], error) {
	if u == nil || u.ptr == nil {
		return Shared[T]{}, nil
	}
	f = f.get()
	b, err := allocateBlock[uniqueBlock[T]](f, kindAdopt)
	if err != nil {
		return Shared[T]{}, err
	}
	b.unique.deleter = u.deleter
	b.unique.ptr = u.Release()
	initControlBlock(f, &b.cb, destroyUniquePayload[T], destroyStorage[uniqueBlock[T]])
	f.logAllocated(&b.cb, reflect.TypeFor[T](), kindAdopt)
	return newShared(&b.cb, b.unique.ptr), nil
}

// New is Make, using the default factory.
func New[T any](value T) Shared[T] {
	return must[T](Make[T](nil, value))
}

// NewFunc is MakeFunc, using the default factory, and panics if init fails.
func NewFunc[T any](init func(ptr *T) error) Shared[T] {
	return must[T](MakeFunc[T](nil, init))
}

// NewForOverwrite is MakeForOverwrite, using the default factory.
func NewForOverwrite[T any]() Shared[T] {
	return must[T](MakeForOverwrite[T](nil))
}

// FromUnique is Adopt, using the default factory.
func FromUnique[T any](u *Unique[T]) Shared[T] {
	return must[T](Adopt[T](nil, u))
}

func must[T any](v Shared[T], err error) Shared[T] {
	if err != nil {
		panic(err)
	}
	return v
}

func allocateBlock[B any](f *Factory, kind string) (*B, error) {
	typ := reflect.TypeFor[B]()
	ptr, err := f.allocator.Allocate(typ, 1)
	if err == nil && ptr == nil {
		err = errNilStorage
	}
	if err != nil {
		f.logAllocateError(typ, kind, err)
		return nil, fmt.Errorf(`sharedptr: allocate %v: %w`, typ, err)
	}
	return (*B)(ptr), nil
}

func newResourceShared[T any](f *Factory, b *resourceBlock[T], kind string) Shared[T] {
	initControlBlock(f, &b.cb, destroyResourcePayload[T], destroyStorage[resourceBlock[T]])
	f.logAllocated(&b.cb, reflect.TypeFor[T](), kind)
	return newShared(&b.cb, &b.value)
}

// initControlBlock prepares a block that has not yet been published, with
// one strong reference, and the implicit weak reference.
func initControlBlock(f *Factory, cb *ControlBlock, destroyPayload, destroyStorage func(cb *ControlBlock)) {
	*cb = ControlBlock{
		factory:        f,
		destroyPayload: destroyPayload,
		destroyStorage: destroyStorage,
		local:          f.local,
	}
	cb.strongRefs().Inc()
	cb.weakRefs().Inc()
}

// newShared wraps the initial strong reference of a new block.
func newShared[T any](cb *ControlBlock, ptr *T) Shared[T] {
	if b, ok := any(ptr).(selfBinder[T]); ok {
		b.bindSelf(cb, ptr)
	}
	cb.onNewStrong(nil)
	return Shared[T]{cb: cb, ptr: ptr}
}

func destroyResourcePayload[T any](cb *ControlBlock) {
	b := (*resourceBlock[T])(unsafe.Pointer(cb))
	teardownPayload(cb, &b.value)
	var zero T
	b.value = zero
}

// destroyUniquePayload tears down the adopted payload, which outlives the
// block, so any self binding is cleared once the deleter returns.
func destroyUniquePayload[T any](cb *ControlBlock) {
	b := (*uniqueBlock[T])(unsafe.Pointer(cb))
	ptr := b.unique.ptr
	if b.unique.deleter == nil {
		b.unique.Release()
		teardownPayload(cb, ptr)
	} else {
		b.unique.Reset()
		cb.factory.logPayloadDestroyed(cb)
	}
	if v, ok := any(ptr).(selfBinder[T]); ok {
		v.unbindSelf()
	}
}

func teardownPayload[T any](cb *ControlBlock, ptr *T) {
	if err := closePayload(ptr); err != nil {
		cb.factory.logCloseError(cb, reflect.TypeFor[T](), err)
	}
	cb.factory.logPayloadDestroyed(cb)
}

func destroyStorage[B any](cb *ControlBlock) {
	f := cb.factory
	f.logStorageReleased(cb)
	f.allocator.Deallocate(unsafe.Pointer(cb), reflect.TypeFor[B](), 1)
}
