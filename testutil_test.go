package sharedptr

import (
	"bytes"
	"encoding/json"
	"errors"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"unsafe"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
	"github.com/stretchr/testify/require"
)

type (
	lifetimeStats struct {
		total  atomic.Int64
		living atomic.Int64
		closed atomic.Int64
	}

	// obj is a payload that tracks its own lifetime, via Close
	obj struct {
		stats  *lifetimeStats
		b      string
		a      int
		closed bool
	}

	// child embeds obj, for the alias and cast tests
	child struct {
		obj
		c int
	}

	valuer interface {
		val() int
	}

	trackingAllocator struct {
		inner       Allocator
		outstanding map[unsafe.Pointer]trackedAllocation
		allocated   int
		released    int
		mu          sync.Mutex
	}

	trackedAllocation struct {
		typ reflect.Type
		n   int
	}

	failingAllocator struct {
		err error
	}

	// bookkeeping balances lifecycle events, per control block
	bookkeeping struct {
		strong map[*ControlBlock]int
		weak   map[*ControlBlock]int
		events int
		mu     sync.Mutex
	}
)

func newObj(stats *lifetimeStats, a int, b string) obj {
	stats.total.Add(1)
	stats.living.Add(1)
	return obj{stats: stats, a: a, b: b}
}

func (x *obj) Close() error {
	if x.stats == nil {
		return nil
	}
	if x.closed {
		panic(`obj closed twice`)
	}
	x.closed = true
	x.stats.living.Add(-1)
	x.stats.closed.Add(1)
	return nil
}

func (x *obj) val() int { return x.a }

func (x *child) val() int { return x.a + x.c }

func newTrackingAllocator() *trackingAllocator {
	return &trackingAllocator{
		inner:       HeapAllocator{},
		outstanding: make(map[unsafe.Pointer]trackedAllocation),
	}
}

func (x *trackingAllocator) Allocate(typ reflect.Type, n int) (unsafe.Pointer, error) {
	ptr, err := x.inner.Allocate(typ, n)
	if err != nil {
		return nil, err
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	x.outstanding[ptr] = trackedAllocation{typ: typ, n: n}
	x.allocated++
	return ptr, nil
}

func (x *trackingAllocator) Deallocate(ptr unsafe.Pointer, typ reflect.Type, n int) {
	x.mu.Lock()
	v, ok := x.outstanding[ptr]
	if !ok {
		x.mu.Unlock()
		panic(`deallocate of unknown storage`)
	}
	if v.typ != typ || v.n != n {
		x.mu.Unlock()
		panic(`deallocate with mismatched type or count`)
	}
	delete(x.outstanding, ptr)
	x.released++
	x.mu.Unlock()
	x.inner.Deallocate(ptr, typ, n)
}

func (x *trackingAllocator) counts() (allocated, released, outstanding int) {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.allocated, x.released, len(x.outstanding)
}

func (x failingAllocator) Allocate(reflect.Type, int) (unsafe.Pointer, error) {
	return nil, x.err
}

func (x failingAllocator) Deallocate(unsafe.Pointer, reflect.Type, int) {
	panic(`deallocate without allocate`)
}

func newBookkeeping() *bookkeeping {
	return &bookkeeping{
		strong: make(map[*ControlBlock]int),
		weak:   make(map[*ControlBlock]int),
	}
}

func (x *bookkeeping) OnNewStrong(cb *ControlBlock, src any) { x.add(x.strong, cb, 1) }

func (x *bookkeeping) OnDestroyStrong(cb *ControlBlock, src any) { x.add(x.strong, cb, -1) }

func (x *bookkeeping) OnNewWeak(cb *ControlBlock, src any) { x.add(x.weak, cb, 1) }

func (x *bookkeeping) OnDestroyWeak(cb *ControlBlock, src any) { x.add(x.weak, cb, -1) }

func (x *bookkeeping) add(m map[*ControlBlock]int, cb *ControlBlock, delta int) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.events++
	m[cb] += delta
	if m[cb] < 0 {
		panic(`destroy event without a matching new event`)
	}
	if m[cb] == 0 {
		delete(m, cb)
	}
}

func (x *bookkeeping) requireBalanced(t *testing.T) {
	t.Helper()
	x.mu.Lock()
	defer x.mu.Unlock()
	require.Empty(t, x.strong, `active strong references`)
	require.Empty(t, x.weak, `active weak references`)
	require.NotZero(t, x.events)
}

func (x *bookkeeping) activeStrong(cb *ControlBlock) int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.strong[cb]
}

// newTestLogger returns a logger writing JSON lines to the returned buffer
func newTestLogger(level logiface.Level) (*logiface.Logger[logiface.Event], *bytes.Buffer) {
	var buf bytes.Buffer
	return stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithWriter(&buf), stumpy.WithTimeField(``)),
		stumpy.L.WithLevel(level),
	).Logger(), &buf
}

func decodeLogLines(t *testing.T, buf *bytes.Buffer) (lines []map[string]any) {
	t.Helper()
	dec := json.NewDecoder(bytes.NewReader(buf.Bytes()))
	for dec.More() {
		var line map[string]any
		require.NoError(t, dec.Decode(&line))
		lines = append(lines, line)
	}
	return lines
}

var errTest = errors.New(`test error`)
