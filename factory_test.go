package sharedptr

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFactory(t *testing.T) {
	for _, tc := range [...]struct {
		name      string
		opts      []Option
		wantErr   error
		wantLocal bool
	}{
		{`defaults`, nil, nil, false},
		{`nil option`, []Option{nil}, nil, false},
		{`local`, []Option{WithLocal(true)}, nil, true},
		{`local reset`, []Option{WithLocal(true), nil, WithLocal(false)}, nil, false},
		{`nil allocator`, []Option{WithAllocator(nil)}, ErrNilAllocator, false},
		{`nil hooks`, []Option{WithHooks(nil), WithLogger(nil)}, nil, false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			f, err := NewFactory(tc.opts...)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				assert.Nil(t, f)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, f)
			assert.Equal(t, tc.wantLocal, f.Local())
			assert.Equal(t, HeapAllocator{}, f.Allocator())
		})
	}
}

func TestFactory_nilIsDefault(t *testing.T) {
	var f *Factory
	assert.False(t, f.Local())
	assert.Equal(t, HeapAllocator{}, f.Allocator())

	s, err := Make(f, 5)
	require.NoError(t, err)
	assert.False(t, s.Owner().Local())
	assert.Same(t, defaultFactory, s.Owner().factory)
	s.Reset()
}

func TestAdopt(t *testing.T) {
	alloc := newTrackingAllocator()
	f, err := NewFactory(WithAllocator(alloc))
	require.NoError(t, err)

	t.Run(`nil unique`, func(t *testing.T) {
		s, err := Adopt[int](f, nil)
		require.NoError(t, err)
		assert.False(t, s.Valid())
		assert.Nil(t, s.Owner())
	})

	t.Run(`empty unique`, func(t *testing.T) {
		var u Unique[int]
		s, err := Adopt(f, &u)
		require.NoError(t, err)
		assert.False(t, s.Valid())
		assert.Nil(t, s.Owner())
		assert.False(t, FromUnique(&u).Valid())
	})

	allocated, _, _ := alloc.counts()
	assert.Equal(t, 0, allocated)

	t.Run(`custom deleter`, func(t *testing.T) {
		var (
			deletes int
			value   = 7
		)
		u := NewUnique(&value, func(ptr *int) {
			deletes++
			*ptr = 0
		})
		s, err := Adopt(f, &u)
		require.NoError(t, err)
		assert.False(t, u.Valid())
		assert.Same(t, &value, s.Get())
		c := s.Clone()
		s.Reset()
		assert.Equal(t, 0, deletes)
		assert.Equal(t, 7, value)
		c.Reset()
		assert.Equal(t, 1, deletes)
		assert.Equal(t, 0, value)
	})

	t.Run(`default deleter`, func(t *testing.T) {
		var stats lifetimeStats
		u := MakeUnique(newObj(&stats, 1, ``))
		s, err := Adopt(f, &u)
		require.NoError(t, err)
		ptr := s.Get()
		s.Reset()
		assert.True(t, ptr.closed)
		assert.Equal(t, int64(0), stats.living.Load())
	})

	allocated, released, outstanding := alloc.counts()
	assert.Equal(t, 2, allocated)
	assert.Equal(t, 2, released)
	assert.Equal(t, 0, outstanding)
}

func TestUnique(t *testing.T) {
	var stats lifetimeStats

	u := MakeUnique(newObj(&stats, 1, ``))
	assert.True(t, u.Valid())
	assert.NotNil(t, u.Deleter())
	u.Reset()
	assert.False(t, u.Valid())
	assert.Nil(t, u.Get())
	assert.Equal(t, int64(0), stats.living.Load())
	u.Reset()

	var deleted *obj
	o := newObj(&stats, 2, ``)
	u = NewUnique(&o, func(ptr *obj) { deleted = ptr })
	ptr := u.Release()
	assert.Same(t, &o, ptr)
	assert.False(t, u.Valid())
	u.Reset()
	assert.Nil(t, deleted, `released pointers are not torn down`)
	require.NoError(t, ptr.Close())
}

func TestDefaultDelete(t *testing.T) {
	var stats lifetimeStats

	o := newObj(&stats, 1, ``)
	DefaultDelete(&o)
	assert.True(t, o.closed)

	// the value implements io.Closer, rather than the pointer
	o2 := newObj(&stats, 2, ``)
	var c io.Closer = &o2
	DefaultDelete(&c)
	assert.True(t, o2.closed)

	var nilCloser io.Closer
	DefaultDelete(&nilCloser)
	DefaultDelete[int](nil)
	DefaultDelete(new(int))

	assert.Equal(t, int64(0), stats.living.Load())
}
