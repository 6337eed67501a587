package sharedptr

import (
	"errors"

	"github.com/joeycumines/logiface"
)

// factoryOptions holds configuration options for Factory creation.
type factoryOptions struct {
	allocator Allocator
	hooks     Hooks
	logger    *logiface.Logger[logiface.Event]
	local     bool
}

// Option configures a Factory, see NewFactory.
type Option interface {
	applyFactory(*factoryOptions) error
}

// factoryOptionImpl implements Option.
type factoryOptionImpl struct {
	applyFactoryFunc func(*factoryOptions) error
}

// ErrNilAllocator is returned by NewFactory, if WithAllocator was provided a
// nil Allocator.
var ErrNilAllocator = errors.New(`sharedptr: nil allocator`)

func (x *factoryOptionImpl) applyFactory(opts *factoryOptions) error {
	return x.applyFactoryFunc(opts)
}

// WithAllocator configures the Allocator used to obtain (and release) the
// storage of every control block. Defaults to HeapAllocator.
func WithAllocator(allocator Allocator) Option {
	return &factoryOptionImpl{func(opts *factoryOptions) error {
		if allocator == nil {
			return ErrNilAllocator
		}
		opts.allocator = allocator
		return nil
	}}
}

// WithLocal configures whether reference counts are maintained using plain
// (non-atomic) operations. Handles from a local Factory must be confined to
// a single goroutine, including any Slot they are stored in.
func WithLocal(local bool) Option {
	return &factoryOptionImpl{func(opts *factoryOptions) error {
		opts.local = local
		return nil
	}}
}

// WithHooks configures lifecycle hooks, see Hooks. A nil value disables them.
func WithHooks(hooks Hooks) Option {
	return &factoryOptionImpl{func(opts *factoryOptions) error {
		opts.hooks = hooks
		return nil
	}}
}

// WithLogger configures structured logging of control block lifecycle
// events, and teardown errors. A nil value disables logging.
func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return &factoryOptionImpl{func(opts *factoryOptions) error {
		opts.logger = logger
		return nil
	}}
}

// resolveFactoryOptions applies Option instances to factoryOptions.
func resolveFactoryOptions(opts []Option) (*factoryOptions, error) {
	cfg := &factoryOptions{
		allocator: HeapAllocator{},
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyFactory(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
