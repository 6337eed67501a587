package sharedptr

import (
	"fmt"
	"reflect"
)

// Logging helpers for Factory. Each checks the builder is enabled prior to
// formatting any fields, as most lifecycle events are only logged at debug.

func (x *Factory) logAllocated(cb *ControlBlock, typ reflect.Type, kind string) {
	if b := x.logger.Debug(); b.Enabled() {
		b.Str(`block`, blockID(cb)).
			Stringer(`type`, typ).
			Str(`kind`, kind).
			Bool(`local`, x.local).
			Log(`sharedptr: control block allocated`)
	}
}

func (x *Factory) logAllocateError(typ reflect.Type, kind string, err error) {
	if b := x.logger.Err(); b.Enabled() {
		b.Err(err).
			Stringer(`type`, typ).
			Str(`kind`, kind).
			Log(`sharedptr: allocation failed`)
	}
}

func (x *Factory) logInitError(typ reflect.Type, err error) {
	if b := x.logger.Err(); b.Enabled() {
		b.Err(err).
			Stringer(`type`, typ).
			Log(`sharedptr: in-place initialization failed`)
	}
}

func (x *Factory) logCloseError(cb *ControlBlock, typ reflect.Type, err error) {
	if b := x.logger.Err(); b.Enabled() {
		b.Err(err).
			Str(`block`, blockID(cb)).
			Stringer(`type`, typ).
			Log(`sharedptr: payload close failed`)
	}
}

func (x *Factory) logPayloadDestroyed(cb *ControlBlock) {
	if b := x.logger.Debug(); b.Enabled() {
		b.Str(`block`, blockID(cb)).
			Int(`weak`, cb.WeakCount()).
			Log(`sharedptr: payload destroyed`)
	}
}

func (x *Factory) logStorageReleased(cb *ControlBlock) {
	if b := x.logger.Debug(); b.Enabled() {
		b.Str(`block`, blockID(cb)).
			Log(`sharedptr: storage released`)
	}
}

func blockID(cb *ControlBlock) string {
	return fmt.Sprintf(`%p`, cb)
}
