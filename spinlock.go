package sharedptr

import (
	"runtime"
	"sync/atomic"
)

// spinLock is a test-and-test-and-set lock, for critical sections that are
// a handful of instructions long, e.g. copying a Shared. The zero value is
// unlocked.
type spinLock uint32

// spins before yielding the processor
const spinLimit = 16

func (l *spinLock) Lock() {
	if atomic.CompareAndSwapUint32((*uint32)(l), 0, 1) {
		return
	}
	l.lockSlow()
}

func (l *spinLock) lockSlow() {
	var spins int
	for {
		if atomic.LoadUint32((*uint32)(l)) == 0 &&
			atomic.CompareAndSwapUint32((*uint32)(l), 0, 1) {
			return
		}
		delay(&spins)
	}
}

func (l *spinLock) Unlock() {
	atomic.StoreUint32((*uint32)(l), 0)
}

func delay(spins *int) {
	if *spins < spinLimit {
		*spins++
		return
	}
	*spins = 0
	runtime.Gosched()
}
