// Package sharedptr implements explicit, reference-counted shared ownership,
// for resources that need deterministic teardown, e.g. pooled connections,
// file handles, or large buffers shared between goroutines.
//
// A [Factory] allocates a [ControlBlock], which tracks strong and weak
// reference counts, either alongside the payload (see [Make], [MakeFunc],
// and [MakeForOverwrite]), or for a separately allocated payload, adopted
// from a [Unique] (see [Adopt]). [Shared] handles hold strong references,
// and the payload is torn down (its Close method called, if it implements
// [io.Closer]) when the last is released. [Weak] handles observe the payload
// without extending its lifetime, and may be promoted using [Weak.Lock].
//
// Handles are values, but assignment does not count as a reference: use
// Clone to copy, Move to transfer, and Reset to release. The garbage
// collector still reclaims memory, the counts only determine when teardown
// happens. As with any reference counting scheme, cycles of strong
// references are never torn down, use [Weak] to break them.
//
// A [Slot] holds a [Shared] that may be loaded and replaced concurrently,
// and [SelfRef] allows a payload to obtain handles to itself.
package sharedptr
