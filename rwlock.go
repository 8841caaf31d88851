package sysx

import (
	"fmt"
	"unsafe"

	"go.uber.org/zap"
)

// RWLock is a reader-writer lock: any number of readers may hold it at once,
// or exactly one writer, never both.
//
// An RWLock is created by NewRWLock inside a block obtained from the active
// allocator (see MemVTable) and must be released with Destroy. All methods
// accept a nil receiver and report failure instead of panicking.
//
// The lock is backed either by the runtime's native reader-writer mutex or by
// a composed mutex + counters fallback; both behave identically to callers.
// A blocked writer excludes new readers, so writers are not starved. There is
// no FIFO ordering among waiters of the same role, and no recursive locking.
//
// RWLock holds no Go pointers, so it may live in memory the garbage
// collector does not scan.
type RWLock struct {
	_        noCopy
	kind     rwKind
	native   nativeRWLock
	fallback fallbackRWLock
}

type rwKind uint32

const (
	rwInvalid rwKind = iota
	rwNative
	rwFallback
)

func (k rwKind) String() string {
	switch k {
	case rwNative:
		return "native"
	case rwFallback:
		return "fallback"
	default:
		return "invalid"
	}
}

// rwPrimitive is the capability both lock variants provide.
type rwPrimitive interface {
	rlock() error
	tryRLock() bool
	runlock() error
	lock() error
	tryLock() bool
	unlock() error
}

// NewRWLock returns a new, unlocked lock.
//
// It fails with ErrNoMemory if the active allocator returns no memory, and
// with an error wrapping ErrPrimitive if the block it returns cannot hold the
// lock. Any block obtained before the failure is freed again.
func NewRWLock() (*RWLock, error) {
	c := current()
	size, align := unsafe.Sizeof(RWLock{}), unsafe.Alignof(RWLock{})

	p := Malloc(size)
	if p == nil {
		c.logger.Debug("rwlock allocation failed", zap.Uintptr("size", size))
		return nil, ErrNoMemory
	}
	if uintptr(p)%align != 0 {
		Free(p)
		err := fmt.Errorf("%w: block %#x is not %d-byte aligned", ErrPrimitive, uintptr(p), align)
		c.logger.Warn("rwlock init failed", zap.Error(err))
		return nil, err
	}

	kind := rwNative
	if c.fallback {
		kind = rwFallback
	}
	rw := (*RWLock)(p)
	*rw = RWLock{kind: kind}
	return rw, nil
}

// Destroy releases the lock and returns its memory to the allocator active at
// call time. Destroy on a nil handle is a no-op.
//
// Destroying a lock that is still held is a caller error and is not detected.
func (rw *RWLock) Destroy() {
	if rw == nil || rw.kind == rwInvalid {
		return
	}
	rw.kind = rwInvalid
	Free(unsafe.Pointer(rw))
}

// primitive returns the variant backing rw, or false if rw is nil or has
// been destroyed.
func (rw *RWLock) primitive() (rwPrimitive, bool) {
	if rw == nil {
		return nil, false
	}
	switch rw.kind {
	case rwNative:
		return &rw.native, true
	case rwFallback:
		return &rw.fallback, true
	}
	return nil, false
}

// ReaderLock blocks until shared access is granted.
func (rw *RWLock) ReaderLock() error {
	prim, ok := rw.primitive()
	if !ok {
		return ErrInvalidHandle
	}
	return rw.report("reader lock", prim.rlock())
}

// ReaderTryLock attempts to acquire shared access without blocking. It
// reports false if the lock is contended or the handle is invalid.
func (rw *RWLock) ReaderTryLock() bool {
	prim, ok := rw.primitive()
	return ok && prim.tryRLock()
}

// ReaderUnlock releases one shared access.
func (rw *RWLock) ReaderUnlock() error {
	prim, ok := rw.primitive()
	if !ok {
		return ErrInvalidHandle
	}
	return rw.report("reader unlock", prim.runlock())
}

// WriterLock blocks until exclusive access is granted.
func (rw *RWLock) WriterLock() error {
	prim, ok := rw.primitive()
	if !ok {
		return ErrInvalidHandle
	}
	return rw.report("writer lock", prim.lock())
}

// WriterTryLock attempts to acquire exclusive access without blocking. It
// reports false if the lock is contended or the handle is invalid.
func (rw *RWLock) WriterTryLock() bool {
	prim, ok := rw.primitive()
	return ok && prim.tryLock()
}

// WriterUnlock releases exclusive access.
func (rw *RWLock) WriterUnlock() error {
	prim, ok := rw.primitive()
	if !ok {
		return ErrInvalidHandle
	}
	return rw.report("writer unlock", prim.unlock())
}

func (rw *RWLock) report(op string, err error) error {
	if err != nil {
		current().logger.Warn("rwlock operation failed",
			zap.String("op", op),
			zap.Stringer("variant", rw.kind),
			zap.Error(err),
		)
	}
	return err
}
