package sysx

import (
	"fmt"
	"sync"

	"github.com/llxisdsh/sysx/internal/opt"
)

// fallbackRWLock composes a reader-writer lock from a plain mutex guarding
// the reader count and writer flag, with two semaphores to park waiters.
//
// Writer-preferred: once a writer is pending, new readers wait, and a
// releasing writer hands over to the next pending writer before waking
// readers.
//
// Waiters re-check the guarded state after every wakeup; a semaphore release
// issued before the waiter parks is not lost.
type fallbackRWLock struct {
	mu sync.Mutex

	readers int32 // active readers
	writer  bool  // a writer holds the lock

	pendingWriters  int32 // writers inside lock(), parked or not
	sleepingWriters int32 // writers parked on writerSema
	sleepingReaders int32 // readers parked on readerSema

	readerSema opt.Sema
	writerSema opt.Sema
}

func (l *fallbackRWLock) rlock() error {
	l.mu.Lock()
	for l.writer || l.pendingWriters > 0 {
		l.sleepingReaders++
		l.mu.Unlock()
		l.readerSema.Acquire()
		l.mu.Lock()
	}
	l.readers++
	l.mu.Unlock()
	return nil
}

func (l *fallbackRWLock) tryRLock() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.writer || l.pendingWriters > 0 {
		return false
	}
	l.readers++
	return true
}

func (l *fallbackRWLock) runlock() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.readers <= 0 {
		return fmt.Errorf("%w: reader unlock without shared access", ErrPrimitive)
	}
	l.readers--
	if l.readers == 0 {
		l.wakeWriterLocked()
	}
	return nil
}

func (l *fallbackRWLock) lock() error {
	l.mu.Lock()
	l.pendingWriters++
	for l.writer || l.readers > 0 {
		l.sleepingWriters++
		l.mu.Unlock()
		l.writerSema.Acquire()
		l.mu.Lock()
	}
	l.pendingWriters--
	l.writer = true
	l.mu.Unlock()
	return nil
}

func (l *fallbackRWLock) tryLock() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.writer || l.readers > 0 {
		return false
	}
	l.writer = true
	return true
}

func (l *fallbackRWLock) unlock() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.writer {
		return fmt.Errorf("%w: writer unlock without exclusive access", ErrPrimitive)
	}
	l.writer = false
	if l.pendingWriters > 0 {
		l.wakeWriterLocked()
		return nil
	}
	for range l.sleepingReaders {
		l.readerSema.Release()
	}
	l.sleepingReaders = 0
	return nil
}

// wakeWriterLocked unparks one writer, if any is parked.
func (l *fallbackRWLock) wakeWriterLocked() {
	if l.sleepingWriters > 0 {
		l.sleepingWriters--
		l.writerSema.Release()
	}
}
