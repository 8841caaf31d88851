package sysx

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// nativeRWLock delegates to sync.RWMutex. The aggregate reader count and
// writer flag only exist so that a release without a matching grant is
// reported instead of crashing the process.
type nativeRWLock struct {
	mu      sync.RWMutex
	readers atomic.Int32
	writer  atomic.Bool
}

func (l *nativeRWLock) rlock() error {
	l.mu.RLock()
	l.readers.Add(1)
	return nil
}

func (l *nativeRWLock) tryRLock() bool {
	if !l.mu.TryRLock() {
		return false
	}
	l.readers.Add(1)
	return true
}

func (l *nativeRWLock) runlock() error {
	for {
		n := l.readers.Load()
		if n <= 0 {
			return fmt.Errorf("%w: reader unlock without shared access", ErrPrimitive)
		}
		if l.readers.CompareAndSwap(n, n-1) {
			break
		}
	}
	l.mu.RUnlock()
	return nil
}

func (l *nativeRWLock) lock() error {
	l.mu.Lock()
	l.writer.Store(true)
	return nil
}

func (l *nativeRWLock) tryLock() bool {
	if !l.mu.TryLock() {
		return false
	}
	l.writer.Store(true)
	return true
}

func (l *nativeRWLock) unlock() error {
	if !l.writer.CompareAndSwap(true, false) {
		return fmt.Errorf("%w: writer unlock without exclusive access", ErrPrimitive)
	}
	l.mu.Unlock()
	return nil
}
