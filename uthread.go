package sysx

import (
	"errors"
	"runtime"
	"time"
)

// ErrNotJoinable is returned by Join on a thread created as detached.
var ErrNotJoinable = errors.New("sysx: thread is not joinable")

// UThreadFunc is the body of a UThread. Its return value becomes the exit
// code unless the body ends early through Exit.
type UThreadFunc func(t *UThread) int

// UThread is an independently scheduled execution context.
type UThread struct {
	done     chan struct{}
	code     int
	joinable bool
}

// NewUThread starts fn on its own goroutine. Only joinable threads can be
// waited for with Join.
func NewUThread(fn UThreadFunc, joinable bool) *UThread {
	t := &UThread{
		done:     make(chan struct{}),
		joinable: joinable,
	}
	go t.run(fn)
	return t
}

func (t *UThread) run(fn UThreadFunc) {
	defer close(t.done)
	t.code = fn(t)
}

// Exit ends the calling thread with code. It must be called from the
// thread's own body; deferred calls in the body still run.
func (t *UThread) Exit(code int) {
	t.code = code
	runtime.Goexit()
}

// Join waits for the thread to end and returns its exit code.
func (t *UThread) Join() (int, error) {
	if t == nil {
		return -1, ErrInvalidHandle
	}
	if !t.joinable {
		return -1, ErrNotJoinable
	}
	<-t.done
	return t.code, nil
}

// Sleep suspends the calling thread for d on the configured clock.
func Sleep(d time.Duration) {
	current().clock.Sleep(d)
}
