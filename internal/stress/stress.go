// Package stress runs readers and writers against one sysx.RWLock and checks
// that readers never observe a partially written buffer.
package stress

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/llxisdsh/sysx"
)

// Literals written by writers; writer i writes Literals[i%len(Literals)].
var Literals = [...]string{
	"This is a test string.",
	"Ouh, yet another string to check!",
}

// ErrCorrupted is returned when a reader observes a buffer that matches none
// of the Literals.
var ErrCorrupted = errors.New("stress: shared buffer corrupted")

// Options configures a Run.
type Options struct {
	Duration time.Duration
	Readers  int
	Writers  int
	// Interval is the pause before each lock attempt.
	Interval time.Duration
	Logger   *zap.Logger
}

// Report holds the number of completed critical sections per worker.
type Report struct {
	Reads  []int
	Writes []int
}

// TotalReads sums Reads over all readers.
func (r Report) TotalReads() (n int) {
	for _, v := range r.Reads {
		n += v
	}
	return n
}

// TotalWrites sums Writes over all writers.
func (r Report) TotalWrites() (n int) {
	for _, v := range r.Writes {
		n += v
	}
	return n
}

type run struct {
	rw       *sysx.RWLock
	buf      [50]byte
	written  atomic.Int64
	interval time.Duration
	logger   *zap.Logger
}

// Run creates a lock, runs opts.Readers readers and opts.Writers writers
// until opts.Duration elapses or ctx is done, and destroys the lock.
//
// Each worker first tries the non-blocking acquisition and falls back to
// the blocking one.
func Run(ctx context.Context, opts Options) (Report, error) {
	if opts.Readers < 0 || opts.Writers < 0 {
		return Report{}, fmt.Errorf("stress: negative worker count (readers=%d, writers=%d)",
			opts.Readers, opts.Writers)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	rw, err := sysx.NewRWLock()
	if err != nil {
		return Report{}, fmt.Errorf("stress: create lock: %w", err)
	}
	defer rw.Destroy()

	r := &run{rw: rw, interval: opts.Interval, logger: opts.Logger}
	report := Report{
		Reads:  make([]int, opts.Readers),
		Writes: make([]int, opts.Writers),
	}

	ctx, cancel := context.WithTimeout(ctx, opts.Duration)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	for i := range opts.Writers {
		g.Go(func() error {
			return r.writer(ctx, i, &report.Writes[i])
		})
	}
	for i := range opts.Readers {
		g.Go(func() error {
			return r.reader(ctx, i, &report.Reads[i])
		})
	}

	if err := g.Wait(); err != nil {
		return report, err
	}
	return report, nil
}

func (r *run) writer(ctx context.Context, id int, count *int) error {
	literal := Literals[id%len(Literals)]
	for r.pause(ctx) {
		if !r.rw.WriterTryLock() {
			if err := r.rw.WriterLock(); err != nil {
				return fmt.Errorf("writer %d: %w", id, err)
			}
		}
		clear(r.buf[:])
		copy(r.buf[:], literal)
		if err := r.rw.WriterUnlock(); err != nil {
			return fmt.Errorf("writer %d: %w", id, err)
		}
		*count++
		r.written.Add(1)
	}
	r.logger.Debug("writer done", zap.Int("id", id), zap.Int("writes", *count))
	return nil
}

func (r *run) reader(ctx context.Context, id int, count *int) error {
	for r.written.Load() == 0 {
		if !r.pause(ctx) {
			return nil
		}
	}
	for r.pause(ctx) {
		if !r.rw.ReaderTryLock() {
			if err := r.rw.ReaderLock(); err != nil {
				return fmt.Errorf("reader %d: %w", id, err)
			}
		}
		ok := r.validLocked()
		if err := r.rw.ReaderUnlock(); err != nil {
			return fmt.Errorf("reader %d: %w", id, err)
		}
		if !ok {
			return fmt.Errorf("reader %d: %w", id, ErrCorrupted)
		}
		*count++
	}
	r.logger.Debug("reader done", zap.Int("id", id), zap.Int("reads", *count))
	return nil
}

// validLocked reports whether buf holds exactly one of the Literals. The
// caller holds shared access.
func (r *run) validLocked() bool {
	s := r.buf[:]
	if n := bytes.IndexByte(s, 0); n >= 0 {
		s = s[:n]
	}
	for _, l := range Literals {
		if string(s) == l {
			return true
		}
	}
	return false
}

// pause waits for the configured interval and reports whether the run
// should continue.
func (r *run) pause(ctx context.Context) bool {
	if r.interval <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(r.interval)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
