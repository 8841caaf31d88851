// Package sysx provides portable concurrency primitives behind one uniform
// API: a reader-writer lock whose storage comes from a process-wide,
// swappable allocator, and a small thread facility used to drive it.
//
// Nothing in the package requires Init to be called first. The zero state
// uses the default heap, a no-op logger, the real clock and the reader-writer
// variant selected at build time.
package sysx

import (
	"errors"
	"sync/atomic"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

var (
	// ErrInvalidHandle is returned when an operation is given a nil or
	// destroyed handle.
	ErrInvalidHandle = errors.New("sysx: invalid handle")
	// ErrNoMemory is returned when the active allocator fails to supply
	// backing memory.
	ErrNoMemory = errors.New("sysx: out of memory")
	// ErrPrimitive is returned when the underlying synchronization
	// primitive refuses an operation or fails to initialize.
	ErrPrimitive = errors.New("sysx: platform primitive failure")
)

// Config holds process-wide settings installed by Init.
type Config struct {
	logger   *zap.Logger
	clock    clockwork.Clock
	fallback bool
}

// WithLogger routes library diagnostics to l. A nil logger is ignored.
func WithLogger(l *zap.Logger) func(*Config) {
	return func(c *Config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithClock sets the clock used by Sleep. A nil clock is ignored.
func WithClock(clock clockwork.Clock) func(*Config) {
	return func(c *Config) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithFallbackRWLock selects the composed mutex + counters reader-writer
// variant (true) or the native one (false) for locks created afterwards.
func WithFallbackRWLock(enabled bool) func(*Config) {
	return func(c *Config) {
		c.fallback = enabled
	}
}

var config atomic.Pointer[Config]

func defaultConfig() *Config {
	return &Config{
		logger:   zap.NewNop(),
		clock:    clockwork.NewRealClock(),
		fallback: defaultRWFallback,
	}
}

// current returns the installed configuration, or the defaults if Init has
// not been called.
func current() *Config {
	if c := config.Load(); c != nil {
		return c
	}
	c := defaultConfig()
	if config.CompareAndSwap(nil, c) {
		return c
	}
	return config.Load()
}

// Init installs the process-wide configuration. It may be called again to
// replace it; locks that already exist keep the variant they were created
// with.
func Init(options ...func(*Config)) {
	c := defaultConfig()
	for _, o := range options {
		o(c)
	}
	config.Store(c)
	c.logger.Info("sysx initialized",
		zap.Bool("fallbackRWLock", c.fallback),
	)
}

// Shutdown restores the default configuration and the default allocator.
func Shutdown() {
	c := current()
	RestoreMemVTable()
	config.Store(defaultConfig())
	c.logger.Info("sysx shut down")
	_ = c.logger.Sync()
}

// noCopy may be added to structs which must not be copied
// after the first use.
//
// See https://golang.org/issues/8005#issuecomment-190753527
// for details.
//
// Note that it must not be embedded, due to the Lock and Unlock methods.
type noCopy struct{}

// Lock is a no-op used by -copylocks checker from `go vet`.
func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}
