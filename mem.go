package sysx

import (
	"math"
	"sync/atomic"
	"unsafe"

	"github.com/llxisdsh/pb"
	"go.uber.org/zap"

	"github.com/llxisdsh/sysx/internal/opt"
)

// MemVTable is a set of allocation entry points used process-wide in place
// of the default heap.
//
// Memory handed out by a table must not be relied upon to be scanned by the
// garbage collector: only pointer-free data is stored in it. Returning nil
// from Malloc or Realloc reports an allocation failure, which callers treat
// as an ordinary error.
type MemVTable struct {
	Malloc  func(n uintptr) unsafe.Pointer
	Realloc func(p unsafe.Pointer, n uintptr) unsafe.Pointer
	Free    func(p unsafe.Pointer)
}

var (
	defaultVTable = &MemVTable{
		Malloc:  heapMalloc,
		Realloc: heapRealloc,
		Free:    heapFree,
	}
	vtable atomic.Pointer[MemVTable]
)

func activeVTable() *MemVTable {
	if t := vtable.Load(); t != nil {
		return t
	}
	return defaultVTable
}

// SetMemVTable installs t as the process-wide allocator. It reports false and
// keeps the current table if t or any of its entries is nil.
//
// The table is copied, so later changes to t have no effect.
func SetMemVTable(t *MemVTable) bool {
	if t == nil || t.Malloc == nil || t.Realloc == nil || t.Free == nil {
		return false
	}
	cp := *t
	vtable.Store(&cp)
	current().logger.Info("memory vtable installed")
	return true
}

// RestoreMemVTable reinstalls the default heap allocator.
func RestoreMemVTable() {
	if vtable.Swap(nil) != nil {
		current().logger.Info("memory vtable restored")
	}
}

// Malloc allocates n bytes through the active table. It returns nil if n is
// zero or the allocator fails.
func Malloc(n uintptr) unsafe.Pointer {
	if n == 0 {
		return nil
	}
	p := activeVTable().Malloc(n)
	if p == nil {
		stats.failures.Add(1)
		return nil
	}
	stats.allocs.Add(1)
	return p
}

// Realloc resizes the block p to n bytes through the active table. A nil p
// behaves as Malloc; a zero n frees p and returns nil. On failure p is left
// untouched and nil is returned.
func Realloc(p unsafe.Pointer, n uintptr) unsafe.Pointer {
	if p == nil {
		return Malloc(n)
	}
	if n == 0 {
		Free(p)
		return nil
	}
	np := activeVTable().Realloc(p, n)
	if np == nil {
		stats.failures.Add(1)
		return nil
	}
	stats.allocs.Add(1)
	return np
}

// Free returns p to the active table. Free(nil) is a no-op.
func Free(p unsafe.Pointer) {
	if p == nil {
		return
	}
	activeVTable().Free(p)
	stats.frees.Add(1)
}

// MemStats is a snapshot of allocator activity.
type MemStats struct {
	// Allocs counts successful Malloc and Realloc calls.
	Allocs uint64
	// Failures counts Malloc and Realloc calls the allocator refused.
	Failures uint64
	// Frees counts Free calls on non-nil blocks.
	Frees uint64
	// HeapLiveBlocks and HeapLiveBytes describe blocks currently held by
	// the default heap, whatever table is active.
	HeapLiveBlocks uint64
	HeapLiveBytes  uint64
}

var stats struct {
	allocs   atomic.Uint64
	failures atomic.Uint64
	frees    atomic.Uint64
}

// ReadMemStats returns the current allocator counters.
func ReadMemStats() MemStats {
	return MemStats{
		Allocs:         stats.allocs.Load(),
		Failures:       stats.failures.Load(),
		Frees:          stats.frees.Load(),
		HeapLiveBlocks: uint64(heap.blocks.Size()),
		HeapLiveBytes:  heap.bytes.Load(),
	}
}

// ============================================================================
// Default heap
// ============================================================================

// heapBlock keeps the backing array of a live block reachable until Free.
type heapBlock struct {
	buf  []uint64
	size uintptr
}

var heap struct {
	blocks pb.MapOf[uintptr, heapBlock]
	bytes  atomic.Uint64
}

// maxHeapBlock is the largest request the default heap accepts. Larger
// requests fail instead of wrapping around in heapRoundUp.
const maxHeapBlock uintptr = math.MaxInt >> 1 &^ (opt.CacheLineSize_ - 1)

// heapRoundUp rounds n up to a whole number of cache lines. n must not
// exceed maxHeapBlock.
func heapRoundUp(n uintptr) uintptr {
	return (n + opt.CacheLineSize_ - 1) &^ (opt.CacheLineSize_ - 1)
}

func heapMalloc(n uintptr) unsafe.Pointer {
	if n == 0 || n > maxHeapBlock {
		return nil
	}
	size := heapRoundUp(n)
	buf := heapMake(size / 8)
	if buf == nil {
		return nil
	}
	p := unsafe.Pointer(unsafe.SliceData(buf))
	heap.blocks.Store(uintptr(p), heapBlock{buf: buf, size: size})
	heap.bytes.Add(uint64(size))
	return p
}

// heapMake returns a zeroed slice of words elements, or nil if the runtime
// refuses the length.
func heapMake(words uintptr) (buf []uint64) {
	defer func() {
		if r := recover(); r != nil {
			current().logger.Debug("heap block refused",
				zap.Uintptr("words", words),
				zap.Any("reason", r),
			)
			buf = nil
		}
	}()
	return make([]uint64, words)
}

func heapRealloc(p unsafe.Pointer, n uintptr) unsafe.Pointer {
	old, ok := heap.blocks.Load(uintptr(p))
	if !ok {
		current().logger.Warn("realloc of unknown block",
			zap.Uintptr("block", uintptr(p)),
		)
		return nil
	}
	if n > maxHeapBlock {
		return nil
	}
	if heapRoundUp(n) == old.size {
		return p
	}
	np := heapMalloc(n)
	if np == nil {
		return nil
	}
	nb, _ := heap.blocks.Load(uintptr(np))
	copy(nb.buf, old.buf)
	heapFree(p)
	return np
}

func heapFree(p unsafe.Pointer) {
	b, ok := heap.blocks.LoadAndDelete(uintptr(p))
	if !ok {
		current().logger.Warn("free of unknown block",
			zap.Uintptr("block", uintptr(p)),
		)
		return
	}
	heap.bytes.Add(^uint64(b.size - 1))
}
