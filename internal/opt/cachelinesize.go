//go:build !sysx_cachelinesize_32 && !sysx_cachelinesize_64 && !sysx_cachelinesize_128 && !sysx_cachelinesize_256

package opt

import (
	"unsafe"

	"golang.org/x/sys/cpu"
)

// CacheLineSize_ is the unit default heap blocks are rounded up to, so that
// two blocks never share a line. Detected through golang.org/x/sys/cpu.
const CacheLineSize_ = unsafe.Sizeof(cpu.CacheLinePad{})
