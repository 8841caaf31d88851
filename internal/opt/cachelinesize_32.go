//go:build sysx_cachelinesize_32

package opt

// CacheLineSize_ forced via the sysx_cachelinesize_32 build tag.
const CacheLineSize_ = 32
