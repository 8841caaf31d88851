//go:build sysx_cachelinesize_64

package opt

// CacheLineSize_ forced via the sysx_cachelinesize_64 build tag.
const CacheLineSize_ = 64
