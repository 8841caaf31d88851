//go:build sysx_cachelinesize_128

package opt

// CacheLineSize_ forced via the sysx_cachelinesize_128 build tag.
const CacheLineSize_ = 128
