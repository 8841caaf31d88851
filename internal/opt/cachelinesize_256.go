//go:build sysx_cachelinesize_256

package opt

// CacheLineSize_ forced via the sysx_cachelinesize_256 build tag.
const CacheLineSize_ = 256
