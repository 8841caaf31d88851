//go:build !sysx_rwlock_fallback

package sysx

// defaultRWFallback selects the native variant unless the
// sysx_rwlock_fallback build tag is set.
const defaultRWFallback = false
