//go:build sysx_rwlock_fallback

package sysx

// defaultRWFallback is forced on by the sysx_rwlock_fallback build tag.
// Use: go build -tags=sysx_rwlock_fallback
const defaultRWFallback = true
