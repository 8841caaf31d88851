//go:build race

package opt

// Race_ reports whether the race detector is enabled. Tests use it to
// shorten long-running scenarios.
const Race_ = true
