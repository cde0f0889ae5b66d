//go:build !reftree_debug

package reftree

const debugAssertionsEnabled = false

// assertInvariant is a no-op in release builds; see invariants_debug.go.
func assertInvariant(cond bool, format string, args ...any) {}
