//go:build reftree_debug

package reftree

import (
	"errors"
	"fmt"
)

// ErrInvariantViolation is wrapped by the error any debug-mode assertion
// panics with.
var ErrInvariantViolation = errors.New("reftree: invariant violation")

const debugAssertionsEnabled = true

func assertInvariant(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Errorf("%w: %s", ErrInvariantViolation, fmt.Sprintf(format, args...)))
	}
}
