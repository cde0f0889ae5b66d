package reftree

import "sync/atomic"

// incrRef performs a relaxed fetch-add of 1 and returns the prior value.
// Ordering with reclamation is enforced elsewhere: a revival increment
// (reviveOrHandle) is always performed while the caller holds the
// relevant parent's childrenMu, the same lock reclaimCascade takes before
// checking refcount == 0 and unlinking a dead child, so a plain Add
// suffices here.
func incrRef(c *atomic.Uint32) (prior uint32) {
	return c.Add(1) - 1
}

// decrRef performs a release fetch-sub of 1 and returns the prior value.
func decrRef(c *atomic.Uint32) (prior uint32) {
	return c.Add(^uint32(0)) + 1
}
