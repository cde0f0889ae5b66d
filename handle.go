package reftree

// Handle is an owning reference to a [Node]. Acquiring a Handle (via
// [Node.EnsureChild] or [Handle.Clone]) increments the node's refcount;
// closing it decrements the refcount and, if it was the last handle,
// routes the node to the tree's free list (or, for the root, straight
// into the reclamation cascade).
//
// Go has no destructors, so unlike the handle type this design is modeled
// on, a Handle that is simply dropped on the floor without a call to
// Close leaks its reference -- callers must call Close exactly once.
type Handle[K comparable, V any] struct {
	node *Node[K, V]
}

// Value returns the value held at the node this handle refers to.
func (h *Handle[K, V]) Value() V {
	return h.node.value
}

// Node returns the node this handle refers to, so that callers can call
// [Node.EnsureChild] on it to descend further into the tree.
func (h *Handle[K, V]) Node() *Node[K, V] {
	return h.node
}

// Clone returns a new handle to the same node, incrementing its refcount.
func (h *Handle[K, V]) Clone() *Handle[K, V] {
	incrRef(&h.node.refcount)
	return &Handle[K, V]{node: h.node}
}

// Close releases this handle's reference. It is safe to call Close more
// than once; the second and later calls are no-ops.
func (h *Handle[K, V]) Close() error {
	n := h.node
	if n == nil {
		return nil
	}
	h.node = nil
	releaseRef(n)
	return nil
}
