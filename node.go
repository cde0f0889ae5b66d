package reftree

import (
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/rogpeppe/reftree/childmap"
)

// Node is a node record: the heap cell backing one entry of the tree. A
// Node is reachable for as long as some [Handle] refers to it, or while it
// is linked into its tree's free list (see freelist.go).
//
// Node has no exported fields; it is addressed only through [Handle] and
// [Node.EnsureChild].
type Node[K comparable, V any] struct {
	tree  *Tree[K, V]
	value V

	// parent is nil iff this Node is its tree's root. It is the node's
	// ancestors link: a back-reference that also carries one owning
	// reference on parent's refcount, taken at creation time in
	// EnsureChild and released by reclaimCascade when the node is
	// finally unlinked. It is consumed (set to nil) only there, never by
	// an ordinary refcount decrement, which is what keeps a deep chain's
	// teardown an iterative walk instead of a recursive one. The other
	// half of the ancestors pair -- reaching the root to get at the free
	// list -- is simply tree, which every Node already holds.
	parent *Node[K, V]

	childrenMu sync.RWMutex
	children   childmap.Map[K, *Node[K, V]]

	refcount atomic.Uint32

	// nextFree is nil while not linked into the free list, the tree's
	// dangling sentinel while linked as the list's last element, or a
	// forward pointer to the next-older linked node otherwise. See
	// freelist.go for the full protocol.
	nextFree atomic.Pointer[Node[K, V]]
}

// id returns the node record's stable address, used only as the logger's
// opaque identifier.
func (n *Node[K, V]) id() uintptr {
	return uintptr(unsafe.Pointer(n))
}

// Value returns the value held at this node.
func (n *Node[K, V]) Value() V {
	return n.value
}

// childKeyOf derives the childmap key for a child node's stored value.
func (n *Node[K, V]) childKeyOf(c *Node[K, V]) K {
	return n.tree.keyOf(c.value)
}

// EnsureChild returns a handle to the unique child of n whose key equals
// keyOf(value). If no such child exists (modulo concurrent resurrection),
// value becomes that child's value; otherwise value is discarded and the
// existing child is returned.
func (n *Node[K, V]) EnsureChild(value V) *Handle[K, V] {
	k := n.tree.keyOf(value)

	n.childrenMu.RLock()
	if child, ok := n.children.Get(k, n.childKeyOf); ok {
		// The revival fetch-add must happen before the lock is released,
		// not after: this is the same guard reclaimCascade takes before
		// unlinking a dead child (the "parent's children lock" of
		// refcount.go's ordering comment). Releasing RLock first would let
		// a concurrent GC pass observe refcount == 0, unlink and destroy
		// child, and fire OnDestroy for it -- all before this fetch-add
		// runs -- leaving this goroutine holding a handle to an already
		// destroyed node.
		h := n.tree.reviveOrHandle(child)
		n.childrenMu.RUnlock()
		return h
	}
	n.childrenMu.RUnlock()

	// Go has no native upgradable read lock: the upgrade from read to
	// write is implemented, as is idiomatic here, by releasing the read
	// lock and acquiring the write lock, then re-checking the key under
	// it. At most one writer can hold the write lock at a time, which is
	// the guarantee the protocol actually needs.
	var created bool
	n.childrenMu.Lock()
	child := n.children.GetOrInsertWith(k, n.childKeyOf, func() *Node[K, V] {
		created = true
		c := &Node[K, V]{tree: n.tree, value: value, parent: n}
		c.refcount.Store(1)
		// The new child's ancestors link is itself an owning reference on
		// n: n must stay alive as long as this child exists, and the
		// matching release happens in reclaimCascade when the child is
		// finally unlinked.
		incrRef(&n.refcount)
		return c
	})
	var h *Handle[K, V]
	if created {
		h = &Handle[K, V]{node: child}
	} else {
		// Same reasoning as the hit path above: the revival fetch-add
		// (if any) must happen while still holding the write lock that
		// GetOrInsertWith found the existing entry under.
		h = n.tree.reviveOrHandle(child)
	}
	n.childrenMu.Unlock()

	if created {
		n.tree.logCreate(child)
	}
	return h
}

// reviveOrHandle fetch-adds 1 to child's refcount and, if the prior value
// was 0, re-links child onto the free list (it was dying, or already
// listed; either way it must end up pinned on the list again). No
// OnCreate fires here: resurrection never re-creates a node.
//
// Callers must hold child's parent's childrenMu (read or write) across
// this call: that lock is what synchronizes this fetch-add with
// reclaimCascade's refcount == 0 check, which runs under the same lock.
func (t *Tree[K, V]) reviveOrHandle(child *Node[K, V]) *Handle[K, V] {
	prior := incrRef(&child.refcount)
	if prior == 0 {
		pushOnFreeList(child)
	}
	return &Handle[K, V]{node: child}
}
