package reftree

import "runtime"

// pushOnFreeList links n onto its tree's free list. It reports false only
// when the tree has already been torn down ([Tree.Close] has run), in
// which case the caller must fall through to reclaimCascade directly.
//
// This is the only place the free-list head is mutated outside of
// [Tree.swapAndDrain]; see tree.go for the three-valued encoding of
// freeListHead.
func pushOnFreeList[K comparable, V any](n *Node[K, V]) bool {
	t := n.tree
	for {
		old := t.freeListHead.Load()
		switch {
		case old == nil:
			// Torn down: no further pushes permitted.
			return false
		case old == t.lockedSentinel:
			// Another pusher holds the lock (GC passes swap the head
			// directly and never take it). The critical
			// section it is running contains no loops or blocking
			// calls (spec.md's forward-progress guarantee), so this is
			// a short, bounded spin.
			runtime.Gosched()
			continue
		case old == n:
			// Another thread already linked this exact node as head
			// between our load and now; we owe nothing further.
			return true
		}
		if !t.freeListHead.CompareAndSwap(old, t.lockedSentinel) {
			continue
		}
		// Lock acquired: old is the pre-lock head snapshot.
		if n.nextFree.Load() != nil {
			// A concurrent resurrection (Tree.reviveOrHandle) already
			// linked n elsewhere in the chain between our refcount
			// revive observation and this lock acquisition. Release
			// the lock by restoring the pre-lock head unchanged.
			t.freeListHead.Store(old)
			return true
		}
		incrRef(&n.refcount) // the list's own reference, keeping n pinned.
		t.freeCount.Add(1)
		n.nextFree.Store(old)
		t.freeListHead.Store(n) // publishes n with the Store's release semantics.
		return true
	}
}

// swapAndDrain performs the swap-and-drain GC/teardown operation: it
// atomically replaces the free-list head with newHead (danglingSentinel
// for a GC pass, nil for teardown) and runs the reclamation cascade over
// whatever chain of nodes it captured.
func (t *Tree[K, V]) swapAndDrain(newHead *Node[K, V]) {
	for {
		head := t.freeListHead.Load()
		switch {
		case head == nil:
			// Already torn down.
			return
		case head == t.lockedSentinel:
			runtime.Gosched()
			continue
		case head == t.danglingSentinel:
			if newHead == t.danglingSentinel {
				return // GC on an already-empty list: no-op.
			}
			if t.freeListHead.CompareAndSwap(head, newHead) {
				return // Teardown of an empty list: nothing to drain.
			}
			continue
		}
		if t.freeListHead.CompareAndSwap(head, newHead) {
			t.drain(head)
			return
		}
	}
}

// drain walks the captured chain starting at head, releasing each node's
// free-list reference and running the reclamation cascade on whichever
// nodes that release actually brings to zero, until the chain's terminal
// danglingSentinel marker is reached.
func (t *Tree[K, V]) drain(head *Node[K, V]) {
	cur := head
	for {
		succ := cur.nextFree.Swap(nil)
		t.freeCount.Add(-1)
		// The free list's own reference (added in pushOnFreeList) is
		// released here, exactly as a handle's would be on Close: only
		// once this brings the count to zero is the node still dead,
		// rather than having been revived while it sat listed.
		if prior := decrRef(&cur.refcount); prior == 1 {
			reclaimCascade(cur)
		}
		if succ == t.danglingSentinel {
			return
		}
		cur = succ
	}
}

// releaseRef decrements n's refcount and, if it was the last reference,
// routes n to the free list (or, for the root, straight to the
// reclamation cascade, since the root is never free-listed).
func releaseRef[K comparable, V any](n *Node[K, V]) {
	prior := decrRef(&n.refcount)
	if prior != 1 {
		return
	}
	if n.parent == nil {
		reclaimCascade(n)
		return
	}
	if !pushOnFreeList(n) {
		reclaimCascade(n)
	}
}

// reclaimCascade destroys a dead node and, iteratively rather than
// recursively, cascades up through any ancestor whose refcount now also
// reaches zero as a result. The loop (instead of recursion through
// parent pointers) is what keeps a 100,000-deep chain's teardown O(1) in
// stack depth.
func reclaimCascade[K comparable, V any](start *Node[K, V]) {
	cur := start
	for {
		var parent *Node[K, V]
		if cur.parent != nil {
			parent = cur.parent
			parent.childrenMu.Lock()
			if cur.refcount.Load() >= 1 {
				// A concurrent EnsureChild revived cur between the
				// decrement that sent it here and this re-check: abort,
				// the node is alive again.
				parent.childrenMu.Unlock()
				return
			}
			assertInvariant(cur.refcount.Load() == 0, "reclaimCascade: refcount not zero at unlink")
			cur.nextFree.Store(nil)
			parent.children.Remove(parent.childKeyOf(cur), parent.childKeyOf)
			parent.childrenMu.Unlock()
		}
		// The refcount load above (paired with whichever Release
		// decrement sent cur to zero) and the children lock's own
		// acquire/release pair stand in for the explicit Acquire fence
		// of spec.md's §4.6 step 2: both make any write to cur made by
		// a prior owner visible here before cur is torn down.
		cur.tree.logDestroy(cur)
		cur.parent = nil // consume the ancestors link.

		if parent == nil {
			return
		}
		priorParent := decrRef(&parent.refcount)
		if priorParent != 1 {
			return
		}
		cur = parent
	}
}
