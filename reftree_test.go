package reftree_test

import (
	"sync"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/rogpeppe/reftree"
)

// countingLogger records on_create/on_destroy counts, satisfying
// reftree.Logger.
type countingLogger struct {
	mu       sync.Mutex
	creates  int
	destroys int
	live     map[uintptr]bool
}

func newCountingLogger() *countingLogger {
	return &countingLogger{live: map[uintptr]bool{}}
}

func (l *countingLogger) OnCreate(id uintptr) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.creates++
	l.live[id] = true
}

func (l *countingLogger) OnDestroy(id uintptr) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.destroys++
	delete(l.live, id)
}

func (l *countingLogger) counts() (creates, destroys int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.creates, l.destroys
}

func identity(v int) int { return v }

// TestBasicDedup is scenario S1: two ensure_child calls for the same key
// on the same parent must return the same node.
func TestBasicDedup(t *testing.T) {
	c := qt.New(t)
	tr := reftree.New(0, identity)
	defer tr.Close()

	a := tr.Root().EnsureChild(1)
	defer a.Close()
	b := tr.Root().EnsureChild(1)
	defer b.Close()

	c.Assert(a.Node(), qt.Equals, b.Node())
}

// TestRevive is scenario S2: dropping the only handle to a child and then
// asking for the same key again must revive the same node without a
// second on_create and without destroying it. The revived node stays
// linked on the free list (held by the list's own reference) until a GC
// pass.
func TestRevive(t *testing.T) {
	c := qt.New(t)
	logger := newCountingLogger()
	tr := reftree.New(0, identity, reftree.WithLogger[int, int](logger))
	defer tr.Close()

	h := tr.Root().EnsureChild(1)
	node := h.Node()
	c.Assert(h.Close(), qt.IsNil)

	c.Assert(tr.FreeListLen(), qt.Equals, 1)

	revived := tr.Root().EnsureChild(1)
	defer revived.Close()
	c.Assert(revived.Node(), qt.Equals, node)

	creates, destroys := logger.counts()
	c.Assert(creates, qt.Equals, 2) // root + the one child
	c.Assert(destroys, qt.Equals, 0)
}

// TestGCDrain is scenario S3: creating and dropping many distinct
// children crosses the GC threshold, and an explicit GC call reclaims all
// of them.
func TestGCDrain(t *testing.T) {
	c := qt.New(t)
	logger := newCountingLogger()
	tr := reftree.New(0, identity, reftree.WithLogger[int, int](logger), reftree.WithGCThreshold[int, int](300))
	defer tr.Close()

	const n = 500
	for i := 0; i < n; i++ {
		h := tr.Root().EnsureChild(i + 1)
		c.Assert(h.Close(), qt.IsNil)
	}

	c.Assert(tr.FreeListLen() >= 300, qt.IsTrue)
	tr.MaybeGC()
	c.Assert(tr.FreeListLen(), qt.Equals, 0)

	_, destroys := logger.counts()
	c.Assert(destroys, qt.Equals, n)
}

// TestDeepChain is scenario S4: a chain of many nodes must tear down
// iteratively (no stack overflow) and every node must be destroyed.
func TestDeepChain(t *testing.T) {
	c := qt.New(t)
	logger := newCountingLogger()
	tr := reftree.New(0, identity, reftree.WithLogger[int, int](logger))

	const depth = 10000
	cur := tr.Root()
	var last *reftree.Handle[int, int]
	for i := 0; i < depth; i++ {
		h := cur.EnsureChild(i + 1)
		if last != nil {
			c.Assert(last.Close(), qt.IsNil)
		}
		last = h
		cur = h.Node()
	}
	c.Assert(last.Close(), qt.IsNil)
	c.Assert(tr.Close(), qt.IsNil)

	creates, destroys := logger.counts()
	c.Assert(creates, qt.Equals, depth+1) // +1 for the root
	c.Assert(destroys, qt.Equals, depth+1)
}

// TestGCIdempotence is property 6: gc();gc() behaves like one gc() call,
// and MaybeGC below the threshold is a no-op.
func TestGCIdempotence(t *testing.T) {
	c := qt.New(t)
	tr := reftree.New(0, identity, reftree.WithGCThreshold[int, int](10))
	defer tr.Close()

	for i := 0; i < 3; i++ {
		h := tr.Root().EnsureChild(i + 1)
		c.Assert(h.Close(), qt.IsNil)
	}
	c.Assert(tr.FreeListLen(), qt.Equals, 3)

	tr.MaybeGC() // below threshold: no-op
	c.Assert(tr.FreeListLen(), qt.Equals, 3)

	tr.GC()
	c.Assert(tr.FreeListLen(), qt.Equals, 0)
	tr.GC() // idempotent
	c.Assert(tr.FreeListLen(), qt.Equals, 0)
}

// TestHandleCloneKeepsNodeAlive ensures a clone is an independent
// reference: closing the original must not reclaim the node while the
// clone is still outstanding.
func TestHandleCloneKeepsNodeAlive(t *testing.T) {
	c := qt.New(t)
	logger := newCountingLogger()
	tr := reftree.New(0, identity, reftree.WithLogger[int, int](logger))
	defer tr.Close()

	h := tr.Root().EnsureChild(1)
	clone := h.Clone()
	c.Assert(h.Close(), qt.IsNil)

	_, destroys := logger.counts()
	c.Assert(destroys, qt.Equals, 0)
	c.Assert(tr.FreeListLen(), qt.Equals, 0) // still held by clone, never listed

	c.Assert(clone.Close(), qt.IsNil)
	c.Assert(tr.FreeListLen(), qt.Equals, 1)
}

// TestUniqueness is property 1: for any key, at most one child of a node
// may carry that key at a time.
func TestUniqueness(t *testing.T) {
	c := qt.New(t)
	tr := reftree.New(0, identity)
	defer tr.Close()

	var handles []*reftree.Handle[int, int]
	for i := 0; i < 20; i++ {
		handles = append(handles, tr.Root().EnsureChild(i%5))
	}
	seen := map[*reftree.Node[int, int]]int{}
	for i, h := range handles {
		seen[h.Node()] = seen[h.Node()] + 1
		c.Assert(h.Value(), qt.Equals, i%5)
	}
	// Exactly 5 distinct nodes for keys 0..4.
	c.Assert(len(seen), qt.Equals, 5)
	for _, h := range handles {
		c.Assert(h.Close(), qt.IsNil)
	}
}
