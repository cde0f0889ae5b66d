package reftree

import (
	"sync/atomic"

	"github.com/rogpeppe/reftree/statfeed"
)

// defaultGCThreshold is the free-list length above which [Tree.MaybeGC]
// triggers a [Tree.GC] pass. It is a heuristic inherited from prior art,
// not load-bearing for correctness -- see [WithGCThreshold].
const defaultGCThreshold = 300

// Tree owns the root node of a reference-counted tree and hosts the
// tree-global free list that defers reclamation of nodes whose refcount
// has transiently reached zero.
//
// All of Tree's and Node's exported methods are safe to call from any
// goroutine.
type Tree[K comparable, V any] struct {
	root        *Node[K, V]
	keyOf       func(V) K
	logger      Logger
	gcThreshold int

	// freeListHead encodes a three-valued pointer, anchored here rather
	// than on the root Node (spec.md anchors it on the root record
	// itself; Go's GC needs every linked node kept reachable through a
	// real *Node, and a tree-level field is the natural place for that
	// without special-casing the root Node's layout):
	//   - nil: the tree has been torn down; no further pushes permitted.
	//   - danglingSentinel: the free list is empty.
	//   - lockedSentinel: the list is locked by whichever goroutine
	//     installed it (spec.md's low tag bit, realized here as a
	//     distinct sentinel pointer rather than a tagged address, since
	//     tagging a real, GC-managed pointer's low bit is not something
	//     Go's allocator and garbage collector support safely).
	//   - any other *Node: the (unlocked) head of the free list.
	freeListHead     atomic.Pointer[Node[K, V]]
	danglingSentinel *Node[K, V]
	lockedSentinel   *Node[K, V]

	freeCount    atomic.Int64
	createCount  atomic.Int64
	destroyCount atomic.Int64

	// feed, if configured via WithStatFeed, is published a fresh Snapshot
	// after every GC pass, so a monitor goroutine can watch reclamation
	// progress via Feed.Watch instead of polling FreeListLen.
	feed *statfeed.Feed
}

// Option configures a [Tree] at construction time.
type Option[K comparable, V any] func(*Tree[K, V])

// WithGCThreshold overrides the free-list length above which MaybeGC
// triggers a GC pass. The default is 300.
func WithGCThreshold[K comparable, V any](n int) Option[K, V] {
	return func(t *Tree[K, V]) { t.gcThreshold = n }
}

// WithLogger attaches a [Logger] that observes node creation and
// destruction.
func WithLogger[K comparable, V any](l Logger) Option[K, V] {
	return func(t *Tree[K, V]) { t.logger = l }
}

// WithStatFeed attaches a [statfeed.Feed] that receives a fresh
// [statfeed.Snapshot] of the tree's bookkeeping counters after every GC
// pass (including the one [Tree.Close] runs during teardown).
func WithStatFeed[K comparable, V any](f *statfeed.Feed) Option[K, V] {
	return func(t *Tree[K, V]) { t.feed = f }
}

// New creates a tree whose root holds rootValue. keyOf must be a pure,
// total, deterministic function from a value to its child-map key: two
// values are considered the same child of a parent iff keyOf agrees on
// them.
func New[K comparable, V any](rootValue V, keyOf func(V) K, opts ...Option[K, V]) *Tree[K, V] {
	t := &Tree[K, V]{
		keyOf:       keyOf,
		gcThreshold: defaultGCThreshold,
	}
	for _, opt := range opts {
		opt(t)
	}
	// Sentinels are ordinary Node records, never inserted into any
	// child map or returned to a caller; their only role is to serve as
	// pointer-identity markers the free-list protocol can compare
	// against. Using real *Node values (rather than magic addresses)
	// keeps them meaningful to Go's garbage collector and race detector.
	t.danglingSentinel = &Node[K, V]{tree: t}
	t.lockedSentinel = &Node[K, V]{tree: t}
	t.freeListHead.Store(t.danglingSentinel)

	root := &Node[K, V]{tree: t, value: rootValue}
	root.refcount.Store(1)
	t.root = root
	t.logCreate(root)
	return t
}

// Root returns the tree's root node. The returned Node is a borrow: it is
// not a [Handle] and does not need to be closed, but it must not outlive
// the Tree.
func (t *Tree[K, V]) Root() *Node[K, V] {
	return t.root
}

// FreeListLen returns the number of nodes currently linked into the free
// list. It is a best-effort snapshot: concurrent pushes, revivals, and GC
// passes may change the count before the caller observes it.
func (t *Tree[K, V]) FreeListLen() int {
	return int(t.freeCount.Load())
}

// GCThreshold returns the configured [WithGCThreshold] value.
func (t *Tree[K, V]) GCThreshold() int {
	return t.gcThreshold
}

// GC drains the free list, running the reclamation cascade on every node
// linked into it. Calling GC when the list is already empty (including
// immediately after a prior GC call) is a no-op.
func (t *Tree[K, V]) GC() {
	t.swapAndDrain(t.danglingSentinel)
	t.publishSnapshot()
}

// MaybeGC calls GC if the free list's length exceeds the configured GC
// threshold.
func (t *Tree[K, V]) MaybeGC() {
	if t.FreeListLen() > t.gcThreshold {
		t.GC()
	}
}

// Close tears the tree down: it drains the free list with the head
// permanently set to nil (so that no further push can succeed; racing
// pushers instead fall through to the reclamation cascade directly), then
// releases the tree's own reference on the root. By the time Close
// returns, every node that was reachable only through this tree has been
// reclaimed (modulo handles the caller is still holding elsewhere).
func (t *Tree[K, V]) Close() error {
	t.swapAndDrain(nil)
	releaseRef(t.root)
	t.publishSnapshot()
	if t.feed != nil {
		t.feed.Close()
	}
	return nil
}

func (t *Tree[K, V]) logCreate(n *Node[K, V]) {
	t.createCount.Add(1)
	if t.logger != nil {
		t.logger.OnCreate(n.id())
	}
}

func (t *Tree[K, V]) logDestroy(n *Node[K, V]) {
	t.destroyCount.Add(1)
	if t.logger != nil {
		t.logger.OnDestroy(n.id())
	}
}

func (t *Tree[K, V]) publishSnapshot() {
	if t.feed == nil {
		return
	}
	t.feed.Publish(statfeed.Snapshot{
		Creates:     t.createCount.Load(),
		Destroys:    t.destroyCount.Load(),
		FreeListLen: t.freeCount.Load(),
	})
}
