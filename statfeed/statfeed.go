// Package statfeed broadcasts point-in-time reclamation snapshots from a
// [reftree.Tree] to any number of watchers, so a monitoring loop can
// observe GC behavior without polling Tree.FreeListLen in a busy loop.
package statfeed

import "sync"

// Snapshot is a point-in-time view of a tree's bookkeeping counters.
type Snapshot struct {
	Creates     int64
	Destroys    int64
	FreeListLen int64
}

// Feed holds the most recently published Snapshot and lets any number of
// Watchers block until the next one arrives. The zero Feed is ready to
// use; watchers on a zero Feed block until Publish is first called.
type Feed struct {
	wait sync.Cond
	// mu guards the fields below it.
	mu      sync.RWMutex
	val     Snapshot
	version int
	closed  bool
}

// NewFeed creates a Feed whose initial snapshot is the zero Snapshot.
func NewFeed() *Feed {
	var f Feed
	f.init()
	return &f
}

func (f *Feed) needsInit() bool {
	return f.wait.L == nil
}

func (f *Feed) init() {
	if f.needsInit() {
		f.wait.L = f.mu.RLocker()
	}
}

// Publish replaces the current snapshot and wakes every blocked watcher.
// It is safe to call concurrently with Watch and with any Watcher method.
func (f *Feed) Publish(s Snapshot) {
	f.mu.Lock()
	f.init()
	f.val = s
	f.version++
	f.mu.Unlock()
	f.wait.Broadcast()
}

// Close unblocks any outstanding watchers permanently. Close always
// returns nil.
func (f *Feed) Close() error {
	f.mu.Lock()
	f.init()
	f.closed = true
	f.mu.Unlock()
	f.wait.Broadcast()
	return nil
}

// Closed reports whether the feed has been closed.
func (f *Feed) Closed() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.closed
}

// Get returns the most recently published snapshot.
func (f *Feed) Get() Snapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.val
}

// Watch returns a Watcher observing snapshots published to f. If f has
// already been published to, the Watcher's first Next call returns the
// current snapshot at once.
func (f *Feed) Watch() *Watcher {
	return &Watcher{feed: f}
}

// Watcher observes a sequence of snapshots published to a Feed.
type Watcher struct {
	feed    *Feed
	version int
	current Snapshot
	closed  bool
}

// Next blocks until a new snapshot is available, returning false once the
// Feed or the Watcher itself has been closed.
func (w *Watcher) Next() bool {
	f := w.feed
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.needsInit() {
		f.mu.RUnlock()
		f.mu.Lock()
		f.init()
		f.mu.Unlock()
		f.mu.RLock()
	}
	for {
		if w.version != f.version {
			w.current = f.val
			w.version = f.version
			return true
		}
		if f.closed || w.closed {
			return false
		}
		f.wait.Wait()
	}
}

// Close closes the Watcher without closing the underlying Feed. It may be
// called concurrently with Next.
func (w *Watcher) Close() {
	w.feed.mu.Lock()
	w.feed.init()
	w.closed = true
	w.feed.mu.Unlock()
	w.feed.wait.Broadcast()
}

// Value returns the last snapshot retrieved by Next.
func (w *Watcher) Value() Snapshot {
	return w.current
}
