package reftree

// Logger is the tree's only logging hook. OnCreate fires when a node is
// freshly allocated by [Node.EnsureChild] or [New]; OnDestroy fires when a
// node is actually reclaimed by the drop/GC cascade. id is the node
// record's stable address for the lifetime of the record.
//
// Neither method fires while any lock is held, and neither may panic: a
// panicking logger would abort a reclamation cascade partway through and
// leave the tree inconsistent.
//
// On resurrection -- a free-listed node revived by a concurrent
// [Node.EnsureChild] before GC reclaims it -- OnCreate does not fire again;
// the node was never destroyed.
type Logger interface {
	OnCreate(id uintptr)
	OnDestroy(id uintptr)
}
