// Package reftree implements a concurrent, reference-counted tree of
// values whose nodes are created on demand through parent-keyed child
// lookups and whose deletion is deferred through a tree-global free list.
//
// The intended workload is profile-tree accounting: call stacks or
// allocation-site chains, where many short-lived references to nodes
// corresponding to paths from the root are taken and released, and where
// naive reference counting would thrash because transient stacks of the
// same shape are re-created repeatedly. [Node.EnsureChild] amortizes that
// churn by deferring a node's destruction to the free list (see
// [Tree.GC]) instead of destroying it the instant its last handle drops,
// so that a node revived by a concurrent lookup before the next GC pass
// never has to be reallocated.
package reftree
