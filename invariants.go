package reftree

// assertInvariant panics with a descriptive message if cond is false. The
// actual check is compiled in only under the reftree_debug build tag (see
// invariants_debug.go / invariants_release.go): release builds omit it
// entirely, per spec.md §7.
