// Package childmap implements the adaptive child container used by a
// [reftree] node: a three-state discriminated union (empty, one entry, a
// full hash map) that stays allocation-free for the zero- and one-child
// cases that dominate a profile tree's fan-out.
package childmap

// state identifies which of the three storage shapes a Map currently uses.
type state int

const (
	stateEmpty state = iota
	stateOne
	stateMap
)

// Map holds a set of values of type V, addressed by keys of type K that are
// derived from the value itself rather than stored alongside it -- callers
// supply a keyOf function to every operation instead of the Map owning one.
//
// The zero Map is empty and ready to use. Map is not safe for concurrent
// use; callers (see [reftree.Node]) are expected to hold their own
// reader/writer lock around it.
type Map[K comparable, V any] struct {
	state state
	one   V
	m     map[K]V
}

// Get returns the value associated with key, deriving each candidate's key
// via keyOf.
func (c *Map[K, V]) Get(key K, keyOf func(V) K) (V, bool) {
	switch c.state {
	case stateOne:
		if keyOf(c.one) == key {
			return c.one, true
		}
	case stateMap:
		if v, ok := c.m[key]; ok {
			return v, true
		}
	}
	var zero V
	return zero, false
}

// GetOrInsertWith returns the existing value for key if present, otherwise
// calls makeValue to construct one, inserts it, and returns it.
//
// makeValue and keyOf may panic (user-supplied key derivation and value
// construction are not assumed to be total). If they do, the Map is left
// exactly as it was before the call: on promotion from the one-entry shape
// to the map shape, the existing singleton is detached and a fresh map with
// both entries is built before it replaces the singleton, so a panic never
// leaves the Map half-promoted.
func (c *Map[K, V]) GetOrInsertWith(key K, keyOf func(V) K, makeValue func() V) V {
	switch c.state {
	case stateEmpty:
		v := makeValue()
		c.one = v
		c.state = stateOne
		return v
	case stateOne:
		if keyOf(c.one) == key {
			return c.one
		}
		old := c.one
		oldKey := keyOf(old)
		newVal := makeValue()
		promoted := make(map[K]V, 2)
		promoted[oldKey] = old
		promoted[key] = newVal
		var zero V
		c.one = zero
		c.m = promoted
		c.state = stateMap
		return newVal
	case stateMap:
		if v, ok := c.m[key]; ok {
			return v
		}
		v := makeValue()
		c.m[key] = v
		return v
	}
	panic("childmap: unreachable state")
}

// Remove deletes the value for key, if present, and returns it.
//
// Once promoted to the map shape, a Map never demotes back to the one-entry
// or empty shape even if every entry is removed -- the only shrink allowed
// is one-entry -> empty, on removal of the singleton itself.
func (c *Map[K, V]) Remove(key K, keyOf func(V) K) (V, bool) {
	switch c.state {
	case stateOne:
		if keyOf(c.one) == key {
			v := c.one
			var zero V
			c.one = zero
			c.state = stateEmpty
			return v, true
		}
	case stateMap:
		if v, ok := c.m[key]; ok {
			delete(c.m, key)
			return v, true
		}
	}
	var zero V
	return zero, false
}

// Len reports the number of entries currently held. It is provided for
// introspection and tests; the core protocol never calls it.
func (c *Map[K, V]) Len() int {
	switch c.state {
	case stateOne:
		return 1
	case stateMap:
		return len(c.m)
	default:
		return 0
	}
}
