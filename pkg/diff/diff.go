// Package diff implements the single set-arithmetic primitive the
// reconciliation core is built on.
package diff

// Keys computes the symmetric classification of two key sets: the keys
// only in a, only in b, and in both. It is pure and operates on key
// sets only; duplicates in the input collapse before comparison.
func Keys[K comparable](a, b map[K]struct{}) (onlyA, onlyB, both map[K]struct{}) {
	onlyA = make(map[K]struct{})
	onlyB = make(map[K]struct{})
	both = make(map[K]struct{})

	for k := range a {
		if _, ok := b[k]; ok {
			both[k] = struct{}{}
		} else {
			onlyA[k] = struct{}{}
		}
	}
	for k := range b {
		if _, ok := a[k]; !ok {
			onlyB[k] = struct{}{}
		}
	}
	return onlyA, onlyB, both
}

// KeySet builds a key set from any slice of comparable keys, collapsing
// duplicates. Useful for callers that hold a slice rather than a map.
func KeySet[K comparable](keys []K) map[K]struct{} {
	set := make(map[K]struct{}, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	return set
}
