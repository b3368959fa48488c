package diff

import (
	"reflect"
	"testing"
)

func TestKeys(t *testing.T) {
	a := KeySet([]string{"a", "b"})
	b := KeySet([]string{"b", "c"})

	onlyA, onlyB, both := Keys(a, b)

	if !reflect.DeepEqual(onlyA, KeySet([]string{"a"})) {
		t.Errorf("onlyA = %v, want {a}", onlyA)
	}
	if !reflect.DeepEqual(onlyB, KeySet([]string{"c"})) {
		t.Errorf("onlyB = %v, want {c}", onlyB)
	}
	if !reflect.DeepEqual(both, KeySet([]string{"b"})) {
		t.Errorf("both = %v, want {b}", both)
	}
}

func TestKeysEmpty(t *testing.T) {
	onlyA, onlyB, both := Keys(KeySet[string](nil), KeySet[string](nil))
	if len(onlyA) != 0 || len(onlyB) != 0 || len(both) != 0 {
		t.Errorf("expected all empty, got onlyA=%v onlyB=%v both=%v", onlyA, onlyB, both)
	}
}

func TestKeysDuplicatesCollapse(t *testing.T) {
	a := KeySet([]string{"x", "x", "y"})
	onlyA, _, _ := Keys(a, KeySet[string](nil))
	if len(onlyA) != 2 {
		t.Errorf("expected duplicates to collapse to 2 keys, got %d: %v", len(onlyA), onlyA)
	}
}

// TestKeysInvariant checks the disjointness and union invariant from
// the three result sets are pairwise disjoint and their union
// equals a∪b, for a handful of representative inputs.
func TestKeysInvariant(t *testing.T) {
	cases := []struct {
		a, b []int
	}{
		{nil, nil},
		{[]int{1, 2, 3}, nil},
		{nil, []int{1, 2, 3}},
		{[]int{1, 2, 3}, []int{2, 3, 4}},
		{[]int{1, 2, 3}, []int{1, 2, 3}},
	}

	for _, c := range cases {
		a, b := KeySet(c.a), KeySet(c.b)
		onlyA, onlyB, both := Keys(a, b)

		for k := range onlyA {
			if _, ok := onlyB[k]; ok {
				t.Fatalf("onlyA and onlyB share key %v", k)
			}
			if _, ok := both[k]; ok {
				t.Fatalf("onlyA and both share key %v", k)
			}
		}
		for k := range onlyB {
			if _, ok := both[k]; ok {
				t.Fatalf("onlyB and both share key %v", k)
			}
		}

		union := map[int]struct{}{}
		for k := range a {
			union[k] = struct{}{}
		}
		for k := range b {
			union[k] = struct{}{}
		}
		reconstructed := map[int]struct{}{}
		for k := range onlyA {
			reconstructed[k] = struct{}{}
		}
		for k := range onlyB {
			reconstructed[k] = struct{}{}
		}
		for k := range both {
			reconstructed[k] = struct{}{}
		}
		if !reflect.DeepEqual(union, reconstructed) {
			t.Fatalf("union mismatch: want %v got %v", union, reconstructed)
		}
	}
}
