package bktree

import (
	"math/bits"
	"math/rand"
	"slices"
	"testing"
)

func hamming(a, b uint64) int { return bits.OnesCount64(a ^ b) }

func TestQueryMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	tree := New(Distance[uint64](hamming))
	var items []uint64
	for i := 0; i < 2000; i++ {
		v := rng.Uint64()
		if i%10 == 0 && len(items) > 0 {
			// Near neighbours of an existing item.
			v = items[rng.Intn(len(items))] ^ (1 << uint(rng.Intn(64)))
		}
		items = append(items, v)
		tree.Insert(v)
	}
	if tree.Len() != len(items) {
		t.Fatalf("Len = %d, want %d", tree.Len(), len(items))
	}

	for _, radius := range []int{0, 1, 3, 10, 20} {
		for q := 0; q < 50; q++ {
			target := items[rng.Intn(len(items))]
			var want []uint64
			for _, it := range items {
				if hamming(it, target) <= radius {
					want = append(want, it)
				}
			}
			var got []uint64
			for _, m := range tree.Query(target, radius) {
				if m.Distance != hamming(m.Item, target) {
					t.Fatalf("reported distance %d, actual %d", m.Distance, hamming(m.Item, target))
				}
				got = append(got, m.Item)
			}
			slices.Sort(want)
			slices.Sort(got)
			if !slices.Equal(got, want) {
				t.Fatalf("radius %d: got %d matches, want %d", radius, len(got), len(want))
			}
		}
	}
}

func TestEmptyTreeAndDuplicates(t *testing.T) {
	tree := New(Distance[uint64](hamming))
	if got := tree.Query(0, 5); got != nil {
		t.Fatalf("empty tree returned %v", got)
	}
	tree.Insert(7)
	tree.Insert(7)
	if got := tree.Query(7, 0); len(got) != 2 {
		t.Fatalf("expected both copies, got %v", got)
	}
	if got := tree.Query(7, -1); got != nil {
		t.Fatalf("negative radius should return nothing, got %v", got)
	}
}
