// Package bktree implements a Burkhard-Keller tree over a discrete metric.
//
// Children are keyed by their distance to the parent. A radius query visits
// only children whose key lies within [d-r, d+r] of the query distance d,
// which the triangle inequality makes sufficient. Tree shape depends on
// insertion order; queries are correct for any shape.
package bktree

// Distance is a metric over items. It must be non-negative, symmetric and
// satisfy the triangle inequality.
type Distance[T any] func(a, b T) int

// Match is one query result.
type Match[T any] struct {
	Item     T
	Distance int
}

type node[T any] struct {
	item     T
	children map[int]*node[T]
}

// Tree is a BK-tree. It is not safe for concurrent mutation; concurrent
// queries on a tree that is no longer modified are safe.
type Tree[T any] struct {
	root *node[T]
	dist Distance[T]
	size int
}

// New returns an empty tree using dist.
func New[T any](dist Distance[T]) *Tree[T] {
	return &Tree[T]{dist: dist}
}

// Len returns the number of indexed items.
func (t *Tree[T]) Len() int { return t.size }

// Insert adds item. Items at distance zero from an existing item are kept as
// separate entries.
func (t *Tree[T]) Insert(item T) {
	t.size++
	if t.root == nil {
		t.root = &node[T]{item: item}
		return
	}
	cur := t.root
	for {
		d := t.dist(cur.item, item)
		child, ok := cur.children[d]
		if !ok {
			if cur.children == nil {
				cur.children = make(map[int]*node[T])
			}
			cur.children[d] = &node[T]{item: item}
			return
		}
		cur = child
	}
}

// Query returns every item within radius of target, in no particular order.
func (t *Tree[T]) Query(target T, radius int) []Match[T] {
	if t.root == nil || radius < 0 {
		return nil
	}
	var out []Match[T]
	stack := []*node[T]{t.root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		d := t.dist(n.item, target)
		if d <= radius {
			out = append(out, Match[T]{Item: n.item, Distance: d})
		}
		for k, child := range n.children {
			if k >= d-radius && k <= d+radius {
				stack = append(stack, child)
			}
		}
	}
	return out
}
