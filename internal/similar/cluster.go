package similar

import (
	"cmp"
	"slices"
	"strings"

	"twinfind/internal/bktree"
	"twinfind/internal/phash"
	"twinfind/internal/scanrun"
)

func distance(a, b ImageFingerprint) int {
	d, err := phash.Hamming(a.Hash, b.Hash)
	if err != nil {
		// Hash sizes are fixed per run; mixed sizes never compare as close.
		return a.Hash.Len() + b.Hash.Len()
	}
	return d
}

// newIndex builds a BK-tree over positions in fps.
func newIndex(fps []ImageFingerprint) *bktree.Tree[int] {
	tree := bktree.New(bktree.Distance[int](func(a, b int) int {
		return distance(fps[a], fps[b])
	}))
	for i := range fps {
		tree.Insert(i)
	}
	return tree
}

// neighbours lists positions within radius of i, excluding i, sorted by
// (distance, path).
func neighbours(fps []ImageFingerprint, tree *bktree.Tree[int], i, radius int) []bktree.Match[int] {
	matches := tree.Query(i, radius)
	out := matches[:0]
	for _, m := range matches {
		if m.Item != i {
			out = append(out, m)
		}
	}
	slices.SortFunc(out, func(a, b bktree.Match[int]) int {
		if c := cmp.Compare(a.Distance, b.Distance); c != 0 {
			return c
		}
		return strings.Compare(fps[a.Item].Path, fps[b.Item].Path)
	})
	return out
}

// seedOrder lists positions in the order clustering picks representatives.
// fps is sorted by path; with preferWork the non-reference images come first
// so a representative is a reference image only when no work image is left.
func seedOrder(fps []ImageFingerprint, preferWork bool) []int {
	order := make([]int, 0, len(fps))
	for i, fp := range fps {
		if !preferWork || !fp.Reference {
			order = append(order, i)
		}
	}
	if preferWork {
		for i, fp := range fps {
			if fp.Reference {
				order = append(order, i)
			}
		}
	}
	return order
}

// cluster turns per-position neighbour lists into groups. fps must be sorted
// by path. Representative linkage visits seeds in order; chained linkage
// ignores it.
func cluster(fps []ImageFingerprint, near [][]bktree.Match[int], linkage Linkage, order []int) []SimilarityGroup {
	if linkage == Chained {
		return clusterChained(fps, near)
	}
	visited := make([]bool, len(fps))
	var groups []SimilarityGroup
	for _, i := range order {
		if visited[i] {
			continue
		}
		visited[i] = true
		var members []SimilarImage
		for _, m := range near[i] {
			if visited[m.Item] {
				continue
			}
			visited[m.Item] = true
			members = append(members, SimilarImage{ImageFingerprint: fps[m.Item], Distance: m.Distance})
		}
		if len(members) > 0 {
			groups = append(groups, SimilarityGroup{Representative: fps[i], Members: members})
		}
	}
	slices.SortFunc(groups, func(a, b SimilarityGroup) int {
		return strings.Compare(a.Representative.Path, b.Representative.Path)
	})
	return groups
}

func clusterChained(fps []ImageFingerprint, near [][]bktree.Match[int]) []SimilarityGroup {
	parent := make([]int, len(fps))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(x int) int {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}
	for i, list := range near {
		for _, m := range list {
			ra, rb := find(i), find(m.Item)
			if ra == rb {
				continue
			}
			// The smaller position (earlier path) becomes the root.
			if rb < ra {
				ra, rb = rb, ra
			}
			parent[rb] = ra
		}
	}

	components := make(map[int][]int)
	var roots []int
	for i := range fps {
		r := find(i)
		if _, ok := components[r]; !ok {
			roots = append(roots, r)
		}
		components[r] = append(components[r], i)
	}

	var groups []SimilarityGroup
	for _, r := range roots {
		idx := components[r]
		if len(idx) < 2 {
			continue
		}
		rep := fps[idx[0]]
		members := make([]SimilarImage, 0, len(idx)-1)
		for _, j := range idx[1:] {
			members = append(members, SimilarImage{ImageFingerprint: fps[j], Distance: distance(rep, fps[j])})
		}
		sortMembers(members)
		groups = append(groups, SimilarityGroup{Representative: rep, Members: members})
	}
	return groups
}

func sortMembers(members []SimilarImage) {
	slices.SortFunc(members, func(a, b SimilarImage) int {
		if c := cmp.Compare(a.Distance, b.Distance); c != 0 {
			return c
		}
		return strings.Compare(a.Path, b.Path)
	})
}

// referenceGroups drops groups without reference members. Representative
// groups already have a work-image representative from seedOrder. Chained
// groups re-pick theirs as the first non-reference image by path (or the
// first image when all are reference files) and recompute distances, which
// chained linkage does not bound.
func referenceGroups(groups []SimilarityGroup, linkage Linkage) []SimilarityGroup {
	out := make([]SimilarityGroup, 0, len(groups))
	for _, g := range groups {
		if !hasReference(g) {
			continue
		}
		if linkage == Chained {
			g = repick(g)
		}
		out = append(out, g)
	}
	return out
}

func hasReference(g SimilarityGroup) bool {
	if g.Representative.Reference {
		return true
	}
	for _, m := range g.Members {
		if m.Reference {
			return true
		}
	}
	return false
}

func repick(g SimilarityGroup) SimilarityGroup {
	all := []ImageFingerprint{g.Representative}
	for _, m := range g.Members {
		all = append(all, m.ImageFingerprint)
	}
	slices.SortFunc(all, func(a, b ImageFingerprint) int { return strings.Compare(a.Path, b.Path) })

	repIdx := slices.IndexFunc(all, func(fp ImageFingerprint) bool { return !fp.Reference })
	if repIdx < 0 {
		repIdx = 0
	}
	rep := all[repIdx]
	members := make([]SimilarImage, 0, len(all)-1)
	for i, fp := range all {
		if i != repIdx {
			members = append(members, SimilarImage{ImageFingerprint: fp, Distance: distance(rep, fp)})
		}
	}
	sortMembers(members)
	return SimilarityGroup{Representative: rep, Members: members}
}

// excludeSameSize keeps the representative of every group and drops members
// whose byte size equals one already kept in the same group. Groups left
// without members disappear.
func excludeSameSize(run *scanrun.State, groups []SimilarityGroup) []SimilarityGroup {
	out := groups[:0]
	for _, g := range groups {
		kept := map[uint64]string{g.Representative.Size: g.Representative.Path}
		members := make([]SimilarImage, 0, len(g.Members))
		for _, m := range g.Members {
			if first, ok := kept[m.Size]; ok {
				run.Skip(m.Path, "same size as "+first)
				run.Add(scanrun.CounterExcluded, 1)
				continue
			}
			kept[m.Size] = m.Path
			members = append(members, m)
		}
		if len(members) == 0 {
			continue
		}
		g.Members = members
		out = append(out, g)
	}
	return out
}
