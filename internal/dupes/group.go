package dupes

import (
	"cmp"
	"slices"
	"strings"

	"twinfind/internal/entry"
)

// GroupBySize buckets records by exact byte size. Buckets with fewer than two
// members are dropped and each bucket is ordered by path.
func GroupBySize(records []entry.FileRecord) map[uint64][]entry.FileRecord {
	buckets := make(map[uint64][]entry.FileRecord)
	for _, rec := range records {
		buckets[rec.Size] = append(buckets[rec.Size], rec)
	}
	for size, bucket := range buckets {
		if len(bucket) < 2 {
			delete(buckets, size)
			continue
		}
		slices.SortFunc(bucket, func(a, b entry.FileRecord) int { return strings.Compare(a.Path, b.Path) })
	}
	return buckets
}

// flattenBySize lists bucket members largest size first so the slowest reads
// start early.
func flattenBySize(buckets map[uint64][]entry.FileRecord) []entry.FileRecord {
	sizes := make([]uint64, 0, len(buckets))
	total := 0
	for size, bucket := range buckets {
		sizes = append(sizes, size)
		total += len(bucket)
	}
	slices.SortFunc(sizes, func(a, b uint64) int { return cmp.Compare(b, a) })
	out := make([]entry.FileRecord, 0, total)
	for _, size := range sizes {
		out = append(out, buckets[size]...)
	}
	return out
}

// collisions keeps entries that share their content with at least one other
// entry, preserving input order. Entries are bucketed by hash bytes and
// SameContent settles membership, so size and algorithm always take part.
func collisions(entries []HashedEntry) [][]HashedEntry {
	byHash := make(map[string][]int)
	var groups [][]HashedEntry
	for _, e := range entries {
		if len(e.Hash) == 0 {
			continue
		}
		key := string(e.Hash)
		placed := false
		for _, i := range byHash[key] {
			if groups[i][0].SameContent(e) {
				groups[i] = append(groups[i], e)
				placed = true
				break
			}
		}
		if placed {
			continue
		}
		byHash[key] = append(byHash[key], len(groups))
		groups = append(groups, []HashedEntry{e})
	}
	out := groups[:0]
	for _, g := range groups {
		if len(g) >= 2 {
			out = append(out, g)
		}
	}
	return out
}

// buildGroups turns member lists into presentation-ordered DuplicateGroups.
func buildGroups(members [][]HashedEntry, key func([]HashedEntry) string) []DuplicateGroup {
	groups := make([]DuplicateGroup, 0, len(members))
	for _, m := range members {
		if len(m) < 2 {
			continue
		}
		entries := slices.Clone(m)
		slices.SortFunc(entries, func(a, b HashedEntry) int { return entry.Compare(a.FileRecord, b.FileRecord) })
		groups = append(groups, DuplicateGroup{
			Size:    commonSize(entries),
			Key:     key(entries),
			Entries: entries,
		})
	}
	SortGroups(groups)
	return groups
}

func commonSize(entries []HashedEntry) uint64 {
	size := entries[0].Size
	for _, e := range entries[1:] {
		if e.Size != size {
			return 0
		}
	}
	return size
}

// SortGroups orders groups by size descending, then by first entry.
func SortGroups(groups []DuplicateGroup) {
	slices.SortFunc(groups, func(a, b DuplicateGroup) int {
		if c := cmp.Compare(b.Size, a.Size); c != 0 {
			return c
		}
		return entry.Compare(a.Entries[0].FileRecord, b.Entries[0].FileRecord)
	})
}

// ReferenceGroups restructures groups around reference-folder members. The
// representative is the first non-reference entry, or the first entry when
// every member is a reference file. Groups without any reference member are
// dropped.
func ReferenceGroups(groups []DuplicateGroup) []ReferencedGroup {
	out := make([]ReferencedGroup, 0, len(groups))
	for _, g := range groups {
		repIdx := -1
		hasRef := false
		for i, e := range g.Entries {
			if e.Reference {
				hasRef = true
			} else if repIdx < 0 {
				repIdx = i
			}
		}
		if !hasRef {
			continue
		}
		if repIdx < 0 {
			repIdx = 0
		}
		matches := make([]HashedEntry, 0, len(g.Entries)-1)
		for i, e := range g.Entries {
			if i != repIdx {
				matches = append(matches, e)
			}
		}
		out = append(out, ReferencedGroup{Representative: g.Entries[repIdx], Matches: matches})
	}
	return out
}
