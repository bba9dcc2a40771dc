package dupes

import (
	"bytes"
	"encoding/hex"

	"twinfind/internal/entry"
	"twinfind/internal/hashing"
	"twinfind/internal/scanrun"
)

// Digest is a hash value rendered as hex in reports.
type Digest []byte

func (d Digest) String() string { return hex.EncodeToString(d) }

func (d Digest) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// HashedEntry is a file record with its content hash.
type HashedEntry struct {
	entry.FileRecord
	Hash      Digest            `json:"hash,omitempty"`
	Algorithm hashing.Algorithm `json:"algorithm"`
}

// SameContent reports whether two entries are duplicates: equal size,
// algorithm and hash bytes.
func (h HashedEntry) SameContent(other HashedEntry) bool {
	return h.Size == other.Size &&
		h.Algorithm == other.Algorithm &&
		len(h.Hash) > 0 &&
		bytes.Equal(h.Hash, other.Hash)
}

// DuplicateGroup holds two or more entries considered identical. Entries are
// ordered by directory, then file name.
type DuplicateGroup struct {
	Size    uint64        `json:"size"`
	Key     string        `json:"key,omitempty"`
	Entries []HashedEntry `json:"entries"`
}

// Wasted is the space that deleting every entry but one would free.
func (g DuplicateGroup) Wasted() uint64 {
	var total uint64
	for _, e := range g.Entries[1:] {
		total += e.Size
	}
	return total
}

// ReferencedGroup pairs a representative with the matching files in
// reference folders (or, when all members are reference files, with the
// remaining members).
type ReferencedGroup struct {
	Representative HashedEntry   `json:"representative"`
	Matches        []HashedEntry `json:"matches"`
}

// Result is the outcome of one Finder run.
type Result struct {
	*scanrun.State
	Method     Method            `json:"method"`
	Algorithm  hashing.Algorithm `json:"algorithm"`
	Groups     []DuplicateGroup  `json:"groups"`
	Referenced []ReferencedGroup `json:"referenced,omitempty"`
}

// GroupCount returns the number of emitted groups for the active mode.
func (r *Result) GroupCount() int {
	if r.Referenced != nil {
		return len(r.Referenced)
	}
	return len(r.Groups)
}

// WastedBytes sums Wasted across groups.
func (r *Result) WastedBytes() uint64 {
	var total uint64
	for _, g := range r.Groups {
		total += g.Wasted()
	}
	return total
}
