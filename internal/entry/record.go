package entry

import (
	"context"
	"path/filepath"
	"slices"
	"strings"
)

// FileRecord is one file as seen by traversal.
type FileRecord struct {
	Path      string `json:"path"`
	Size      uint64 `json:"size"`
	ModTime   uint64 `json:"modified"` // epoch seconds
	Reference bool   `json:"reference,omitempty"`
}

// Dir returns the directory part of the record path.
func (r FileRecord) Dir() string { return filepath.Dir(r.Path) }

// Name returns the file name part of the record path.
func (r FileRecord) Name() string { return filepath.Base(r.Path) }

// Compare orders records by directory, then file name, then full path. This
// is the presentation order for every group the tools emit.
func Compare(a, b FileRecord) int {
	if c := strings.Compare(a.Dir(), b.Dir()); c != 0 {
		return c
	}
	if c := strings.Compare(a.Name(), b.Name()); c != 0 {
		return c
	}
	return strings.Compare(a.Path, b.Path)
}

// Sort orders records in place by Compare.
func Sort(records []FileRecord) {
	slices.SortFunc(records, Compare)
}

// Source yields the records a pipeline should consider.
type Source interface {
	Records(ctx context.Context) ([]FileRecord, error)
}

// Records is a Source backed by an in-memory slice.
type Records []FileRecord

// Records returns a copy of the slice so callers cannot mutate the source.
func (r Records) Records(ctx context.Context) ([]FileRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return slices.Clone([]FileRecord(r)), nil
}

// Filter returns the records accepted by the classifier, keeping order.
func Filter(records []FileRecord, c *Classifier) []FileRecord {
	if c == nil {
		return records
	}
	out := make([]FileRecord, 0, len(records))
	for _, rec := range records {
		if ok, _ := c.Eligible(rec); ok {
			out = append(out, c.Tag(rec))
		}
	}
	return out
}
