package collect

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"twinfind/internal/entry"
	"twinfind/internal/progress"
	"twinfind/internal/scanrun"
)

// Walker collects eligible regular files below a set of roots. It implements
// entry.Source.
type Walker struct {
	Roots      []string
	Classifier *entry.Classifier
	Run        *scanrun.State
	Tracker    *progress.Tracker
}

// Attach binds the walker to a run so traversal warnings and progress
// land on it. Pipelines call it before Records.
func (w *Walker) Attach(run *scanrun.State, tracker *progress.Tracker) {
	w.Run = run
	w.Tracker = tracker
}

// Records walks every root and returns eligible records sorted by path. The
// same file reached through two overlapping roots is reported once.
func (w *Walker) Records(ctx context.Context) ([]entry.FileRecord, error) {
	if len(w.Roots) == 0 {
		return nil, errors.New("collect: no directories to scan")
	}
	classifier := w.Classifier
	if classifier == nil {
		var err error
		if classifier, err = entry.NewClassifier(entry.Rules{}); err != nil {
			return nil, err
		}
	}

	seen := make(map[string]struct{})
	var records []entry.FileRecord
	for _, root := range w.Roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", root, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, fmt.Errorf("scan root %s: %w", root, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("scan root %s: not a directory", root)
		}

		err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, walkErr error) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if walkErr != nil {
				w.warn(path, "walk_failed", walkErr)
				if d != nil && d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				if path != abs && classifier.PathExcluded(path) {
					return filepath.SkipDir
				}
				return nil
			}
			if !d.Type().IsRegular() {
				return nil
			}
			if _, dup := seen[path]; dup {
				return nil
			}
			seen[path] = struct{}{}

			fi, err := d.Info()
			if err != nil {
				w.warn(path, "stat_failed", err)
				return nil
			}
			w.count(scanrun.CounterFound)
			rec := entry.FileRecord{
				Path:    path,
				Size:    uint64(fi.Size()),
				ModTime: uint64(max(fi.ModTime().Unix(), 0)),
			}
			if ok, _ := classifier.Eligible(rec); !ok {
				return nil
			}
			records = append(records, classifier.Tag(rec))
			w.count(scanrun.CounterEligible)
			if w.Tracker != nil {
				w.Tracker.Add(1)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	slices.SortFunc(records, func(a, b entry.FileRecord) int {
		switch {
		case a.Path < b.Path:
			return -1
		case a.Path > b.Path:
			return 1
		}
		return 0
	})
	return records, nil
}

func (w *Walker) warn(path, event string, err error) {
	if w.Run != nil {
		w.Run.Warn(path, event, err)
	}
}

func (w *Walker) count(counter string) {
	if w.Run != nil {
		w.Run.Add(counter, 1)
	}
}
