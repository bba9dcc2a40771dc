package collect

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"twinfind/internal/entry"
	"twinfind/internal/scanrun"
)

func writeFile(t *testing.T, path string, size int) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestWalkerAppliesClassifierAndPrunesExcludedDirs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"), 10)
	writeFile(t, filepath.Join(root, "empty.txt"), 0)
	writeFile(t, filepath.Join(root, "skip.bin"), 10)
	writeFile(t, filepath.Join(root, ".git", "objects", "x.txt"), 10)
	writeFile(t, filepath.Join(root, "ref", "b.txt"), 10)

	classifier, err := entry.NewClassifier(entry.Rules{
		MinSize:            1,
		ExcludedExtensions: []string{"bin"},
		ExcludedPaths:      []string{".git"},
		ReferenceDirs:      []string{filepath.Join(root, "ref")},
	})
	if err != nil {
		t.Fatalf("NewClassifier: %v", err)
	}
	run := scanrun.New("test", nil)
	w := &Walker{Roots: []string{root, root}, Classifier: classifier, Run: run}

	records, err := w.Records(context.Background())
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %+v", records)
	}
	if records[0].Path != filepath.Join(root, "a.txt") || records[0].Reference {
		t.Fatalf("unexpected first record %+v", records[0])
	}
	if !records[1].Reference {
		t.Fatalf("expected reference tag on %+v", records[1])
	}
	if records[0].Size != 10 || records[0].ModTime == 0 {
		t.Fatalf("missing metadata on %+v", records[0])
	}
	if run.Counter(scanrun.CounterEligible) != 2 {
		t.Fatalf("eligible counter = %d", run.Counter(scanrun.CounterEligible))
	}
}

func TestWalkerDoesNotFollowSymlinkCycles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "dir", "f.txt"), 5)
	if err := os.Symlink(root, filepath.Join(root, "dir", "loop")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
	w := &Walker{Roots: []string{root}}
	records, err := w.Records(context.Background())
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected exactly the regular file, got %+v", records)
	}
}

func TestWalkerRejectsMissingRootAndHonoursCancel(t *testing.T) {
	w := &Walker{Roots: []string{filepath.Join(t.TempDir(), "missing")}}
	if _, err := w.Records(context.Background()); err == nil {
		t.Fatal("expected error for missing root")
	}
	if _, err := (&Walker{}).Records(context.Background()); err == nil {
		t.Fatal("expected error without roots")
	}

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a"), 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := (&Walker{Roots: []string{root}}).Records(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
