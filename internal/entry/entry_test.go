package entry

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func TestClassifierEligible(t *testing.T) {
	c, err := NewClassifier(Rules{
		MinSize:            1,
		MaxSize:            1000,
		AllowedExtensions:  []string{"JPG", ".png"},
		ExcludedExtensions: []string{"png"},
		ExcludedPaths:      []string{"*.tmp.jpg", "/data/skip/*"},
	})
	if err != nil {
		t.Fatalf("NewClassifier: %v", err)
	}

	tests := []struct {
		name   string
		rec    FileRecord
		want   bool
		reason Reason
	}{
		{"accepted", FileRecord{Path: "/data/a.jpg", Size: 10}, true, ReasonAccepted},
		{"upper case extension", FileRecord{Path: "/data/A.JPG", Size: 10}, true, ReasonAccepted},
		{"zero bytes", FileRecord{Path: "/data/empty.jpg", Size: 0}, false, ReasonTooSmall},
		{"too large", FileRecord{Path: "/data/big.jpg", Size: 1001}, false, ReasonTooLarge},
		{"denied beats allowed", FileRecord{Path: "/data/a.png", Size: 10}, false, ReasonExtension},
		{"not allowed", FileRecord{Path: "/data/a.gif", Size: 10}, false, ReasonExtension},
		{"base name glob", FileRecord{Path: "/data/x.tmp.jpg", Size: 10}, false, ReasonExcluded},
		{"full path glob", FileRecord{Path: "/data/skip/y.jpg", Size: 10}, false, ReasonExcluded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, reason := c.Eligible(tt.rec)
			if ok != tt.want || reason != tt.reason {
				t.Fatalf("Eligible(%s) = %v, %q; want %v, %q", tt.rec.Path, ok, reason, tt.want, tt.reason)
			}
		})
	}
}

func TestNewClassifierRejectsBadRules(t *testing.T) {
	if _, err := NewClassifier(Rules{MinSize: 10, MaxSize: 5}); err == nil {
		t.Fatal("expected size bound error")
	}
	if _, err := NewClassifier(Rules{ExcludedPaths: []string{"[bad"}}); err == nil {
		t.Fatal("expected glob error")
	}
}

func TestClassifierReferenceTagging(t *testing.T) {
	ref := filepath.Join(string(filepath.Separator), "photos", "originals")
	c, err := NewClassifier(Rules{ReferenceDirs: []string{ref + string(filepath.Separator)}})
	if err != nil {
		t.Fatalf("NewClassifier: %v", err)
	}
	if !c.InReference(filepath.Join(ref, "a.jpg")) {
		t.Fatal("expected file under reference dir to be tagged")
	}
	if c.InReference(ref + "-copy/a.jpg") {
		t.Fatal("sibling directory with shared prefix must not be a reference")
	}
	tagged := c.Tag(FileRecord{Path: filepath.Join(ref, "sub", "b.jpg")})
	if !tagged.Reference {
		t.Fatal("Tag did not set Reference")
	}
}

func TestCompareOrdersByDirectoryThenName(t *testing.T) {
	records := []FileRecord{
		{Path: "/b/a.txt"},
		{Path: "/a/z.txt"},
		{Path: "/a/sub/a.txt"},
		{Path: "/a/b.txt"},
	}
	Sort(records)
	want := []string{"/a/b.txt", "/a/z.txt", "/a/sub/a.txt", "/b/a.txt"}
	for i, rec := range records {
		if rec.Path != want[i] {
			t.Fatalf("position %d = %s, want %s (all: %v)", i, rec.Path, want[i], records)
		}
	}
	if Compare(records[0], records[1]) >= 0 {
		t.Fatal("Compare disagrees with Sort")
	}
}

func TestRecordsSourceCopiesAndHonoursCancel(t *testing.T) {
	src := Records{{Path: "/a", Size: 1}}
	got, err := src.Records(context.Background())
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	got[0].Path = "/mutated"
	if src[0].Path != "/a" {
		t.Fatal("source slice was mutated through returned records")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := src.Records(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestFilterKeepsOrderAndTags(t *testing.T) {
	c, err := NewClassifier(Rules{MinSize: 1, ReferenceDirs: []string{"/ref"}})
	if err != nil {
		t.Fatalf("NewClassifier: %v", err)
	}
	out := Filter([]FileRecord{
		{Path: "/x/1", Size: 5},
		{Path: "/x/0", Size: 0},
		{Path: "/ref/2", Size: 5},
	}, c)
	if len(out) != 2 || out[0].Path != "/x/1" || !out[1].Reference {
		t.Fatalf("unexpected filter output %+v", out)
	}
}
