package fpcalc

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"twinfind/internal/testsupport"
)

func TestParse(t *testing.T) {
	fp, err := Parse([]byte(`{"duration": 12.5, "fingerprint": [1, -1, 4294967295, 7]}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := []uint32{1, 0xffffffff, 0xffffffff, 7}
	if len(fp.Items) != len(want) {
		t.Fatalf("expected %d items, got %d", len(want), len(fp.Items))
	}
	for i := range want {
		if fp.Items[i] != want[i] {
			t.Fatalf("item %d: got %x want %x", i, fp.Items[i], want[i])
		}
	}
	if fp.Duration != 12.5 {
		t.Fatalf("unexpected duration %v", fp.Duration)
	}

	if _, err := Parse([]byte(`{"duration": 1, "fingerprint": []}`)); !errors.Is(err, ErrEmptyFingerprint) {
		t.Fatalf("expected ErrEmptyFingerprint, got %v", err)
	}
	if _, err := Parse([]byte(`{"fingerprint": [8589934592]}`)); err == nil {
		t.Fatal("expected range error")
	}
	if _, err := Parse([]byte(`not json`)); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestComputePassesArguments(t *testing.T) {
	dir := t.TempDir()
	argsFile := filepath.Join(dir, "args.txt")
	script := "#!/bin/sh\necho \"$@\" > " + argsFile + "\n" +
		"echo '{\"duration\": 3.0, \"fingerprint\": [10, 20, 30]}'\n"
	bin := testsupport.StubBinary(t, dir, "fpcalc", script)

	fp, err := Compute(context.Background(), bin, "/music/song.flac", 90)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if len(fp.Items) != 3 || fp.Items[2] != 30 {
		t.Fatalf("unexpected fingerprint %+v", fp)
	}
	args, err := os.ReadFile(argsFile)
	if err != nil {
		t.Fatalf("read args: %v", err)
	}
	if got := strings.TrimSpace(string(args)); got != "-raw -json -length 90 /music/song.flac" {
		t.Fatalf("unexpected args %q", got)
	}
}

func TestComputeReportsStderr(t *testing.T) {
	dir := t.TempDir()
	bin := testsupport.StubBinary(t, dir, "fpcalc", "#!/bin/sh\necho 'ERROR: could not decode' >&2\nexit 2\n")
	_, err := Compute(context.Background(), bin, "/music/broken.mp3", 0)
	if err == nil || !strings.Contains(err.Error(), "could not decode") {
		t.Fatalf("expected stderr in error, got %v", err)
	}
}
