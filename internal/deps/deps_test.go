package deps

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	if err := os.WriteFile(present, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Blank", Command: "  "},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available || results[0].Path != present || results[0].Detail != "" {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[1].Available || results[1].Detail == "" {
		t.Fatalf("expected missing binary to be unavailable with detail, got %#v", results[1])
	}
	if results[2].Available || results[2].Detail != "command not configured" {
		t.Fatalf("unexpected blank result %#v", results[2])
	}
}

func TestMissing(t *testing.T) {
	statuses := CheckBinaries([]Requirement{
		Fpcalc("clearly-not-present-fpcalc"),
		FFprobe("clearly-not-present-ffprobe", true),
	})
	err := Missing(statuses)
	if err == nil {
		t.Fatal("expected error for missing fpcalc")
	}
	if !strings.Contains(err.Error(), "chromaprint") || strings.Contains(err.Error(), "ffprobe") {
		t.Fatalf("unexpected error %q", err)
	}

	if err := Missing(CheckBinaries([]Requirement{FFprobe("clearly-not-present-ffprobe", true)})); err != nil {
		t.Fatalf("optional requirement must not fail: %v", err)
	}
}
