// Package report serializes finished runs as human readable text or JSON.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"twinfind/internal/dupes"
	"twinfind/internal/fileutil"
	"twinfind/internal/music"
	"twinfind/internal/scanrun"
	"twinfind/internal/similar"
)

// Report is a finished run of any tool.
type Report interface {
	Summary() scanrun.Summary
}

// Document is the JSON form of a run.
type Document struct {
	Summary scanrun.Summary `json:"summary"`
	Results Report          `json:"results"`
}

// WriteText renders r as text into the file at path.
func WriteText(path string, r Report) error {
	return writeFile(path, func(w io.Writer) error { return RenderText(w, r) })
}

// WriteJSON encodes r as indented JSON into the file at path.
func WriteJSON(path string, r Report) error {
	return writeFile(path, func(w io.Writer) error { return EncodeJSON(w, r) })
}

// EncodeJSON writes the JSON document for r.
func EncodeJSON(w io.Writer, r Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(Document{Summary: r.Summary(), Results: r})
}

func writeFile(path string, render func(io.Writer) error) error {
	if err := fileutil.WriteAtomic(path, 0o644, render); err != nil {
		return fmt.Errorf("write report %s: %w", path, err)
	}
	return nil
}

// RenderText writes the human readable report for r.
func RenderText(w io.Writer, r Report) error {
	tw := &textWriter{w: w}
	summary := r.Summary()
	tw.header(summary)
	switch res := r.(type) {
	case *dupes.Result:
		tw.dupes(res)
	case *similar.Result:
		tw.images(res)
	case *music.Result:
		tw.music(res)
	default:
		return fmt.Errorf("report: unsupported result %T", r)
	}
	tw.messages(summary.Messages)
	return tw.err
}

type textWriter struct {
	w   io.Writer
	err error
}

func (t *textWriter) printf(format string, args ...any) {
	if t.err != nil {
		return
	}
	_, t.err = fmt.Fprintf(t.w, format, args...)
}

func (t *textWriter) header(s scanrun.Summary) {
	t.printf("twinfind %s report\n", s.Tool)
	t.printf("Run:     %s\n", s.RunID)
	t.printf("Status:  %s\n", s.Status)
	t.printf("Elapsed: %s\n", s.Elapsed.Round(time.Millisecond))
	t.printf("Files:   %s found, %s checked, %s cached, %s excluded\n",
		humanize.Comma(s.Counters[scanrun.CounterFound]),
		humanize.Comma(s.Counters[scanrun.CounterChecked]),
		humanize.Comma(s.Counters[scanrun.CounterCacheHits]),
		humanize.Comma(s.Counters[scanrun.CounterExcluded]))
	t.printf("Groups:  %s (%s files)\n",
		humanize.Comma(s.Counters[scanrun.CounterGroups]),
		humanize.Comma(s.Counters[scanrun.CounterInGroups]))
}

func (t *textWriter) dupes(res *dupes.Result) {
	if res.Method == dupes.MethodHash {
		strength := "fast"
		if res.Algorithm.Cryptographic() {
			strength = "cryptographic"
		}
		t.printf("Method:  %s (%s, %s)\n", res.Method, res.Algorithm, strength)
	} else {
		t.printf("Method:  %s\n", res.Method)
	}
	if res.Method == dupes.MethodHash || res.Method == dupes.MethodSize {
		t.printf("Wasted:  %s\n", humanize.IBytes(res.WastedBytes()))
	}
	if res.Referenced != nil {
		for i, g := range res.Referenced {
			t.printf("\nGroup %d: %s\n", i+1, g.Representative.Path)
			for _, m := range g.Matches {
				t.printf("  %s%s\n", m.Path, refMark(m.Reference))
			}
		}
		return
	}
	for i, g := range res.Groups {
		label := fmt.Sprintf("%d files, %s each", len(g.Entries), humanize.IBytes(g.Size))
		if g.Key != "" {
			label += ", " + g.Key
		}
		t.printf("\nGroup %d: %s\n", i+1, label)
		for _, e := range g.Entries {
			t.printf("  %s%s\n", e.Path, refMark(e.Reference))
		}
	}
}

func (t *textWriter) images(res *similar.Result) {
	t.printf("Hash:    %dx%d, %s (max distance %d)\n", res.HashSize, res.HashSize, res.Level, res.Threshold)
	for i, g := range res.Groups {
		rep := g.Representative
		t.printf("\nGroup %d: %s (%dx%d, %s)%s\n", i+1, rep.Path, rep.Width, rep.Height, humanize.IBytes(rep.Size), refMark(rep.Reference))
		for _, m := range g.Members {
			t.printf("  [%2d] %s (%dx%d, %s)%s\n", m.Distance, m.Path, m.Width, m.Height, humanize.IBytes(m.Size), refMark(m.Reference))
		}
	}
}

func (t *textWriter) music(res *music.Result) {
	if res.Mode == music.ModeTags {
		t.printf("Mode:    tags (%s)\n", res.Facets)
	} else {
		t.printf("Mode:    content\n")
	}
	for i, g := range res.Groups {
		t.printf("\nGroup %d: %s%s\n", i+1, g.Base.Path, describeTags(g.Base.Tags))
		for _, m := range g.Matches {
			detail := ""
			if m.Segment != nil {
				detail = fmt.Sprintf(" score %.3f, %.1fs at %+.1fs", m.Score, m.Segment.Seconds(), m.Segment.OffsetSeconds())
			}
			t.printf("  %s%s%s\n", m.Path, detail, refMark(m.Reference))
		}
	}
}

func (t *textWriter) messages(msgs []scanrun.Message) {
	var problems []scanrun.Message
	for _, m := range msgs {
		if m.Level != scanrun.LevelInfo {
			problems = append(problems, m)
		}
	}
	if len(problems) == 0 {
		return
	}
	t.printf("\nProblems:\n")
	for _, m := range problems {
		if m.Path != "" {
			t.printf("  %s: %s: %s\n", m.Level, m.Path, m.Text)
			continue
		}
		t.printf("  %s: %s\n", m.Level, m.Text)
	}
}

func describeTags(tags music.Tags) string {
	var parts []string
	if tags.Artist != "" {
		parts = append(parts, tags.Artist)
	}
	if tags.Title != "" {
		parts = append(parts, tags.Title)
	}
	if len(parts) == 0 {
		return ""
	}
	return " (" + strings.Join(parts, " - ") + ")"
}

func refMark(ref bool) string {
	if ref {
		return " [ref]"
	}
	return ""
}
