package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"

	"twinfind/internal/dupes"
	"twinfind/internal/music"
	"twinfind/internal/report"
	"twinfind/internal/scanrun"
	"twinfind/internal/similar"
)

func printSummary(out io.Writer, res report.Report, extra string) {
	s := res.Summary()
	line := fmt.Sprintf("%s, %s in groups, %s checked in %s",
		countOf(s.Counters[scanrun.CounterGroups], "group"),
		countOf(s.Counters[scanrun.CounterInGroups], "file"),
		countOf(s.Counters[scanrun.CounterChecked]+s.Counters[scanrun.CounterCacheHits], "file"),
		s.Elapsed.Round(time.Millisecond))
	if extra != "" {
		line += ", " + extra
	}
	fmt.Fprintln(out, line)
}

func printProblems(out io.Writer, res report.Report) {
	var warnings, errs int
	for _, m := range res.Summary().Messages {
		switch m.Level {
		case scanrun.LevelWarning:
			warnings++
		case scanrun.LevelError:
			errs++
		}
	}
	if warnings+errs == 0 {
		return
	}
	fmt.Fprintf(out, "%s, %s (use --output to write the full message log)\n",
		countOf(int64(warnings), "warning"), countOf(int64(errs), "error"))
}

// countOf renders n with thousands separators and the matching noun form.
func countOf(n int64, singular string) string {
	return english.Plural(int(n), singular, "")
}

func renderDupes(out io.Writer, r report.Report) {
	res := r.(*dupes.Result)
	var rows [][]string
	if res.Referenced != nil {
		for i, g := range res.Referenced {
			group := strconv.Itoa(i + 1)
			rows = append(rows, []string{group, humanize.IBytes(g.Representative.Size), g.Representative.Path, "original"})
			for _, m := range g.Matches {
				rows = append(rows, []string{group, humanize.IBytes(m.Size), m.Path, refLabel(m.Reference)})
			}
		}
	} else {
		for i, g := range res.Groups {
			group := strconv.Itoa(i + 1)
			for _, e := range g.Entries {
				rows = append(rows, []string{group, humanize.IBytes(e.Size), e.Path, refLabel(e.Reference)})
			}
		}
	}
	if len(rows) > 0 {
		fmt.Fprintln(out, renderTable(
			[]string{"Group", "Size", "Path", "Role"},
			rows,
			[]columnAlignment{alignRight, alignRight, alignLeft, alignLeft},
		))
	}
	extra := ""
	if res.Method == dupes.MethodHash || res.Method == dupes.MethodSize {
		extra = humanize.IBytes(res.WastedBytes()) + " reclaimable"
	}
	printSummary(out, res, extra)
}

func renderImages(out io.Writer, r report.Report) {
	res := r.(*similar.Result)
	var rows [][]string
	for i, g := range res.Groups {
		group := strconv.Itoa(i + 1)
		rep := g.Representative
		rows = append(rows, []string{group, "-", resolution(rep.Width, rep.Height), humanize.IBytes(rep.Size), rep.Path})
		for _, m := range g.Members {
			rows = append(rows, []string{group, strconv.Itoa(m.Distance), resolution(m.Width, m.Height), humanize.IBytes(m.Size), m.Path})
		}
	}
	if len(rows) > 0 {
		fmt.Fprintln(out, renderTable(
			[]string{"Group", "Distance", "Resolution", "Size", "Path"},
			rows,
			[]columnAlignment{alignRight, alignRight, alignRight, alignRight, alignLeft},
		))
	}
	printSummary(out, res, fmt.Sprintf("similarity %s (max distance %d)", res.Level, res.Threshold))
}

func renderMusic(out io.Writer, r report.Report) {
	res := r.(*music.Result)
	var rows [][]string
	for i, g := range res.Groups {
		group := strconv.Itoa(i + 1)
		rows = append(rows, []string{group, "base", g.Base.Tags.Artist, g.Base.Tags.Title, g.Base.Path})
		for _, m := range g.Matches {
			match := m.Facets.String()
			if m.Segment != nil {
				match = fmt.Sprintf("%.1f%% @ %+.1fs", m.Score*100, m.Segment.OffsetSeconds())
			}
			rows = append(rows, []string{group, match, m.Tags.Artist, m.Tags.Title, m.Path})
		}
	}
	if len(rows) > 0 {
		fmt.Fprintln(out, renderTable(
			[]string{"Group", "Match", "Artist", "Title", "Path"},
			rows,
			[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
		))
	}
	printSummary(out, res, "mode "+res.Mode.String())
}

func resolution(w, h int) string {
	if w == 0 || h == 0 {
		return "?"
	}
	return strconv.Itoa(w) + "x" + strconv.Itoa(h)
}

func refLabel(ref bool) string {
	if ref {
		return "reference"
	}
	return ""
}

func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, "|") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
