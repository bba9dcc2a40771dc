package music

import (
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var closers = map[byte]byte{')': '(', ']': '[', '}': '{'}

// stripBracketedSuffixes removes trailing "(...)", "[...]" and "{...}"
// groups such as "(Remastered 2011)". A title made only of brackets is kept.
func stripBracketedSuffixes(s string) string {
	out := strings.TrimSpace(s)
	for len(out) > 0 {
		opener, ok := closers[out[len(out)-1]]
		if !ok {
			break
		}
		i := strings.LastIndexByte(out, opener)
		if i <= 0 {
			break
		}
		out = strings.TrimSpace(out[:i])
	}
	if out == "" {
		return strings.TrimSpace(s)
	}
	return out
}

// fold lower-cases s with full Unicode case folding and drops combining marks.
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}
	return cases.Fold().String(stripped)
}

// normalizeText prepares a free-text tag for comparison.
func normalizeText(s string, approximate bool) string {
	if approximate {
		s = fold(stripBracketedSuffixes(s))
	}
	return strings.Join(strings.Fields(s), " ")
}

// titleKey is the pre-filter key for content comparison: the approximate
// title, or the file name without extension when the title is empty.
func titleKey(fp AudioFingerprint) string {
	title := fp.Tags.Title
	if strings.TrimSpace(title) == "" {
		name := fp.Name()
		title = strings.TrimSuffix(name, filepath.Ext(name))
	}
	return normalizeText(title, true)
}
