package music

import (
	"twinfind/internal/entry"
	"twinfind/internal/media/fpcalc"
	"twinfind/internal/scanrun"
)

// Tags is the metadata compared in tag mode.
type Tags struct {
	Title   string `json:"title,omitempty"`
	Artist  string `json:"artist,omitempty"`
	Year    string `json:"year,omitempty"`
	Genre   string `json:"genre,omitempty"`
	Length  int    `json:"length,omitempty"`  // seconds
	Bitrate int    `json:"bitrate,omitempty"` // kbps
}

// missing returns the first enabled facet with no value.
func (t Tags) missing(f Facet) (Facet, bool) {
	checks := []struct {
		facet Facet
		empty bool
	}{
		{FacetTitle, t.Title == ""},
		{FacetArtist, t.Artist == ""},
		{FacetYear, t.Year == ""},
		{FacetLength, t.Length <= 0},
		{FacetGenre, t.Genre == ""},
		{FacetBitrate, t.Bitrate <= 0},
	}
	for _, c := range checks {
		if f.Has(c.facet) && c.empty {
			return c.facet, true
		}
	}
	return 0, false
}

// AudioFingerprint is a file record with its tags and, in content mode, its
// raw fingerprint.
type AudioFingerprint struct {
	entry.FileRecord
	Tags        Tags     `json:"tags"`
	Fingerprint []uint32 `json:"-"`
}

// Segment locates the best aligned window of a content match, in
// fingerprint items.
type Segment struct {
	BaseStart  int `json:"base_start"`
	MatchStart int `json:"match_start"`
	Length     int `json:"length"`
}

// Offset returns the match position relative to the base in items.
func (s Segment) Offset() int { return s.MatchStart - s.BaseStart }

// OffsetSeconds returns Offset as a duration in seconds.
func (s Segment) OffsetSeconds() float64 { return float64(s.Offset()) * fpcalc.ItemSeconds }

// Seconds returns the window duration.
func (s Segment) Seconds() float64 { return float64(s.Length) * fpcalc.ItemSeconds }

// MusicMatch is a file that matched a group base.
type MusicMatch struct {
	AudioFingerprint
	Facets  Facet    `json:"facets,omitempty"`
	Score   float64  `json:"score,omitempty"`
	Segment *Segment `json:"segment,omitempty"`
}

// MusicDuplicateGroup is a base entry and its matches ordered by path.
type MusicDuplicateGroup struct {
	Base    AudioFingerprint `json:"base"`
	Matches []MusicMatch     `json:"matches"`
}

// Size returns the number of files in the group.
func (g MusicDuplicateGroup) Size() int { return len(g.Matches) + 1 }

// Result is the outcome of one Finder run.
type Result struct {
	*scanrun.State
	Mode   Mode                  `json:"mode"`
	Facets Facet                 `json:"facets,omitempty"`
	Groups []MusicDuplicateGroup `json:"groups"`
}
