package music

import (
	"errors"
	"fmt"
	"math/bits"
	"strings"

	"twinfind/internal/config"
)

// ErrInvalidOptions wraps every option validation failure.
var ErrInvalidOptions = errors.New("invalid music options")

// Mode selects how files are compared.
type Mode int

const (
	ModeTags Mode = iota
	ModeContent
)

// ParseMode maps a configuration name to a Mode.
func ParseMode(name string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "tags":
		return ModeTags, nil
	case "content":
		return ModeContent, nil
	}
	return 0, fmt.Errorf("unknown music mode %q", name)
}

func (m Mode) String() string {
	if m == ModeContent {
		return "content"
	}
	return "tags"
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// Facet is a bitmask of tag fields compared in tag mode.
type Facet uint8

const (
	FacetTitle Facet = 1 << iota
	FacetArtist
	FacetYear
	FacetLength
	FacetGenre
	FacetBitrate
)

// FacetAll enables every facet.
const FacetAll = FacetTitle | FacetArtist | FacetYear | FacetLength | FacetGenre | FacetBitrate

var facetNames = []struct {
	facet Facet
	name  string
}{
	{FacetTitle, "title"},
	{FacetArtist, "artist"},
	{FacetYear, "year"},
	{FacetLength, "length"},
	{FacetGenre, "genre"},
	{FacetBitrate, "bitrate"},
}

// ParseFacets combines facet names into a bitmask.
func ParseFacets(names []string) (Facet, error) {
	var f Facet
	for _, raw := range names {
		name := strings.ToLower(strings.TrimSpace(raw))
		found := false
		for _, fn := range facetNames {
			if fn.name == name {
				f |= fn.facet
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("unknown facet %q", raw)
		}
	}
	return f, nil
}

// Has reports whether every bit of other is set in f.
func (f Facet) Has(other Facet) bool { return f&other == other }

// Count returns the number of enabled facets.
func (f Facet) Count() int { return bits.OnesCount8(uint8(f)) }

// Names lists enabled facets in canonical order.
func (f Facet) Names() []string {
	var out []string
	for _, fn := range facetNames {
		if f.Has(fn.facet) {
			out = append(out, fn.name)
		}
	}
	return out
}

func (f Facet) String() string { return strings.Join(f.Names(), "|") }

// MarshalText implements encoding.TextMarshaler.
func (f Facet) MarshalText() ([]byte, error) { return []byte(f.String()), nil }

// Options configures a Finder.
type Options struct {
	Mode   Mode
	Facets Facet
	// Approximate folds case, diacritics and bracketed suffixes in tag mode
	// and halves the alignment work in content mode.
	Approximate          bool
	CompareSimilarTitles bool
	MaxBitErrorRate      float64
	MinSegmentSeconds    float64
	MaxOffsetSeconds     float64
	FingerprintSeconds   int
	FpcalcBinary         string
	FFprobeBinary        string
	Workers              int
	ReferenceMode        bool
}

// DefaultOptions mirrors the configuration defaults.
func DefaultOptions() Options {
	return Options{
		Mode:               ModeTags,
		Facets:             FacetTitle | FacetArtist,
		MaxBitErrorRate:    0.1,
		MinSegmentSeconds:  10,
		MaxOffsetSeconds:   15,
		FingerprintSeconds: 120,
		FpcalcBinary:       "fpcalc",
		FFprobeBinary:      "ffprobe",
	}
}

// Validate rejects unusable combinations before any file is read.
func (o Options) Validate() error {
	switch o.Mode {
	case ModeTags:
		if o.Facets == 0 {
			return fmt.Errorf("%w: tag mode needs at least one facet", ErrInvalidOptions)
		}
		if o.Facets&^FacetAll != 0 {
			return fmt.Errorf("%w: unknown facet bits %#x", ErrInvalidOptions, uint8(o.Facets&^FacetAll))
		}
	case ModeContent:
		if o.MaxBitErrorRate <= 0 || o.MaxBitErrorRate > 0.5 {
			return fmt.Errorf("%w: max bit error rate %v not in (0, 0.5]", ErrInvalidOptions, o.MaxBitErrorRate)
		}
		if o.MinSegmentSeconds <= 0 {
			return fmt.Errorf("%w: min segment must be positive", ErrInvalidOptions)
		}
		if o.MaxOffsetSeconds < 0 {
			return fmt.Errorf("%w: max offset must not be negative", ErrInvalidOptions)
		}
		if o.FingerprintSeconds <= 0 {
			return fmt.Errorf("%w: fingerprint length must be positive", ErrInvalidOptions)
		}
		if float64(o.FingerprintSeconds) < o.MinSegmentSeconds {
			return fmt.Errorf("%w: fingerprint length %ds shorter than min segment %.1fs",
				ErrInvalidOptions, o.FingerprintSeconds, o.MinSegmentSeconds)
		}
	default:
		return fmt.Errorf("%w: unknown mode %d", ErrInvalidOptions, int(o.Mode))
	}
	return nil
}

// OptionsFromConfig builds options from the [music] and [scan] sections.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	mode, err := ParseMode(cfg.Music.Mode)
	if err != nil {
		return Options{}, fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}
	facets, err := ParseFacets(cfg.Music.Facets)
	if err != nil {
		return Options{}, fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}
	opts := Options{
		Mode:                 mode,
		Facets:               facets,
		Approximate:          cfg.Music.Approximate,
		CompareSimilarTitles: cfg.Music.CompareSimilarTitles,
		MaxBitErrorRate:      cfg.Music.MaxBitErrorRate,
		MinSegmentSeconds:    cfg.Music.MinSegmentSeconds,
		MaxOffsetSeconds:     cfg.Music.MaxOffsetSeconds,
		FingerprintSeconds:   cfg.Music.FingerprintSeconds,
		FpcalcBinary:         cfg.Music.FpcalcBinary,
		FFprobeBinary:        cfg.Music.FFprobeBinary,
		Workers:              cfg.Scan.Workers,
		ReferenceMode:        len(cfg.Scan.ReferenceDirs) > 0,
	}
	return opts, opts.Validate()
}
