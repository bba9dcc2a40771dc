package music

import (
	"context"
	"errors"
	"math"
	"strings"
	"unicode"

	"twinfind/internal/deps"
	"twinfind/internal/media/ffprobe"
	"twinfind/internal/media/fpcalc"
)

// TagReader extracts metadata from one audio file.
type TagReader interface {
	ReadTags(ctx context.Context, path string) (Tags, error)
}

// Fingerprinter computes a raw acoustic fingerprint covering at most
// seconds of audio.
type Fingerprinter interface {
	Fingerprint(ctx context.Context, path string, seconds int) ([]uint32, error)
}

// FFprobeTags reads tags with ffprobe.
type FFprobeTags struct {
	Binary string
}

// ErrNoAudioStream marks files ffprobe can open that carry no audio.
var ErrNoAudioStream = errors.New("no audio stream")

// ReadTags implements TagReader. Files without an audio stream fail with
// ErrNoAudioStream.
func (r FFprobeTags) ReadTags(ctx context.Context, path string) (Tags, error) {
	probe, err := ffprobe.Inspect(ctx, r.Binary, path)
	if err != nil {
		return Tags{}, err
	}
	if probe.AudioStreamCount() == 0 {
		return Tags{}, ErrNoAudioStream
	}
	return tagsFromProbe(probe), nil
}

func tagsFromProbe(probe ffprobe.Result) Tags {
	tags := Tags{
		Title:  probe.Tag("title"),
		Artist: probe.Tag("artist", "album_artist"),
		Year:   year(probe.Tag("date", "year", "originaldate")),
		Genre:  probe.Tag("genre"),
	}
	if d := probe.DurationSeconds(); d > 0 && !math.IsNaN(d) {
		tags.Length = int(math.Round(d))
	}
	tags.Bitrate = int(probe.BitRate() / 1000)
	return tags
}

// year keeps the leading four digits of a date tag such as 2004-05-01.
func year(date string) string {
	date = strings.TrimSpace(date)
	if len(date) < 4 {
		return ""
	}
	for _, r := range date[:4] {
		if !unicode.IsDigit(r) {
			return ""
		}
	}
	return date[:4]
}

// FpcalcFingerprinter computes fingerprints with chromaprint's fpcalc.
type FpcalcFingerprinter struct {
	Binary string
}

// Fingerprint implements Fingerprinter.
func (f FpcalcFingerprinter) Fingerprint(ctx context.Context, path string, seconds int) ([]uint32, error) {
	fp, err := fpcalc.Compute(ctx, f.Binary, path, seconds)
	if err != nil {
		return nil, err
	}
	return fp.Items, nil
}

// Requirements lists the external binaries a run with o executes.
func Requirements(o Options) []deps.Requirement {
	if o.Mode == ModeTags {
		return []deps.Requirement{deps.FFprobe(o.FFprobeBinary, false)}
	}
	reqs := []deps.Requirement{deps.Fpcalc(o.FpcalcBinary)}
	if o.CompareSimilarTitles {
		reqs = append(reqs, deps.FFprobe(o.FFprobeBinary, true))
	}
	return reqs
}
