package music

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"testing"

	"twinfind/internal/entry"
	"twinfind/internal/progress"
	"twinfind/internal/scanrun"
	"twinfind/internal/testsupport"
)

type fakeTags map[string]Tags

func (f fakeTags) ReadTags(_ context.Context, path string) (Tags, error) {
	tags, ok := f[path]
	if !ok {
		return Tags{}, errors.New("invalid data found when processing input")
	}
	return tags, nil
}

type fakePrints struct {
	mu    sync.Mutex
	items map[string][]uint32
	calls atomic.Int64
	after func(n int64)
}

func (f *fakePrints) Fingerprint(_ context.Context, path string, _ int) ([]uint32, error) {
	n := f.calls.Add(1)
	if f.after != nil {
		f.after(n)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	items, ok := f.items[path]
	if !ok {
		return nil, errors.New("could not decode audio")
	}
	return items, nil
}

func records(paths ...string) entry.Records {
	out := make(entry.Records, 0, len(paths))
	for i, p := range paths {
		out = append(out, entry.FileRecord{Path: p, Size: uint64(1000 + i), ModTime: 1700000000})
	}
	return out
}

func randomPrint(r *rand.Rand, n int) []uint32 {
	out := make([]uint32, n)
	for i := range out {
		out[i] = r.Uint32()
	}
	return out
}

// noisy flips one bit in every fourth item.
func noisy(r *rand.Rand, in []uint32) []uint32 {
	out := append([]uint32(nil), in...)
	for i := 0; i < len(out); i += 4 {
		out[i] ^= 1 << r.IntN(32)
	}
	return out
}

func contentOptions() Options {
	opts := DefaultOptions()
	opts.Mode = ModeContent
	opts.Workers = 3
	return opts
}

func TestTagModeGroupsByFacets(t *testing.T) {
	tags := fakeTags{
		"/m/a.mp3": {Title: "Blue", Artist: "Band"},
		"/m/b.mp3": {Title: "Blue", Artist: "Band", Year: "2001"},
		"/m/c.mp3": {Title: "Blue", Artist: "Other"},
		"/m/d.mp3": {Title: "Blue"},
	}
	f, err := New(DefaultOptions(), nil, nil, WithTagReader(tags))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := f.Run(context.Background(), records("/m/d.mp3", "/m/c.mp3", "/m/b.mp3", "/m/a.mp3"), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Status() != progress.Completed {
		t.Fatalf("expected completed, got %v", res.Status())
	}
	if len(res.Groups) != 1 {
		t.Fatalf("expected one group, got %+v", res.Groups)
	}
	g := res.Groups[0]
	if g.Base.Path != "/m/a.mp3" || len(g.Matches) != 1 || g.Matches[0].Path != "/m/b.mp3" {
		t.Fatalf("unexpected group %+v", g)
	}
	if g.Matches[0].Facets != FacetTitle|FacetArtist {
		t.Fatalf("unexpected facets %v", g.Matches[0].Facets)
	}

	skipped := false
	for _, m := range res.MessagesAt(scanrun.LevelInfo) {
		if m.Path == "/m/d.mp3" && m.Text == "missing tag: artist" {
			skipped = true
		}
	}
	if !skipped {
		t.Fatalf("expected info message for missing artist, got %+v", res.Messages())
	}
}

func TestTagModeApproximate(t *testing.T) {
	tags := fakeTags{
		"/m/1.flac": {Title: "Ñandú (Remastered 2011)", Artist: "Los  Pájaros"},
		"/m/2.flac": {Title: "NANDU", Artist: "los pajaros"},
		"/m/3.flac": {Title: "Nandu [Live]", Artist: "Los Pajaros"},
	}
	cases := []struct {
		name        string
		approximate bool
		wantGroups  int
		wantMatches int
	}{
		{"exact", false, 0, 0},
		{"approximate", true, 1, 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			opts := DefaultOptions()
			opts.Approximate = tc.approximate
			f, err := New(opts, nil, nil, WithTagReader(tags))
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			res, err := f.Run(context.Background(), records("/m/1.flac", "/m/2.flac", "/m/3.flac"), nil)
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			if len(res.Groups) != tc.wantGroups {
				t.Fatalf("expected %d groups, got %d", tc.wantGroups, len(res.Groups))
			}
			if tc.wantGroups > 0 && len(res.Groups[0].Matches) != tc.wantMatches {
				t.Fatalf("expected %d matches, got %+v", tc.wantMatches, res.Groups[0])
			}
		})
	}
}

func TestTagReadFailureIsAWarning(t *testing.T) {
	tags := fakeTags{
		"/m/a.mp3": {Title: "x", Artist: "y"},
		"/m/b.mp3": {Title: "x", Artist: "y"},
	}
	f, err := New(DefaultOptions(), nil, nil, WithTagReader(tags))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := f.Run(context.Background(), records("/m/a.mp3", "/m/b.mp3", "/m/broken.mp3"), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	warnings := res.MessagesAt(scanrun.LevelWarning)
	if len(warnings) != 1 || warnings[0].Path != "/m/broken.mp3" {
		t.Fatalf("expected one warning for broken file, got %+v", warnings)
	}
	if res.Counter(scanrun.CounterExcluded) != 1 || len(res.Groups) != 1 {
		t.Fatalf("unexpected result: excluded=%d groups=%d", res.Counter(scanrun.CounterExcluded), len(res.Groups))
	}
}

func TestContentModeFindsShiftedCopy(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	original := randomPrint(r, 400)
	shifted := append(randomPrint(r, 20), noisy(r, original[:360])...)
	prints := &fakePrints{items: map[string][]uint32{
		"/m/a.ogg": original,
		"/m/b.ogg": shifted,
		"/m/c.ogg": randomPrint(r, 400),
		"/m/d.ogg": randomPrint(r, 30), // shorter than the minimum segment
	}}

	for _, approximate := range []bool{false, true} {
		opts := contentOptions()
		opts.Approximate = approximate
		f, err := New(opts, nil, nil, WithFingerprinter(prints))
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		res, err := f.Run(context.Background(), records("/m/c.ogg", "/m/b.ogg", "/m/a.ogg", "/m/d.ogg"), nil)
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if len(res.Groups) != 1 {
			t.Fatalf("approximate=%v: expected one group, got %+v", approximate, res.Groups)
		}
		g := res.Groups[0]
		if g.Base.Path != "/m/a.ogg" || len(g.Matches) != 1 || g.Matches[0].Path != "/m/b.ogg" {
			t.Fatalf("approximate=%v: unexpected group %+v", approximate, g)
		}
		m := g.Matches[0]
		if m.Segment == nil || m.Segment.Offset() != 20 {
			t.Fatalf("approximate=%v: expected offset 20, got %+v", approximate, m.Segment)
		}
		if m.Score < 0.95 || m.Score > 1 {
			t.Fatalf("approximate=%v: unexpected score %v", approximate, m.Score)
		}
	}
}

func TestCompareSimilarTitlesRestrictsPairs(t *testing.T) {
	r := rand.New(rand.NewPCG(3, 4))
	same := randomPrint(r, 200)
	prints := &fakePrints{items: map[string][]uint32{
		"/m/Intro.mp3":      same,
		"/m/intro (1).mp3":  same,
		"/m/Something.mp3":  same,
		"/m/untagged/x.mp3": same,
	}}
	tags := fakeTags{
		"/m/Intro.mp3":      {Title: "Intro"},
		"/m/intro (1).mp3":  {},
		"/m/Something.mp3":  {Title: "Something Else"},
		"/m/untagged/x.mp3": {Title: "INTRO (Demo)"},
	}
	opts := contentOptions()
	opts.CompareSimilarTitles = true
	f, err := New(opts, nil, nil, WithFingerprinter(prints), WithTagReader(tags))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := f.Run(context.Background(), records("/m/Intro.mp3", "/m/intro (1).mp3", "/m/Something.mp3", "/m/untagged/x.mp3"), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Groups) != 1 || len(res.Groups[0].Matches) != 2 {
		t.Fatalf("expected one group of three, got %+v", res.Groups)
	}
	for _, m := range res.Groups[0].Matches {
		if m.Path == "/m/Something.mp3" {
			t.Fatal("file with a different title must not be compared")
		}
	}

	opts.CompareSimilarTitles = false
	f, _ = New(opts, nil, nil, WithFingerprinter(prints), WithTagReader(tags))
	res, _ = f.Run(context.Background(), records("/m/Intro.mp3", "/m/intro (1).mp3", "/m/Something.mp3", "/m/untagged/x.mp3"), nil)
	if len(res.Groups) != 1 || len(res.Groups[0].Matches) != 3 {
		t.Fatalf("expected every file grouped without the title filter, got %+v", res.Groups)
	}
}

func TestFingerprintFailureIsAWarning(t *testing.T) {
	prints := &fakePrints{items: map[string][]uint32{"/m/a.wav": {1, 2, 3}}}
	f, err := New(contentOptions(), nil, nil, WithFingerprinter(prints))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := f.Run(context.Background(), records("/m/a.wav", "/m/b.wav"), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	warnings := res.MessagesAt(scanrun.LevelWarning)
	if len(warnings) != 1 || warnings[0].Path != "/m/b.wav" {
		t.Fatalf("expected one warning, got %+v", warnings)
	}
}

func TestFingerprintsAreCached(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	c := testsupport.MustOpenCache(t, cfg)
	r := rand.New(rand.NewPCG(5, 6))
	fp := randomPrint(r, 150)
	prints := &fakePrints{items: map[string][]uint32{"/m/a.mp3": fp, "/m/b.mp3": fp}}

	f, err := New(contentOptions(), c, nil, WithFingerprinter(prints))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	src := records("/m/a.mp3", "/m/b.mp3")
	first, err := f.Run(context.Background(), src, nil)
	if err != nil {
		t.Fatalf("first Run: %v", err)
	}
	if prints.calls.Load() != 2 {
		t.Fatalf("expected 2 fingerprint calls, got %d", prints.calls.Load())
	}
	second, err := f.Run(context.Background(), src, nil)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if prints.calls.Load() != 2 {
		t.Fatalf("expected cached fingerprints, got %d calls", prints.calls.Load())
	}
	if second.Counter(scanrun.CounterCacheHits) != 2 {
		t.Fatalf("expected 2 cache hits, got %d", second.Counter(scanrun.CounterCacheHits))
	}
	if len(first.Groups) != 1 || len(second.Groups) != 1 {
		t.Fatalf("expected identical grouping, got %d and %d", len(first.Groups), len(second.Groups))
	}
}

func TestCancellationDuringRead(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := rand.New(rand.NewPCG(7, 8))
	fp := randomPrint(r, 120)
	items := make(map[string][]uint32)
	var paths []string
	for i := range 500 {
		p := "/m/" + string(rune('a'+i%26)) + "/" + string(rune('0'+i%10)) + "-" + randomName(r) + ".mp3"
		items[p] = fp
		paths = append(paths, p)
	}
	prints := &fakePrints{items: items, after: func(n int64) {
		if n == 50 {
			cancel()
		}
	}}
	f, err := New(contentOptions(), nil, nil, WithFingerprinter(prints))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := f.Run(ctx, records(paths...), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Status() != progress.Cancelled || len(res.Groups) != 0 {
		t.Fatalf("expected cancelled empty result, got %v with %d groups", res.Status(), len(res.Groups))
	}
	if prints.calls.Load() >= 500 {
		t.Fatalf("expected remaining files to be skipped, got %d calls", prints.calls.Load())
	}
}

func randomName(r *rand.Rand) string {
	const letters = "abcdefghijklmnopqrstuvwxyz"
	b := make([]byte, 8)
	for i := range b {
		b[i] = letters[r.IntN(len(letters))]
	}
	return string(b)
}

func TestReferenceModeDropsGroupsWithoutReference(t *testing.T) {
	tags := fakeTags{
		"/lib/a.mp3": {Title: "A", Artist: "X"},
		"/new/a.mp3": {Title: "A", Artist: "X"},
		"/new/b.mp3": {Title: "B", Artist: "X"},
		"/new/c.mp3": {Title: "B", Artist: "X"},
	}
	src := records("/lib/a.mp3", "/new/a.mp3", "/new/b.mp3", "/new/c.mp3")
	src[0].Reference = true

	opts := DefaultOptions()
	opts.ReferenceMode = true
	f, err := New(opts, nil, nil, WithTagReader(tags))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := f.Run(context.Background(), src, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Groups) != 1 {
		t.Fatalf("expected only the referenced group, got %+v", res.Groups)
	}
	g := res.Groups[0]
	if g.Base.Path != "/new/a.mp3" || len(g.Matches) != 1 || g.Matches[0].Path != "/lib/a.mp3" {
		t.Fatalf("expected the work file as base and the reference as match, got %+v", g)
	}
}

func TestContentReferenceModePrefersWorkBase(t *testing.T) {
	r := rand.New(rand.NewPCG(11, 12))
	original := randomPrint(r, 400)
	shifted := append(randomPrint(r, 20), noisy(r, original[:360])...)
	prints := &fakePrints{items: map[string][]uint32{
		"/lib/a.ogg": original,
		"/new/b.ogg": shifted,
	}}
	src := records("/lib/a.ogg", "/new/b.ogg")
	src[0].Reference = true

	opts := contentOptions()
	opts.ReferenceMode = true
	f, err := New(opts, nil, nil, WithFingerprinter(prints))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := f.Run(context.Background(), src, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Groups) != 1 {
		t.Fatalf("expected one group, got %+v", res.Groups)
	}
	g := res.Groups[0]
	if g.Base.Path != "/new/b.ogg" || len(g.Matches) != 1 || g.Matches[0].Path != "/lib/a.ogg" {
		t.Fatalf("expected work base with reference match, got %+v", g)
	}
	// The segment is expressed relative to the work base.
	if seg := g.Matches[0].Segment; seg == nil || seg.Offset() != -20 {
		t.Fatalf("expected offset -20 from the work base, got %+v", seg)
	}
}

func TestAlignerIsSymmetric(t *testing.T) {
	r := rand.New(rand.NewPCG(9, 10))
	a := randomPrint(r, 300)
	b := append(randomPrint(r, 7), noisy(r, a[:250])...)
	for _, approximate := range []bool{false, true} {
		opts := contentOptions()
		opts.Approximate = approximate
		al := newAligner(opts)
		_, ab, okAB := al.match(a, b)
		_, ba, okBA := al.match(b, a)
		if okAB != okBA || ab != ba {
			t.Fatalf("approximate=%v: asymmetric result %v/%v vs %v/%v", approximate, ab, okAB, ba, okBA)
		}
	}
}

func TestAlignerBitErrorRate(t *testing.T) {
	opts := contentOptions()
	opts.MinSegmentSeconds = 1 // 9 items
	opts.MaxOffsetSeconds = 0
	al := newAligner(opts)
	if al.window != 9 {
		t.Fatalf("expected 9 item window, got %d", al.window)
	}
	base := make([]uint32, 20)
	other := make([]uint32, 20)
	for i := range other {
		other[i] = 0x7 // three bits differ per item
	}
	seg, ber, ok := al.match(base, other)
	if !ok {
		t.Fatalf("expected match at ber %v", ber)
	}
	if want := 3.0 / 32; ber != want {
		t.Fatalf("expected ber %v, got %v", want, ber)
	}
	if seg.Length != 9 || seg.Offset() != 0 {
		t.Fatalf("unexpected segment %+v", seg)
	}

	for i := range other {
		other[i] = 0xffff
	}
	if _, ber, ok := al.match(base, other); ok || ber != 0.5 {
		t.Fatalf("expected no match at ber 0.5, got %v %v", ber, ok)
	}
}

func TestNormalizeText(t *testing.T) {
	cases := []struct {
		in          string
		approximate bool
		want        string
	}{
		{"  Blue   Moon ", false, "Blue Moon"},
		{"Blue Moon (Remastered 2011)", false, "Blue Moon (Remastered 2011)"},
		{"Blue Moon (Remastered 2011)", true, "blue moon"},
		{"Blue Moon [Live] {Bonus}", true, "blue moon"},
		{"(Intro)", true, "(intro)"},
		{"Café Ñandú", true, "cafe nandu"},
		{"STRASSE", true, "strasse"},
	}
	for _, tc := range cases {
		if got := normalizeText(tc.in, tc.approximate); got != tc.want {
			t.Fatalf("normalizeText(%q, %v) = %q, want %q", tc.in, tc.approximate, got, tc.want)
		}
	}
}

func TestFacetsAndOptions(t *testing.T) {
	f, err := ParseFacets([]string{"Title", "bitrate"})
	if err != nil {
		t.Fatalf("ParseFacets: %v", err)
	}
	if f.String() != "title|bitrate" || f.Count() != 2 {
		t.Fatalf("unexpected facets %v", f)
	}
	if _, err := ParseFacets([]string{"mood"}); err == nil {
		t.Fatal("expected unknown facet error")
	}

	bad := map[string]func(*Options){
		"no facets":      func(o *Options) { o.Facets = 0 },
		"ber too high":   func(o *Options) { o.Mode = ModeContent; o.MaxBitErrorRate = 0.6 },
		"zero segment":   func(o *Options) { o.Mode = ModeContent; o.MinSegmentSeconds = 0 },
		"short print":    func(o *Options) { o.Mode = ModeContent; o.FingerprintSeconds = 5 },
		"negative shift": func(o *Options) { o.Mode = ModeContent; o.MaxOffsetSeconds = -1 },
	}
	for name, mutate := range bad {
		opts := DefaultOptions()
		mutate(&opts)
		if err := opts.Validate(); !errors.Is(err, ErrInvalidOptions) {
			t.Fatalf("%s: expected ErrInvalidOptions, got %v", name, err)
		}
	}

	cfg := testsupport.NewConfig(t)
	cfg.Music.Mode = "content"
	cfg.Scan.ReferenceDirs = []string{"/lib"}
	opts, err := OptionsFromConfig(cfg)
	if err != nil {
		t.Fatalf("OptionsFromConfig: %v", err)
	}
	if opts.Mode != ModeContent || !opts.ReferenceMode || opts.Workers != 2 {
		t.Fatalf("unexpected options %+v", opts)
	}
}
