package music

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"twinfind/internal/cache"
	"twinfind/internal/entry"
	"twinfind/internal/logging"
	"twinfind/internal/progress"
	"twinfind/internal/scanrun"
	"twinfind/internal/workpool"
)

const toolName = "music"

const (
	stageCollect = iota
	stageRead
	stageCompare
	stageCount
)

const tagParams = "ffprobe"

var errEmptyFingerprint = errors.New("empty fingerprint")

// Finder runs the music duplicate pipeline.
type Finder struct {
	opts   Options
	tags   TagReader
	prints Fingerprinter
	cache  *cache.Cache
	logger *slog.Logger
}

// Option customises a Finder.
type Option func(*Finder)

// WithTagReader replaces the ffprobe tag reader.
func WithTagReader(r TagReader) Option {
	return func(f *Finder) { f.tags = r }
}

// WithFingerprinter replaces the fpcalc fingerprinter.
func WithFingerprinter(fp Fingerprinter) Option {
	return func(f *Finder) { f.prints = fp }
}

// New validates opts and returns a Finder. A nil cache disables caching.
func New(opts Options, c *cache.Cache, logger *slog.Logger, options ...Option) (*Finder, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if c == nil {
		c = cache.Disabled()
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	f := &Finder{
		opts:   opts,
		tags:   FFprobeTags{Binary: opts.FFprobeBinary},
		prints: FpcalcFingerprinter{Binary: opts.FpcalcBinary},
		cache:  c,
		logger: logging.NewComponentLogger(logger, toolName),
	}
	for _, opt := range options {
		opt(f)
	}
	return f, nil
}

// Run reads every record from src and groups duplicate audio files.
// Cancellation yields a Cancelled result with no groups and a nil error.
func (f *Finder) Run(ctx context.Context, src entry.Source, sink progress.Sink) (*Result, error) {
	run := scanrun.New(toolName, f.logger)
	tracker := progress.NewTracker(toolName, stageCount, sink)
	result := &Result{State: run, Mode: f.opts.Mode}
	ctx = run.Context(ctx)
	if f.opts.Mode == ModeTags {
		result.Facets = f.opts.Facets
	}

	records, err := run.Collect(ctx, src, tracker)
	if err != nil {
		if ctx.Err() != nil {
			run.Abort(tracker)
			return result, nil
		}
		run.Errorf("collect files: %v", err)
		run.Abort(tracker)
		return result, fmt.Errorf("collect files: %w", err)
	}
	slices.SortFunc(records, func(a, b entry.FileRecord) int { return strings.Compare(a.Path, b.Path) })

	run.Compare(tracker)
	done := run.Stage("read")
	tracker.StartStage(stageRead, "read", int64(len(records)))
	fps, err := f.read(ctx, run, tracker, records)
	done()
	if err != nil {
		run.Abort(tracker)
		return result, nil
	}

	done = run.Stage("compare")
	var groups []MusicDuplicateGroup
	if f.opts.Mode == ModeTags {
		fps = f.dropIncomplete(run, fps)
		tracker.StartStage(stageCompare, "compare", int64(len(fps)))
		groups = f.groupByTags(fps)
		tracker.Add(int64(len(fps)))
	} else {
		tracker.StartStage(stageCompare, "compare", int64(len(fps)))
		groups, err = f.groupByContent(ctx, tracker, fps)
	}
	done()
	if err != nil {
		run.Abort(tracker)
		return result, nil
	}
	if f.opts.ReferenceMode {
		groups = referenceGroups(groups)
	}

	result.Groups = groups
	var inGroups int64
	for _, g := range groups {
		inGroups += int64(g.Size())
	}
	run.Add(scanrun.CounterGroups, int64(len(groups)))
	run.Add(scanrun.CounterInGroups, inGroups)
	if len(groups) == 0 {
		run.Infof("no duplicate music found")
	}
	run.Complete(tracker)
	return result, nil
}

// read loads tags and fingerprints for records in parallel. Results keep the
// input order. Subprocesses run detached from ctx so a started item always
// finishes.
func (f *Finder) read(ctx context.Context, run *scanrun.State, tracker *progress.Tracker, records []entry.FileRecord) ([]AudioFingerprint, error) {
	needTags := f.opts.Mode == ModeTags || f.opts.CompareSimilarTitles
	needPrint := f.opts.Mode == ModeContent
	printParams := "fpcalc:" + strconv.Itoa(f.opts.FingerprintSeconds)

	slots := make([]*AudioFingerprint, len(records))
	freshTags := make([]bool, len(records))
	freshPrint := make([]bool, len(records))

	err := workpool.ForEach(ctx, len(records), f.opts.Workers, func(i int) {
		rec := records[i]
		defer tracker.Add(1)
		item := context.WithoutCancel(ctx)
		fp := AudioFingerprint{FileRecord: rec}
		hit := true

		if needTags {
			tags, cached, err := f.readTags(item, rec)
			switch {
			case err != nil && f.opts.Mode == ModeTags:
				run.Warn(rec.Path, "tag_read_failed", err)
				run.Add(scanrun.CounterExcluded, 1)
				return
			case err != nil:
				f.logger.Debug("title unavailable, using file name",
					logging.String(logging.FieldPath, rec.Path), logging.Error(err))
			default:
				fp.Tags = tags
				freshTags[i] = !cached
				hit = hit && cached
			}
		}
		if needPrint {
			items, cached, err := f.readFingerprint(item, rec, printParams)
			if err != nil {
				run.Warn(rec.Path, "fingerprint_failed", err)
				run.Add(scanrun.CounterExcluded, 1)
				return
			}
			fp.Fingerprint = items
			freshPrint[i] = !cached
			hit = hit && cached
		}
		slots[i] = &fp
		if hit {
			run.Add(scanrun.CounterCacheHits, 1)
		} else {
			run.Add(scanrun.CounterChecked, 1)
		}
	})

	var batch []cache.Record
	out := make([]AudioFingerprint, 0, len(records))
	for i, fp := range slots {
		if fp == nil {
			continue
		}
		out = append(out, *fp)
		if !f.cache.Cacheable(fp.FileRecord) {
			continue
		}
		if freshTags[i] {
			if data, err := json.Marshal(fp.Tags); err == nil {
				batch = append(batch, cache.Record{File: fp.FileRecord, Kind: cache.KindAudioTags, Params: tagParams, Entry: cache.Entry{Value: data}})
			}
		}
		if freshPrint[i] {
			batch = append(batch, cache.Record{
				File:   fp.FileRecord,
				Kind:   cache.KindAudioFingerprint,
				Params: printParams,
				Entry:  cache.Entry{Value: cache.EncodeUint32s(fp.Fingerprint)},
			})
		}
	}
	if cacheErr := f.cache.PutBatch(context.WithoutCancel(ctx), batch); cacheErr != nil {
		logging.WithContext(ctx, f.logger).Debug("cache write skipped", logging.Error(cacheErr))
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (f *Finder) readTags(ctx context.Context, rec entry.FileRecord) (Tags, bool, error) {
	if hit, ok := f.cache.Lookup(ctx, rec, cache.KindAudioTags, tagParams); ok {
		var tags Tags
		if err := json.Unmarshal(hit.Value, &tags); err == nil {
			return tags, true, nil
		}
	}
	tags, err := f.tags.ReadTags(ctx, rec.Path)
	return tags, false, err
}

func (f *Finder) readFingerprint(ctx context.Context, rec entry.FileRecord, params string) ([]uint32, bool, error) {
	if hit, ok := f.cache.Lookup(ctx, rec, cache.KindAudioFingerprint, params); ok {
		if items, err := cache.DecodeUint32s(hit.Value); err == nil && len(items) > 0 {
			return items, true, nil
		}
	}
	items, err := f.prints.Fingerprint(ctx, rec.Path, f.opts.FingerprintSeconds)
	if err == nil && len(items) == 0 {
		err = errEmptyFingerprint
	}
	return items, false, err
}

// dropIncomplete removes entries missing an enabled facet.
func (f *Finder) dropIncomplete(run *scanrun.State, fps []AudioFingerprint) []AudioFingerprint {
	out := fps[:0]
	for _, fp := range fps {
		if facet, missing := fp.Tags.missing(f.opts.Facets); missing {
			run.Skip(fp.Path, "missing tag: "+facet.String())
			run.Add(scanrun.CounterExcluded, 1)
			continue
		}
		out = append(out, fp)
	}
	return out
}

// tagKey joins the compared facet values of fp.
func (f *Finder) tagKey(fp AudioFingerprint) string {
	var parts []string
	t := fp.Tags
	if f.opts.Facets.Has(FacetTitle) {
		parts = append(parts, normalizeText(t.Title, f.opts.Approximate))
	}
	if f.opts.Facets.Has(FacetArtist) {
		parts = append(parts, normalizeText(t.Artist, f.opts.Approximate))
	}
	if f.opts.Facets.Has(FacetYear) {
		parts = append(parts, t.Year)
	}
	if f.opts.Facets.Has(FacetLength) {
		parts = append(parts, strconv.Itoa(t.Length))
	}
	if f.opts.Facets.Has(FacetGenre) {
		parts = append(parts, normalizeText(t.Genre, f.opts.Approximate))
	}
	if f.opts.Facets.Has(FacetBitrate) {
		parts = append(parts, strconv.Itoa(t.Bitrate))
	}
	return strings.Join(parts, "\x00")
}

// seedOrder lists positions in the order grouping picks bases. fps is sorted
// by path; with preferWork the non-reference files come first so a base is a
// reference file only when no work file is left to claim it.
func seedOrder(fps []AudioFingerprint, preferWork bool) []int {
	order := make([]int, 0, len(fps))
	for i, fp := range fps {
		if !preferWork || !fp.Reference {
			order = append(order, i)
		}
	}
	if preferWork {
		for i, fp := range fps {
			if fp.Reference {
				order = append(order, i)
			}
		}
	}
	return order
}

func sortGroups(groups []MusicDuplicateGroup) {
	slices.SortFunc(groups, func(a, b MusicDuplicateGroup) int { return strings.Compare(a.Base.Path, b.Base.Path) })
}

// groupByTags groups entries whose enabled facets are all equal. fps must be
// sorted by path. The base is the first file of a bucket in seed order.
func (f *Finder) groupByTags(fps []AudioFingerprint) []MusicDuplicateGroup {
	index := make(map[string]int)
	var buckets [][]int
	for i, fp := range fps {
		k := f.tagKey(fp)
		if b, ok := index[k]; ok {
			buckets[b] = append(buckets[b], i)
			continue
		}
		index[k] = len(buckets)
		buckets = append(buckets, []int{i})
	}

	rank := make([]int, len(fps))
	for r, i := range seedOrder(fps, f.opts.ReferenceMode) {
		rank[i] = r
	}
	var groups []MusicDuplicateGroup
	for _, b := range buckets {
		if len(b) < 2 {
			continue
		}
		base := slices.MinFunc(b, func(x, y int) int { return cmp.Compare(rank[x], rank[y]) })
		g := MusicDuplicateGroup{Base: fps[base]}
		for _, i := range b {
			if i != base {
				g.Matches = append(g.Matches, MusicMatch{AudioFingerprint: fps[i], Facets: f.opts.Facets})
			}
		}
		groups = append(groups, g)
	}
	sortGroups(groups)
	return groups
}

type contentMatch struct {
	index int
	score float64
	seg   Segment
}

// groupByContent compares every entry with the later entries of its bucket
// in parallel, mirrors the symmetric matches, then assigns groups
// sequentially in seed order. fps must be sorted by path.
func (f *Finder) groupByContent(ctx context.Context, tracker *progress.Tracker, fps []AudioFingerprint) ([]MusicDuplicateGroup, error) {
	bucketOf := make([]int, len(fps))
	if f.opts.CompareSimilarTitles {
		ids := make(map[string]int)
		for i, fp := range fps {
			k := titleKey(fp)
			id, ok := ids[k]
			if !ok {
				id = len(ids)
				ids[k] = id
			}
			bucketOf[i] = id
		}
	}

	a := newAligner(f.opts)
	forward := make([][]contentMatch, len(fps))
	err := workpool.ForEach(ctx, len(fps), f.opts.Workers, func(i int) {
		defer tracker.Add(1)
		for j := i + 1; j < len(fps); j++ {
			if bucketOf[j] != bucketOf[i] {
				continue
			}
			if seg, ber, ok := a.match(fps[i].Fingerprint, fps[j].Fingerprint); ok {
				forward[i] = append(forward[i], contentMatch{index: j, score: 1 - ber, seg: seg})
			}
		}
	})
	if err != nil {
		return nil, err
	}

	near := make([][]contentMatch, len(fps))
	for i, list := range forward {
		for _, m := range list {
			near[i] = append(near[i], m)
			back := Segment{BaseStart: m.seg.MatchStart, MatchStart: m.seg.BaseStart, Length: m.seg.Length}
			near[m.index] = append(near[m.index], contentMatch{index: i, score: m.score, seg: back})
		}
	}
	for _, list := range near {
		slices.SortFunc(list, func(x, y contentMatch) int { return cmp.Compare(x.index, y.index) })
	}

	assigned := make([]bool, len(fps))
	var groups []MusicDuplicateGroup
	for _, i := range seedOrder(fps, f.opts.ReferenceMode) {
		if assigned[i] {
			continue
		}
		assigned[i] = true
		var matches []MusicMatch
		for _, m := range near[i] {
			if assigned[m.index] {
				continue
			}
			assigned[m.index] = true
			seg := m.seg
			matches = append(matches, MusicMatch{AudioFingerprint: fps[m.index], Score: m.score, Segment: &seg})
		}
		if len(matches) > 0 {
			groups = append(groups, MusicDuplicateGroup{Base: fps[i], Matches: matches})
		}
	}
	sortGroups(groups)
	return groups, nil
}

// referenceGroups keeps groups holding at least one reference file. Bases
// were already chosen from work files first by seedOrder.
func referenceGroups(groups []MusicDuplicateGroup) []MusicDuplicateGroup {
	out := groups[:0]
	for _, g := range groups {
		hasRef := g.Base.Reference
		for _, m := range g.Matches {
			hasRef = hasRef || m.Reference
		}
		if hasRef {
			out = append(out, g)
		}
	}
	return out
}
