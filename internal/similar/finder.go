package similar

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"twinfind/internal/bktree"
	"twinfind/internal/cache"
	"twinfind/internal/entry"
	"twinfind/internal/logging"
	"twinfind/internal/phash"
	"twinfind/internal/progress"
	"twinfind/internal/scanrun"
	"twinfind/internal/workpool"
)

const toolName = "images"

const (
	stageCollect = iota
	stageFingerprint
	stageCompare
	stageCount
)

// Finder runs the image similarity pipeline.
type Finder struct {
	opts   Options
	hasher *phash.Hasher
	cache  *cache.Cache
	logger *slog.Logger
}

// New validates opts and returns a Finder. A nil cache disables caching.
func New(opts Options, c *cache.Cache, logger *slog.Logger) (*Finder, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	hasher, err := phash.NewHasher(opts.Algorithm, opts.Filter, opts.HashSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}
	if c == nil {
		c = cache.Disabled()
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Finder{
		opts:   opts,
		hasher: hasher,
		cache:  c,
		logger: logging.NewComponentLogger(logger, toolName),
	}, nil
}

// Run fingerprints every record from src and groups similar images.
// Cancellation yields a Cancelled result with no groups and a nil error.
func (f *Finder) Run(ctx context.Context, src entry.Source, sink progress.Sink) (*Result, error) {
	run := scanrun.New(toolName, f.logger)
	tracker := progress.NewTracker(toolName, stageCount, sink)
	result := &Result{
		State:     run,
		HashSize:  f.opts.HashSize,
		Level:     f.opts.Level,
		Threshold: f.opts.Threshold(),
	}
	ctx = run.Context(ctx)

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
	done := run.Stage("fingerprint")
	tracker.StartStage(stageFingerprint, "fingerprint", int64(len(records)))
	fps, err := f.fingerprint(ctx, run, tracker, records)
	done()
	if err != nil {
		run.Abort(tracker)
		return result, nil
	}

	done = run.Stage("compare")
	tracker.StartStage(stageCompare, "compare", int64(len(fps)))
	groups, err := f.compare(ctx, tracker, fps)
	done()
	if err != nil {
		run.Abort(tracker)
		return result, nil
	}
	if f.opts.ExcludeSameSize {
		groups = excludeSameSize(run, groups)
	}
	if f.opts.ReferenceMode {
		groups = referenceGroups(groups, f.opts.Linkage)
	}

	result.Groups = groups
	var inGroups int64
	for _, g := range groups {
		inGroups += int64(len(g.Members) + 1)
	}
	run.Add(scanrun.CounterGroups, int64(len(groups)))
	run.Add(scanrun.CounterInGroups, inGroups)
	if len(groups) == 0 {
		run.Infof("no similar images found")
	}
	run.Complete(tracker)
	return result, nil
}

// fingerprint decodes and hashes records in parallel, consulting the cache.
// The returned fingerprints keep the input (path) order.
func (f *Finder) fingerprint(ctx context.Context, run *scanrun.State, tracker *progress.Tracker, records []entry.FileRecord) ([]ImageFingerprint, error) {
	params := f.hasher.Params()
	slots := make([]*ImageFingerprint, len(records))
	fresh := make([]bool, len(records))

	err := workpool.ForEach(ctx, len(records), f.opts.Workers, func(i int) {
		rec := records[i]
		defer tracker.Add(1)
		if hit, ok := f.cache.Lookup(ctx, rec, cache.KindImageHash, params); ok {
			if bits, err := phash.FromBytes(f.opts.HashSize, hit.Value); err == nil {
				slots[i] = &ImageFingerprint{FileRecord: rec, Hash: bits, Width: hit.Width, Height: hit.Height}
				run.Add(scanrun.CounterCacheHits, 1)
				return
			}
		}
		fp, err := f.hasher.HashFile(rec.Path)
		if err != nil {
			run.Warn(rec.Path, "image_decode_failed", err)
			run.Add(scanrun.CounterExcluded, 1)
			return
		}
		slots[i] = &ImageFingerprint{FileRecord: rec, Hash: fp.Hash, Width: fp.Width, Height: fp.Height}
		fresh[i] = true
		run.Add(scanrun.CounterChecked, 1)
	})

	var batch []cache.Record
	out := make([]ImageFingerprint, 0, len(records))
	for i, fp := range slots {
		if fp == nil {
			continue
		}
		out = append(out, *fp)
		if fresh[i] && f.cache.Cacheable(fp.FileRecord) {
			batch = append(batch, cache.Record{
				File:   fp.FileRecord,
				Kind:   cache.KindImageHash,
				Params: params,
				Entry:  cache.Entry{Value: fp.Hash.Bytes(), Width: fp.Width, Height: fp.Height},
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

// compare indexes fps and queries every fingerprint in parallel; clustering
// itself runs sequentially in seed order.
func (f *Finder) compare(ctx context.Context, tracker *progress.Tracker, fps []ImageFingerprint) ([]SimilarityGroup, error) {
	tree := newIndex(fps)
	radius := f.opts.Threshold()
	near := make([][]bktree.Match[int], len(fps))
	err := workpool.ForEach(ctx, len(fps), f.opts.Workers, func(i int) {
		near[i] = neighbours(fps, tree, i, radius)
		tracker.Add(1)
	})
	if err != nil {
		return nil, err
	}
	return cluster(fps, near, f.opts.Linkage, seedOrder(fps, f.opts.ReferenceMode)), nil
}
