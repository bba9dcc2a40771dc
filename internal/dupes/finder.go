package dupes

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	"twinfind/internal/cache"
	"twinfind/internal/entry"
	"twinfind/internal/hashing"
	"twinfind/internal/logging"
	"twinfind/internal/progress"
	"twinfind/internal/scanrun"
	"twinfind/internal/workpool"
)

const toolName = "dupes"

// Stage indexes reported through progress updates.
const (
	stageCollect = iota
	stagePartial
	stageFull
	stageCount
)

// Finder runs the duplicate pipeline. A Finder may be reused for several
// runs but each Run owns its own state.
type Finder struct {
	opts   Options
	hasher hashing.Hasher
	cache  *cache.Cache
	logger *slog.Logger
}

// New validates opts and returns a Finder. A nil cache disables caching.
func New(opts Options, c *cache.Cache, logger *slog.Logger) (*Finder, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	hasher, err := hashing.New(opts.Algorithm)
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

// Run collects records from src and groups duplicates. Cancellation of ctx is
// not an error: the result carries status Cancelled and no groups. The
// returned error is non-nil only when src itself fails.
func (f *Finder) Run(ctx context.Context, src entry.Source, sink progress.Sink) (*Result, error) {
	run := scanrun.New(toolName, f.logger)
	tracker := progress.NewTracker(toolName, f.stageCount(), sink)
	result := &Result{State: run, Method: f.opts.Method, Algorithm: f.opts.Algorithm}
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

	run.Compare(tracker)
	var groups []DuplicateGroup
	switch f.opts.Method {
	case MethodHash:
		groups, err = f.hashGroups(ctx, run, tracker, records)
	default:
		groups = f.metadataGroups(run, records)
	}
	if err != nil || ctx.Err() != nil {
		run.Abort(tracker)
		return result, nil
	}

	result.Groups = groups
	if f.opts.ReferenceMode {
		result.Referenced = ReferenceGroups(groups)
	}
	f.summarize(run, result)
	run.Complete(tracker)
	return result, nil
}

func (f *Finder) stageCount() int {
	if f.opts.Method == MethodHash {
		return stageCount
	}
	return 1
}

func (f *Finder) summarize(run *scanrun.State, result *Result) {
	var inGroups int64
	for _, g := range result.Groups {
		inGroups += int64(len(g.Entries))
	}
	run.Add(scanrun.CounterGroups, int64(result.GroupCount()))
	run.Add(scanrun.CounterInGroups, inGroups)
	run.Add(scanrun.CounterLostBytes, int64(result.WastedBytes()))
	if result.GroupCount() == 0 {
		run.Infof("no duplicates found")
	}
}

// hashGroups runs size bucketing, partial hashing and full hashing.
func (f *Finder) hashGroups(ctx context.Context, run *scanrun.State, tracker *progress.Tracker, records []entry.FileRecord) ([]DuplicateGroup, error) {
	nonEmpty := make([]entry.FileRecord, 0, len(records))
	for _, rec := range records {
		if rec.Size == 0 {
			run.Skip(rec.Path, "empty file")
			run.Add(scanrun.CounterExcluded, 1)
			continue
		}
		nonEmpty = append(nonEmpty, rec)
	}

	buckets := GroupBySize(nonEmpty)
	candidates := flattenBySize(buckets)
	f.logger.Debug("size buckets built",
		logging.Int("buckets", len(buckets)),
		logging.Int("candidates", len(candidates)))

	done := run.Stage("partial_hash")
	tracker.StartStage(stagePartial, "partial hash", int64(len(candidates)))
	partial, err := f.hashStage(ctx, run, tracker, candidates, f.partialStep())
	done()
	if err != nil {
		return nil, err
	}

	var survivors []entry.FileRecord
	var complete []HashedEntry
	for _, group := range collisions(partial) {
		for _, e := range group {
			if int64(e.Size) <= f.opts.PartialHashBytes {
				// The window covered the whole file.
				complete = append(complete, e)
				continue
			}
			survivors = append(survivors, e.FileRecord)
		}
	}

	done = run.Stage("full_hash")
	tracker.StartStage(stageFull, "full hash", int64(len(survivors)))
	full, err := f.hashStage(ctx, run, tracker, survivors, f.fullStep())
	done()
	if err != nil {
		return nil, err
	}

	all := append(complete, full...)
	return buildGroups(collisions(all), func(entries []HashedEntry) string {
		return entries[0].Hash.String()
	}), nil
}

// hashStep describes one hashing granularity.
type hashStep struct {
	kind    cache.Kind
	params  string
	compute func(path string) ([]byte, error)
}

func (f *Finder) partialStep() hashStep {
	window := f.opts.PartialHashBytes
	return hashStep{
		kind:   cache.KindPartialHash,
		params: fmt.Sprintf("%s:%d", f.opts.Algorithm, window),
		compute: func(path string) ([]byte, error) {
			return f.hasher.Partial(path, window)
		},
	}
}

func (f *Finder) fullStep() hashStep {
	return hashStep{
		kind:    cache.KindFullHash,
		params:  f.opts.Algorithm.String(),
		compute: f.hasher.Full,
	}
}

// hashStage hashes records in parallel. Failed reads are warned and dropped.
// New hashes are written to the cache in one batch.
func (f *Finder) hashStage(ctx context.Context, run *scanrun.State, tracker *progress.Tracker, records []entry.FileRecord, step hashStep) ([]HashedEntry, error) {
	hashes := make([][]byte, len(records))
	fresh := make([]bool, len(records))

	err := workpool.ForEach(ctx, len(records), f.opts.Workers, func(i int) {
		rec := records[i]
		defer tracker.Add(1)
		if hit, ok := f.cache.Lookup(ctx, rec, step.kind, step.params); ok {
			hashes[i] = hit.Value
			run.Add(scanrun.CounterCacheHits, 1)
			return
		}
		sum, err := step.compute(rec.Path)
		if err != nil {
			run.Warn(rec.Path, hashFailureEvent(err), err)
			run.Add(scanrun.CounterExcluded, 1)
			return
		}
		hashes[i] = sum
		fresh[i] = true
		run.Add(scanrun.CounterChecked, 1)
	})

	var batch []cache.Record
	out := make([]HashedEntry, 0, len(records))
	for i, rec := range records {
		if hashes[i] == nil {
			continue
		}
		out = append(out, HashedEntry{FileRecord: rec, Hash: hashes[i], Algorithm: f.opts.Algorithm})
		if fresh[i] && f.cache.Cacheable(rec) {
			batch = append(batch, cache.Record{File: rec, Kind: step.kind, Params: step.params, Entry: cache.Entry{Value: hashes[i]}})
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

func hashFailureEvent(err error) string {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return "hash_file_missing"
	case errors.Is(err, fs.ErrPermission):
		return "hash_permission_denied"
	default:
		return "hash_read_failed"
	}
}

// metadataGroups groups records by size, name or both without reading them.
func (f *Finder) metadataGroups(run *scanrun.State, records []entry.FileRecord) []DuplicateGroup {
	keyOf := func(rec entry.FileRecord) string {
		name := rec.Name()
		if !f.opts.CaseSensitiveNames {
			name = strings.ToLower(name)
		}
		switch f.opts.Method {
		case MethodSize:
			return fmt.Sprintf("%d", rec.Size)
		case MethodName:
			return name
		default:
			return fmt.Sprintf("%d/%s", rec.Size, name)
		}
	}

	index := make(map[string]int)
	var members [][]HashedEntry
	for _, rec := range records {
		if f.opts.Method != MethodName && rec.Size == 0 {
			run.Skip(rec.Path, "empty file")
			continue
		}
		k := keyOf(rec)
		he := HashedEntry{FileRecord: rec, Algorithm: f.opts.Algorithm}
		if i, ok := index[k]; ok {
			members[i] = append(members[i], he)
			continue
		}
		index[k] = len(members)
		members = append(members, []HashedEntry{he})
	}
	run.Add(scanrun.CounterChecked, int64(len(records)))

	return buildGroups(members, func(entries []HashedEntry) string {
		if f.opts.Method == MethodSize {
			return ""
		}
		name := entries[0].Name()
		if !f.opts.CaseSensitiveNames {
			name = strings.ToLower(name)
		}
		return name
	})
}
