package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"

	"twinfind/internal/entry"
	"twinfind/internal/logging"
)

// Kind names the computation a cached value came from.
type Kind string

const (
	KindPartialHash      Kind = "partial_hash"
	KindFullHash         Kind = "full_hash"
	KindImageHash        Kind = "image_hash"
	KindAudioFingerprint Kind = "audio_fingerprint"
	KindAudioTags        Kind = "audio_tags"
)

var (
	// ErrCacheDisabled is returned by maintenance calls on a disabled cache.
	ErrCacheDisabled = errors.New("cache disabled")
	// ErrLocked means another process holds a conflicting cache lock.
	ErrLocked = errors.New("cache is locked by another twinfind process")
)

// Entry is a cached value with optional image dimensions.
type Entry struct {
	Value  []byte
	Width  int
	Height int
}

// Record pairs an entry with the file stamp and key it belongs to.
type Record struct {
	File   entry.FileRecord
	Kind   Kind
	Params string
	Entry
}

// Options configures Open.
type Options struct {
	Path        string
	MinFileSize uint64
	// Exclusive takes the maintenance lock instead of the shared scan lock.
	Exclusive bool
	Logger    *slog.Logger
	// Notify receives one informational message when the cache degrades.
	Notify func(msg string)
}

// Cache is a SQLite-backed result store. A nil or disabled Cache misses every
// lookup and drops every write. Methods are safe for concurrent use.
type Cache struct {
	db      *sql.DB
	path    string
	lock    *flock.Flock
	minSize uint64
	logger  *slog.Logger
	notify  func(string)

	disabled atomic.Bool
	once     sync.Once
}

// Disabled returns a cache that never hits.
func Disabled() *Cache {
	c := &Cache{logger: logging.NewNop()}
	c.disabled.Store(true)
	return c
}

// Open connects to the cache database, creating it when missing.
func Open(ctx context.Context, opts Options) (*Cache, error) {
	if opts.Path == "" {
		return nil, errors.New("cache path is empty")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	if err := ensureWritableDir(opts.Path); err != nil {
		return nil, err
	}

	lock := flock.New(opts.Path + ".lock")
	var (
		ok  bool
		err error
	)
	if opts.Exclusive {
		ok, err = lock.TryLock()
	} else {
		ok, err = lock.TryRLock()
	}
	if err != nil {
		return nil, fmt.Errorf("acquire cache lock: %w", err)
	}
	if !ok {
		return nil, ErrLocked
	}

	db, err := sql.Open("sqlite", opts.Path)
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			_ = lock.Unlock()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	c := &Cache{
		db:      db,
		path:    opts.Path,
		lock:    lock,
		minSize: opts.MinFileSize,
		logger:  logging.NewComponentLogger(logger, "cache"),
		notify:  opts.Notify,
	}
	if err := c.initSchema(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

// OpenOrDisable opens the cache for a scan. Any failure is reported through
// opts.Notify and yields a disabled cache instead of an error.
func OpenOrDisable(ctx context.Context, opts Options) *Cache {
	opts.Exclusive = false
	c, err := Open(ctx, opts)
	if err == nil {
		return c
	}
	d := Disabled()
	if opts.Logger != nil {
		d.logger = logging.NewComponentLogger(opts.Logger, "cache")
	}
	d.notify = opts.Notify
	d.report(ctx, err)
	return d
}

// Path returns the database location.
func (c *Cache) Path() string {
	if c == nil {
		return ""
	}
	return c.path
}

// Enabled reports whether lookups can hit.
func (c *Cache) Enabled() bool {
	return c != nil && c.db != nil && !c.disabled.Load()
}

// Cacheable reports whether rec is large enough to be worth caching.
func (c *Cache) Cacheable(rec entry.FileRecord) bool {
	return c.Enabled() && rec.Size >= c.minSize
}

// Lookup returns the stored entry for rec when its size and mtime still match.
func (c *Cache) Lookup(ctx context.Context, rec entry.FileRecord, kind Kind, params string) (Entry, bool) {
	if !c.Cacheable(rec) {
		return Entry{}, false
	}
	var (
		size, mtime   int64
		value         []byte
		width, height int
	)
	err := retryOnBusy(ctx, func() error {
		return c.db.QueryRowContext(ctx,
			"SELECT size, mtime, value, width, height FROM results WHERE path = ? AND kind = ? AND params = ?",
			rec.Path, string(kind), params,
		).Scan(&size, &mtime, &value, &width, &height)
	})
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) && ctx.Err() == nil {
			c.degrade(ctx, err)
		}
		return Entry{}, false
	}
	if uint64(size) != rec.Size || uint64(mtime) != rec.ModTime {
		return Entry{}, false
	}
	return Entry{Value: value, Width: width, Height: height}, true
}

// Put stores one entry. Last write wins.
func (c *Cache) Put(ctx context.Context, rec entry.FileRecord, kind Kind, params string, e Entry) error {
	return c.PutBatch(ctx, []Record{{File: rec, Kind: kind, Params: params, Entry: e}})
}

// PutBatch upserts records in one transaction. Records below the minimum
// file size are skipped. A write failure disables the cache and is reported
// once; the returned error is informational.
func (c *Cache) PutBatch(ctx context.Context, records []Record) error {
	if !c.Enabled() || len(records) == 0 {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339)
	err := retryOnBusy(ctx, func() error {
		tx, err := c.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		stmt, err := tx.PrepareContext(ctx, `INSERT INTO results (path, kind, params, size, mtime, value, width, height, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(path, kind, params) DO UPDATE SET
    size = excluded.size,
    mtime = excluded.mtime,
    value = excluded.value,
    width = excluded.width,
    height = excluded.height,
    updated_at = excluded.updated_at`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, r := range records {
			if r.File.Size < c.minSize {
				continue
			}
			if _, err := stmt.ExecContext(ctx,
				r.File.Path, string(r.Kind), r.Params,
				int64(r.File.Size), int64(r.File.ModTime),
				r.Value, r.Width, r.Height, now,
			); err != nil {
				return err
			}
		}
		return tx.Commit()
	})
	if err != nil {
		if ctx.Err() == nil {
			c.degrade(ctx, err)
		}
		return fmt.Errorf("write cache batch: %w", err)
	}
	return nil
}

// Close releases the database and the lock.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	var err error
	if c.db != nil {
		err = c.db.Close()
		c.db = nil
	}
	if c.lock != nil {
		if unlockErr := c.lock.Unlock(); unlockErr != nil && err == nil {
			err = unlockErr
		}
		c.lock = nil
	}
	return err
}

func (c *Cache) degrade(ctx context.Context, err error) {
	c.disabled.Store(true)
	c.report(ctx, err)
}

// report logs the first failure through a logger tagged with the run found in
// ctx, if any.
func (c *Cache) report(ctx context.Context, err error) {
	c.once.Do(func() {
		msg := fmt.Sprintf("result cache disabled: %v", err)
		logging.WithContext(ctx, c.logger).Info("result cache disabled",
			logging.Error(err),
			logging.String(logging.FieldImpact, "results are recomputed for every file"))
		if c.notify != nil {
			c.notify(msg)
		}
	})
}
