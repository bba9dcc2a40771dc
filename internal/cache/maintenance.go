package cache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// Stats summarizes the cache contents.
type Stats struct {
	Path      string         `json:"path"`
	Rows      int64          `json:"rows"`
	Files     int64          `json:"files"`
	ByKind    map[Kind]int64 `json:"by_kind"`
	SizeBytes int64          `json:"size_bytes"`
}

// Stats counts rows per kind and reports the database file size.
func (c *Cache) Stats(ctx context.Context) (Stats, error) {
	if !c.Enabled() {
		return Stats{}, ErrCacheDisabled
	}
	stats := Stats{Path: c.path, ByKind: make(map[Kind]int64)}
	rows, err := c.db.QueryContext(ctx, "SELECT kind, COUNT(1) FROM results GROUP BY kind ORDER BY kind")
	if err != nil {
		return Stats{}, fmt.Errorf("count cache rows: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			kind  string
			count int64
		)
		if err := rows.Scan(&kind, &count); err != nil {
			return Stats{}, fmt.Errorf("scan cache stats: %w", err)
		}
		stats.ByKind[Kind(kind)] = count
		stats.Rows += count
	}
	if err := rows.Err(); err != nil {
		return Stats{}, fmt.Errorf("iterate cache stats: %w", err)
	}
	if err := c.db.QueryRowContext(ctx, "SELECT COUNT(DISTINCT path) FROM results").Scan(&stats.Files); err != nil {
		return Stats{}, fmt.Errorf("count cached files: %w", err)
	}
	if info, err := os.Stat(c.path); err == nil {
		stats.SizeBytes = info.Size()
	}
	return stats, nil
}

type stamp struct {
	path  string
	size  int64
	mtime int64
}

// Prune deletes rows whose file no longer exists or has a different size or
// modification time. It returns the number of rows removed.
func (c *Cache) Prune(ctx context.Context) (int64, error) {
	if !c.Enabled() {
		return 0, ErrCacheDisabled
	}
	rows, err := c.db.QueryContext(ctx, "SELECT DISTINCT path, size, mtime FROM results ORDER BY path")
	if err != nil {
		return 0, fmt.Errorf("list cached files: %w", err)
	}
	var stale []stamp
	for rows.Next() {
		var s stamp
		if err := rows.Scan(&s.path, &s.size, &s.mtime); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan cached file: %w", err)
		}
		if ctx.Err() != nil {
			rows.Close()
			return 0, ctx.Err()
		}
		info, err := os.Stat(s.path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			stale = append(stale, s)
		case err != nil:
			continue
		case info.Size() != s.size || info.ModTime().Unix() != s.mtime:
			stale = append(stale, s)
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, fmt.Errorf("iterate cached files: %w", err)
	}
	rows.Close()
	if len(stale) == 0 {
		return 0, nil
	}

	var removed int64
	err = retryOnBusy(ctx, func() error {
		removed = 0
		tx, err := c.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()
		for _, s := range stale {
			res, err := tx.ExecContext(ctx,
				"DELETE FROM results WHERE path = ? AND size = ? AND mtime = ?", s.path, s.size, s.mtime)
			if err != nil {
				return err
			}
			if n, err := res.RowsAffected(); err == nil {
				removed += n
			}
		}
		return tx.Commit()
	})
	if err != nil {
		return 0, fmt.Errorf("prune cache: %w", err)
	}
	if _, err := c.db.ExecContext(ctx, "VACUUM"); err != nil {
		c.logger.Debug("cache vacuum failed", "error", err)
	}
	return removed, nil
}

// Clear deletes every row and returns how many were removed.
func (c *Cache) Clear(ctx context.Context) (int64, error) {
	if !c.Enabled() {
		return 0, ErrCacheDisabled
	}
	var removed int64
	err := retryOnBusy(ctx, func() error {
		res, err := c.db.ExecContext(ctx, "DELETE FROM results")
		if err != nil {
			return err
		}
		removed, _ = res.RowsAffected()
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("clear cache: %w", err)
	}
	if _, err := c.db.ExecContext(ctx, "VACUUM"); err != nil {
		c.logger.Debug("cache vacuum failed", "error", err)
	}
	return removed, nil
}
