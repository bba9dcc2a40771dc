// Package cache persists per-file computation results (partial and full
// hashes, image fingerprints, audio fingerprints and tags) in SQLite so
// repeated scans skip unchanged files.
//
// Rows are keyed by (path, kind, params) and stamped with the file size and
// modification time seen when the value was computed. A lookup whose stored
// stamp differs from the current record is a miss, so a modified file is
// always recomputed. Any failure to open or query the database degrades the
// cache to a disabled state in which every lookup misses; scans never fail
// because of the cache.
//
// Scans hold a shared file lock next to the database; maintenance commands
// (stats, prune, clear) take it exclusively.
package cache
