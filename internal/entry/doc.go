// Package entry defines the file records every comparison pipeline consumes
// and the eligibility rules applied to them.
//
// A FileRecord is an immutable (path, size, modified-time) triple produced by
// traversal. The Classifier decides which records are eligible for a tool
// (size bounds, extension allow/deny lists, exclusion globs) and tags records
// that live under reference directories. Pipelines receive records through
// the Source interface so callers can supply either a directory walker or a
// pre-built slice.
package entry
