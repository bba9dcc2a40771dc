// Package collect walks directory trees and produces the FileRecords the
// comparison pipelines consume.
//
// Symlinks are never followed, so link cycles cannot trap the walk. Excluded
// directories are pruned rather than descended. Unreadable directories and
// files that vanish between listing and stat are reported through the run log
// and skipped.
package collect
