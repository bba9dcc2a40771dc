// Package scanrun holds the per-run aggregate every tool returns: run
// identity, terminal status, stage timings, counters, and the message log
// that explains every excluded file.
//
// A State is owned by exactly one run. Workers may record messages and bump
// counters concurrently while the run is active; after Finish the State is
// read-only.
package scanrun
