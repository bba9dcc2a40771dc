// Package progress carries run state and best-effort progress updates from
// the comparison pipelines to whoever renders them.
//
// A Tracker owns the run state machine (Idle, Collecting, Comparing, then
// Completed or Cancelled) and lock-free counters that workers bump after each
// file. Updates flow into a Sink; the Coalescer sink keeps only the newest
// pending update and flushes it on a timer so slow consumers never stall the
// workers. Consumers see monotonically non-decreasing progress and always
// receive the terminal state before the run returns.
package progress
