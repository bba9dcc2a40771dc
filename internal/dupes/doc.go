// Package dupes finds files with identical content.
//
// The hash method narrows candidates in three steps: records are bucketed by
// exact size, survivors get a partial hash over a bounded prefix, and only
// partial-hash collisions are read in full. Each step drops singletons, so
// most files are never read past their first window. Hashes are looked up in
// and written back to the result cache keyed by algorithm and window.
//
// The size, name and size_name methods skip hashing and group on metadata
// alone.
package dupes
