// Package hashing computes partial and full content hashes of files.
//
// The supported algorithms form a closed set (blake3 and sha256 are
// collision-resistant, xxh64 and crc32 are fast). Callers pick one per run
// and drive it through the Hasher interface. Reads go through pooled
// fixed-size buffers so memory use does not grow with file size.
package hashing
