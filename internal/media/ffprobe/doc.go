// Package ffprobe provides a typed wrapper around ffprobe JSON output for
// audio files.
//
// Inspect runs ffprobe and returns the container format, the streams and the
// metadata tags. Tag lookups are case-insensitive and fall back from the
// container tags to the first audio stream, which is where Ogg and Opus files
// keep their Vorbis comments.
package ffprobe
