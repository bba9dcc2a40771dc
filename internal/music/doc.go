// Package music finds duplicate audio files.
//
// Two modes exist. Tag mode reads metadata with ffprobe and groups files
// whose enabled facets (title, artist, year, length, genre, bitrate) are all
// equal. Content mode reads raw chromaprint fingerprints with fpcalc and
// groups files that share an aligned segment of at least MinSegmentSeconds
// whose mean bit error rate stays within MaxBitErrorRate.
//
// Groups are built in path order: the first entry not yet assigned becomes a
// group's base and collects every unassigned entry that matches it. With
// reference directories, work files are tried as bases before reference
// files, as the other tools do, and groups without a reference file are
// dropped.
package music
