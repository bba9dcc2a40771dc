// Package similar groups visually similar images.
//
// Every image is reduced to a perceptual hash (package phash), the hashes are
// indexed in a BK-tree (package bktree) and each hash is queried for
// neighbours within a Hamming radius. The radius comes from a similarity
// level looked up in a table indexed by hash size, optionally lowered by an
// explicit maximum distance. Clustering walks fingerprints in path order so
// groups do not depend on worker scheduling.
package similar
