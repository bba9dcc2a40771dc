package similar

import (
	"twinfind/internal/entry"
	"twinfind/internal/phash"
	"twinfind/internal/scanrun"
)

// ImageFingerprint is a file record with its perceptual hash.
type ImageFingerprint struct {
	entry.FileRecord
	Hash   phash.Bits `json:"hash"`
	Width  int        `json:"width"`
	Height int        `json:"height"`
}

// SimilarImage is a group member and its distance to the representative.
type SimilarImage struct {
	ImageFingerprint
	Distance int `json:"distance"`
}

// SimilarityGroup is a representative and the images similar to it, ordered
// by distance then path.
type SimilarityGroup struct {
	Representative ImageFingerprint `json:"representative"`
	Members        []SimilarImage   `json:"members"`
}

// Result is the outcome of one Finder run.
type Result struct {
	*scanrun.State
	HashSize  int               `json:"hash_size"`
	Level     Level             `json:"level"`
	Threshold int               `json:"threshold"`
	Groups    []SimilarityGroup `json:"groups"`
}
