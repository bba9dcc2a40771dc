// Package phash derives perceptual hashes from images.
//
// An image is decoded (honoring EXIF orientation), converted to grayscale and
// resized with a configurable filter; one of four algorithms then reduces the
// small grayscale grid to side² bits. Visually similar images produce hashes
// with a small Hamming distance.
package phash
