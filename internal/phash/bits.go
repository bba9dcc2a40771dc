package phash

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math/bits"
	"slices"
)

// ErrMismatchedLength is returned when comparing hashes of different sizes.
var ErrMismatchedLength = errors.New("perceptual hashes have different lengths")

// Sides lists the supported hash side lengths.
var Sides = []int{8, 16, 32, 64}

// ValidSide reports whether side is a supported hash side length.
func ValidSide(side int) bool {
	return slices.Contains(Sides, side)
}

// Bits is a side×side bit vector.
type Bits struct {
	side  int
	words []uint64
}

// NewBits returns an all-zero vector.
func NewBits(side int) (Bits, error) {
	if !ValidSide(side) {
		return Bits{}, fmt.Errorf("hash side %d not in %v", side, Sides)
	}
	return Bits{side: side, words: make([]uint64, side*side/64)}, nil
}

// Side returns the hash side length.
func (b Bits) Side() int { return b.side }

// Len returns the number of bits.
func (b Bits) Len() int { return b.side * b.side }

// Bit reports whether bit i is set.
func (b Bits) Bit(i int) bool {
	return b.words[i/64]&(1<<(uint(i)%64)) != 0
}

func (b Bits) set(i int) {
	b.words[i/64] |= 1 << (uint(i) % 64)
}

// Hamming counts differing bits.
func Hamming(a, b Bits) (int, error) {
	if a.side != b.side {
		return 0, fmt.Errorf("%w: %d vs %d bits", ErrMismatchedLength, a.Len(), b.Len())
	}
	d := 0
	for i, w := range a.words {
		d += bits.OnesCount64(w ^ b.words[i])
	}
	return d, nil
}

// Bytes serializes the vector big-endian word by word.
func (b Bits) Bytes() []byte {
	out := make([]byte, 8*len(b.words))
	for i, w := range b.words {
		binary.BigEndian.PutUint64(out[8*i:], w)
	}
	return out
}

// FromBytes reverses Bytes.
func FromBytes(side int, data []byte) (Bits, error) {
	b, err := NewBits(side)
	if err != nil {
		return Bits{}, err
	}
	if len(data) != 8*len(b.words) {
		return Bits{}, fmt.Errorf("%w: %d bytes for side %d", ErrMismatchedLength, len(data), side)
	}
	for i := range b.words {
		b.words[i] = binary.BigEndian.Uint64(data[8*i:])
	}
	return b, nil
}

func (b Bits) String() string { return hex.EncodeToString(b.Bytes()) }

func (b Bits) MarshalText() ([]byte, error) { return []byte(b.String()), nil }
