package hashing

import (
	"crypto/sha256"
	"fmt"
	"hash"
	"hash/crc32"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/zeebo/blake3"
)

// Algorithm identifies a hash function.
type Algorithm int

const (
	Blake3 Algorithm = iota
	SHA256
	XXH64
	CRC32
)

var algorithmNames = map[Algorithm]string{
	Blake3: "blake3",
	SHA256: "sha256",
	XXH64:  "xxh64",
	CRC32:  "crc32",
}

// ParseAlgorithm maps a configuration name to an Algorithm.
func ParseAlgorithm(name string) (Algorithm, error) {
	needle := strings.ToLower(strings.TrimSpace(name))
	for alg, n := range algorithmNames {
		if n == needle {
			return alg, nil
		}
	}
	return 0, fmt.Errorf("unknown hash algorithm %q", name)
}

func (a Algorithm) String() string {
	if n, ok := algorithmNames[a]; ok {
		return n
	}
	return fmt.Sprintf("algorithm(%d)", int(a))
}

// MarshalText renders the algorithm name for JSON reports.
func (a Algorithm) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// Cryptographic reports whether collisions are computationally infeasible.
func (a Algorithm) Cryptographic() bool {
	return a == Blake3 || a == SHA256
}

// Valid reports whether a is one of the known algorithms.
func (a Algorithm) Valid() bool {
	_, ok := algorithmNames[a]
	return ok
}

func (a Algorithm) newHash() hash.Hash {
	switch a {
	case SHA256:
		return sha256.New()
	case XXH64:
		return xxhash.New()
	case CRC32:
		return crc32.NewIEEE()
	default:
		return blake3.New()
	}
}
