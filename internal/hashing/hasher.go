package hashing

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
)

const readBufferSize = 64 * 1024

// Hasher computes content hashes with one algorithm.
type Hasher interface {
	Algorithm() Algorithm
	// Partial hashes at most limit bytes from the start of the file.
	Partial(path string, limit int64) ([]byte, error)
	// Full hashes the whole file.
	Full(path string) ([]byte, error)
}

// New returns a Hasher for alg.
func New(alg Algorithm) (Hasher, error) {
	if !alg.Valid() {
		return nil, fmt.Errorf("hashing: %w", errUnknownAlgorithm)
	}
	return &fileHasher{alg: alg}, nil
}

var errUnknownAlgorithm = errors.New("unknown algorithm")

var bufferPool = sync.Pool{
	New: func() any {
		buf := make([]byte, readBufferSize)
		return &buf
	},
}

type fileHasher struct {
	alg Algorithm
}

func (h *fileHasher) Algorithm() Algorithm { return h.alg }

func (h *fileHasher) Partial(path string, limit int64) ([]byte, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("partial hash %s: limit must be positive", path)
	}
	return h.hashFile(path, limit)
}

func (h *fileHasher) Full(path string) ([]byte, error) {
	return h.hashFile(path, -1)
}

// hashFile streams up to limit bytes (all when limit < 0) through the hash.
func (h *fileHasher) hashFile(path string, limit int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	bufp := bufferPool.Get().(*[]byte)
	defer bufferPool.Put(bufp)
	buf := *bufp

	digest := h.alg.newHash()
	remaining := limit
	for limit < 0 || remaining > 0 {
		chunk := buf
		if limit >= 0 && remaining < int64(len(chunk)) {
			chunk = chunk[:remaining]
		}
		n, err := f.Read(chunk)
		if n > 0 {
			digest.Write(chunk[:n])
			remaining -= int64(n)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	}
	return digest.Sum(nil), nil
}
