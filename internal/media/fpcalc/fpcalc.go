// Package fpcalc wraps chromaprint's fpcalc tool to obtain raw acoustic
// fingerprints.
package fpcalc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// ItemSeconds is the audio duration covered by one fingerprint item.
const ItemSeconds = 0.1238

// ErrEmptyFingerprint is returned when fpcalc produced no items.
var ErrEmptyFingerprint = errors.New("fpcalc: empty fingerprint")

// Fingerprint is a raw chromaprint fingerprint.
type Fingerprint struct {
	Duration float64
	Items    []uint32
}

// Seconds returns the audio span covered by the fingerprint items.
func (f Fingerprint) Seconds() float64 {
	return float64(len(f.Items)) * ItemSeconds
}

type payload struct {
	Duration    float64 `json:"duration"`
	Fingerprint []int64 `json:"fingerprint"`
}

// Compute runs fpcalc against path, analysing at most lengthSeconds of audio.
func Compute(ctx context.Context, binary, path string, lengthSeconds int) (Fingerprint, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "fpcalc"
	}
	if strings.TrimSpace(path) == "" {
		return Fingerprint{}, errors.New("fpcalc: empty path")
	}
	args := []string{"-raw", "-json"}
	if lengthSeconds > 0 {
		args = append(args, "-length", strconv.Itoa(lengthSeconds))
	}
	args = append(args, path)

	cmd := exec.CommandContext(ctx, binary, args...)
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return Fingerprint{}, fmt.Errorf("fpcalc: %w: %s", err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return Fingerprint{}, fmt.Errorf("fpcalc: %w", err)
	}
	return Parse(output)
}

// Parse decodes `fpcalc -raw -json` output. Older fpcalc builds print signed
// items, so negative values are reinterpreted as their 32-bit pattern.
func Parse(data []byte) (Fingerprint, error) {
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return Fingerprint{}, fmt.Errorf("fpcalc parse: %w", err)
	}
	if len(p.Fingerprint) == 0 {
		return Fingerprint{}, ErrEmptyFingerprint
	}
	items := make([]uint32, len(p.Fingerprint))
	for i, v := range p.Fingerprint {
		if v < -1<<31 || v > 1<<32-1 {
			return Fingerprint{}, fmt.Errorf("fpcalc parse: item %d out of range: %d", i, v)
		}
		items[i] = uint32(v)
	}
	return Fingerprint{Duration: p.Duration, Items: items}, nil
}
