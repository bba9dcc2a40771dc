package music

import (
	"math"
	"math/bits"

	"twinfind/internal/media/fpcalc"
)

// aligner compares raw fingerprints. Items are aligned as base[k] against
// other[k+offset] for every offset within the limit, and a window of
// consecutive aligned items is scored by its mean bit error rate.
type aligner struct {
	window    int // items
	maxOffset int // items
	maxBER    float64
	step      int
}

func newAligner(o Options) aligner {
	a := aligner{
		window:    int(math.Ceil(o.MinSegmentSeconds / fpcalc.ItemSeconds)),
		maxOffset: int(math.Round(o.MaxOffsetSeconds / fpcalc.ItemSeconds)),
		maxBER:    o.MaxBitErrorRate,
		step:      1,
	}
	if a.window < 1 {
		a.window = 1
	}
	if o.Approximate {
		a.step = 2
	}
	return a
}

// match returns the best aligned window of base and other and its bit error
// rate. ok is false when no window is within maxBER.
func (a aligner) match(base, other []uint32) (seg Segment, ber float64, ok bool) {
	if len(base) < a.window || len(other) < a.window {
		return Segment{}, 1, false
	}
	ber = math.Inf(1)
	// Offsets are multiples of step so zero is always tried.
	limit := a.maxOffset - a.maxOffset%a.step
	for off := -limit; off <= limit; off += a.step {
		start := max(0, -off)
		end := min(len(base), len(other)-off)
		if end-start < a.window {
			continue
		}
		at, rate := a.bestWindow(base, other, start, end, off)
		if rate < ber {
			ber = rate
			seg = Segment{BaseStart: at, MatchStart: at + off, Length: a.window}
		}
	}
	if ber > a.maxBER {
		return Segment{}, ber, false
	}
	return seg, ber, true
}

// bestWindow slides a window over the aligned range [start, end) of base and
// returns the start item and mean bit error rate of the lowest scoring one.
// In approximate mode only every second aligned item is sampled.
func (a aligner) bestWindow(base, other []uint32, start, end, off int) (int, float64) {
	samples := make([]int, 0, (end-start+a.step-1)/a.step)
	for k := start; k < end; k += a.step {
		samples = append(samples, bits.OnesCount32(base[k]^other[k+off]))
	}
	width := (a.window + a.step - 1) / a.step
	if width > len(samples) {
		width = len(samples)
	}

	sum := 0
	for _, e := range samples[:width] {
		sum += e
	}
	best, bestAt := sum, 0
	for p := 1; p+width <= len(samples); p++ {
		sum += samples[p+width-1] - samples[p-1]
		if sum < best {
			best, bestAt = sum, p
		}
	}
	return start + bestAt*a.step, float64(best) / float64(32*width)
}
