package phash

import (
	"fmt"
	"image"
	"os"
	"slices"

	"github.com/disintegration/imaging"
)

// Hasher computes perceptual hashes with fixed parameters.
type Hasher struct {
	alg    Algorithm
	filter Filter
	side   int
}

// NewHasher validates the parameters.
func NewHasher(alg Algorithm, filter Filter, side int) (*Hasher, error) {
	if _, ok := algorithmNames[alg]; !ok {
		return nil, fmt.Errorf("unknown perceptual hash algorithm %d", int(alg))
	}
	if _, ok := filterNames[filter]; !ok {
		return nil, fmt.Errorf("unknown resize filter %d", int(filter))
	}
	if !ValidSide(side) {
		return nil, fmt.Errorf("hash side %d not in %v", side, Sides)
	}
	return &Hasher{alg: alg, filter: filter, side: side}, nil
}

// Side returns the configured hash side.
func (h *Hasher) Side() int { return h.side }

// Params identifies the hash parameters, for cache keys.
func (h *Hasher) Params() string {
	return fmt.Sprintf("%s:%s:%d", h.alg, h.filter, h.side)
}

// Fingerprint is the hash of one decoded image plus its dimensions.
type Fingerprint struct {
	Hash   Bits
	Width  int
	Height int
}

// HashFile decodes the image at path and hashes it.
func (h *Hasher) HashFile(path string) (Fingerprint, error) {
	f, err := os.Open(path)
	if err != nil {
		return Fingerprint{}, err
	}
	defer f.Close()

	img, err := imaging.Decode(f, imaging.AutoOrientation(true))
	if err != nil {
		return Fingerprint{}, fmt.Errorf("decode %s: %w", path, err)
	}
	bounds := img.Bounds()
	if bounds.Empty() {
		return Fingerprint{}, fmt.Errorf("decode %s: empty image", path)
	}
	return Fingerprint{Hash: h.Hash(img), Width: bounds.Dx(), Height: bounds.Dy()}, nil
}

// Hash reduces img to side² bits.
func (h *Hasher) Hash(img image.Image) Bits {
	out, _ := NewBits(h.side)
	n := h.side
	switch h.alg {
	case Mean:
		g := h.grid(img, n, n)
		var sum float64
		for _, v := range g.pix {
			sum += v
		}
		mean := sum / float64(len(g.pix))
		for i, v := range g.pix {
			if v > mean {
				out.set(i)
			}
		}
	case DoubleGradient:
		g := h.grid(img, n+1, n+1)
		i := 0
		for y := 0; y < n; y += 2 {
			for x := 0; x < n; x++ {
				if g.at(x+1, y) > g.at(x, y) {
					out.set(i)
				}
				i++
			}
		}
		for x := 0; x < n; x += 2 {
			for y := 0; y < n; y++ {
				if g.at(x, y+1) > g.at(x, y) {
					out.set(i)
				}
				i++
			}
		}
	case Block:
		h.blockHash(img, out)
	default:
		g := h.grid(img, n+1, n)
		i := 0
		for y := 0; y < n; y++ {
			for x := 0; x < n; x++ {
				if g.at(x+1, y) > g.at(x, y) {
					out.set(i)
				}
				i++
			}
		}
	}
	return out
}

// blockHash splits a 4n×4n grid into n×n blocks of 4×4 pixels and sets a bit
// for every block brighter than the median of its quarter-height band.
func (h *Hasher) blockHash(img image.Image, out Bits) {
	n := h.side
	g := h.grid(img, 4*n, 4*n)
	sums := make([]float64, n*n)
	for by := 0; by < n; by++ {
		for bx := 0; bx < n; bx++ {
			var s float64
			for y := 4 * by; y < 4*by+4; y++ {
				for x := 4 * bx; x < 4*bx+4; x++ {
					s += g.at(x, y)
				}
			}
			sums[by*n+bx] = s
		}
	}
	bandRows := n / 4
	for band := 0; band < 4; band++ {
		lo, hi := band*bandRows*n, (band+1)*bandRows*n
		m := median(sums[lo:hi])
		for i := lo; i < hi; i++ {
			if sums[i] > m {
				out.set(i)
			}
		}
	}
}

func median(values []float64) float64 {
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

type grid struct {
	w, h int
	pix  []float64
}

func (g grid) at(x, y int) float64 { return g.pix[y*g.w+x] }

// grid converts img to a w×h luminance grid.
func (h *Hasher) grid(img image.Image, w, hgt int) grid {
	small := imaging.Resize(imaging.Grayscale(img), w, hgt, h.filter.resample())
	g := grid{w: w, h: hgt, pix: make([]float64, w*hgt)}
	for y := 0; y < hgt; y++ {
		row := small.Pix[y*small.Stride:]
		for x := 0; x < w; x++ {
			g.pix[y*w+x] = float64(row[4*x])
		}
	}
	return g
}
