package phash

import (
	"fmt"
	"strings"

	"github.com/disintegration/imaging"
)

// Algorithm selects how the grayscale grid becomes bits.
type Algorithm int

const (
	// Gradient compares horizontally adjacent pixels (dHash).
	Gradient Algorithm = iota
	// Mean compares every pixel to the grid mean (aHash).
	Mean
	// Block compares block sums to the median of their horizontal band.
	Block
	// DoubleGradient mixes horizontal and vertical neighbor comparisons.
	DoubleGradient
)

var algorithmNames = map[Algorithm]string{
	Gradient:       "gradient",
	Mean:           "mean",
	Block:          "block",
	DoubleGradient: "double_gradient",
}

// ParseAlgorithm maps a configuration name to an Algorithm.
func ParseAlgorithm(name string) (Algorithm, error) {
	needle := strings.ToLower(strings.TrimSpace(name))
	for a, n := range algorithmNames {
		if n == needle {
			return a, nil
		}
	}
	return 0, fmt.Errorf("unknown perceptual hash algorithm %q", name)
}

func (a Algorithm) String() string {
	if n, ok := algorithmNames[a]; ok {
		return n
	}
	return fmt.Sprintf("algorithm(%d)", int(a))
}

// Filter selects the resampling kernel used before hashing.
type Filter int

const (
	Lanczos Filter = iota
	Nearest
	Linear
	Cubic
	Gaussian
)

var filterNames = map[Filter]string{
	Lanczos:  "lanczos",
	Nearest:  "nearest",
	Linear:   "linear",
	Cubic:    "cubic",
	Gaussian: "gaussian",
}

// ParseFilter maps a configuration name to a Filter.
func ParseFilter(name string) (Filter, error) {
	needle := strings.ToLower(strings.TrimSpace(name))
	for f, n := range filterNames {
		if n == needle {
			return f, nil
		}
	}
	return 0, fmt.Errorf("unknown resize filter %q", name)
}

func (f Filter) String() string {
	if n, ok := filterNames[f]; ok {
		return n
	}
	return fmt.Sprintf("filter(%d)", int(f))
}

func (f Filter) resample() imaging.ResampleFilter {
	switch f {
	case Nearest:
		return imaging.NearestNeighbor
	case Linear:
		return imaging.Linear
	case Cubic:
		return imaging.CatmullRom
	case Gaussian:
		return imaging.Gaussian
	default:
		return imaging.Lanczos
	}
}
