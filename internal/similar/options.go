package similar

import (
	"errors"
	"fmt"

	"twinfind/internal/config"
	"twinfind/internal/phash"
)

// ErrInvalidOptions wraps every option validation failure.
var ErrInvalidOptions = errors.New("invalid image similarity options")

// Linkage selects how neighbour relations become groups.
type Linkage int

const (
	// Representative groups each unvisited image with its unvisited
	// neighbours. Every member is within the threshold of the representative.
	Representative Linkage = iota
	// Chained groups connected components of the neighbour relation.
	Chained
)

// ParseLinkage maps a configuration name to a Linkage.
func ParseLinkage(name string) (Linkage, error) {
	switch name {
	case "", "representative":
		return Representative, nil
	case "chained":
		return Chained, nil
	}
	return 0, fmt.Errorf("unknown linkage %q", name)
}

func (l Linkage) String() string {
	if l == Chained {
		return "chained"
	}
	return "representative"
}

// Options configures a Finder.
type Options struct {
	Algorithm phash.Algorithm
	Filter    phash.Filter
	HashSize  int
	Level     Level
	// MaxDistance lowers the level ceiling when non-negative.
	MaxDistance     int
	Linkage         Linkage
	// ExcludeSameSize drops group members whose byte size matches a member
	// already kept in that group.
	ExcludeSameSize bool
	Workers         int
	ReferenceMode   bool
}

// DefaultOptions mirrors the configuration defaults.
func DefaultOptions() Options {
	return Options{
		Algorithm:   phash.Gradient,
		Filter:      phash.Lanczos,
		HashSize:    16,
		Level:       High,
		MaxDistance: -1,
	}
}

// Validate rejects unusable combinations before any image is decoded.
func (o Options) Validate() error {
	if !phash.ValidSide(o.HashSize) {
		return fmt.Errorf("%w: hash size %d not in %v", ErrInvalidOptions, o.HashSize, phash.Sides)
	}
	ceiling, err := MaxDistance(o.HashSize, o.Level)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}
	if o.MaxDistance > ceiling {
		return fmt.Errorf("%w: max distance %d exceeds the %s ceiling %d for hash size %d",
			ErrInvalidOptions, o.MaxDistance, o.Level, ceiling, o.HashSize)
	}
	if o.Linkage != Representative && o.Linkage != Chained {
		return fmt.Errorf("%w: unknown linkage %d", ErrInvalidOptions, int(o.Linkage))
	}
	if _, err := phash.NewHasher(o.Algorithm, o.Filter, o.HashSize); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}
	return nil
}

// Threshold is the effective query radius.
func (o Options) Threshold() int {
	ceiling, err := MaxDistance(o.HashSize, o.Level)
	if err != nil {
		return 0
	}
	if o.MaxDistance >= 0 && o.MaxDistance < ceiling {
		return o.MaxDistance
	}
	return ceiling
}

// OptionsFromConfig builds options from the [images] and [scan] sections.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	alg, err := phash.ParseAlgorithm(cfg.Images.Algorithm)
	if err != nil {
		return Options{}, fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}
	filter, err := phash.ParseFilter(cfg.Images.Filter)
	if err != nil {
		return Options{}, fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}
	level, err := ParseLevel(cfg.Images.Similarity)
	if err != nil {
		return Options{}, fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}
	linkage, err := ParseLinkage(cfg.Images.Linkage)
	if err != nil {
		return Options{}, fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}
	opts := Options{
		Algorithm:       alg,
		Filter:          filter,
		HashSize:        cfg.Images.HashSize,
		Level:           level,
		MaxDistance:     cfg.Images.MaxDistance,
		Linkage:         linkage,
		ExcludeSameSize: cfg.Images.ExcludeSameSize,
		Workers:         cfg.Scan.Workers,
		ReferenceMode:   len(cfg.Scan.ReferenceDirs) > 0,
	}
	return opts, opts.Validate()
}
