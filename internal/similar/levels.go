package similar

import (
	"fmt"
	"strings"
)

// Level is a named similarity threshold.
type Level int

const (
	Identical Level = iota
	VeryHigh
	High
	Medium
	Small
	VerySmall
	Minimal
)

var levelNames = []string{"identical", "very_high", "high", "medium", "small", "very_small", "minimal"}

// ParseLevel maps a configuration name to a Level.
func ParseLevel(name string) (Level, error) {
	needle := strings.ToLower(strings.TrimSpace(name))
	needle = strings.ReplaceAll(needle, "-", "_")
	for i, n := range levelNames {
		if n == needle {
			return Level(i), nil
		}
	}
	return 0, fmt.Errorf("unknown similarity level %q", name)
}

func (l Level) String() string {
	if l >= 0 && int(l) < len(levelNames) {
		return levelNames[l]
	}
	return fmt.Sprintf("level(%d)", int(l))
}

func (l Level) MarshalText() ([]byte, error) { return []byte(l.String()), nil }

// ceilings holds the maximum Hamming distance per hash side for the levels
// very_high through minimal.
var ceilings = map[int][6]int{
	8:  {1, 2, 5, 7, 14, 20},
	16: {2, 5, 15, 30, 40, 40},
	32: {4, 10, 20, 40, 40, 40},
	64: {6, 20, 40, 40, 40, 40},
}

// MaxDistance returns the largest Hamming distance level allows for hashes of
// the given side.
func MaxDistance(side int, level Level) (int, error) {
	row, ok := ceilings[side]
	if !ok {
		return 0, fmt.Errorf("hash size %d has no similarity table", side)
	}
	if level == Identical {
		return 0, nil
	}
	if level < Identical || level > Minimal {
		return 0, fmt.Errorf("unknown similarity level %d", int(level))
	}
	return row[level-1], nil
}
