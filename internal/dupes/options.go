package dupes

import (
	"errors"
	"fmt"
	"strings"

	"twinfind/internal/config"
	"twinfind/internal/hashing"
)

// ErrInvalidOptions wraps every option validation failure.
var ErrInvalidOptions = errors.New("invalid duplicate finder options")

// Method selects what makes two files duplicates.
type Method int

const (
	MethodHash Method = iota
	MethodSize
	MethodName
	MethodSizeName
)

var methodNames = map[Method]string{
	MethodHash:     "hash",
	MethodSize:     "size",
	MethodName:     "name",
	MethodSizeName: "size_name",
}

// ParseMethod maps a configuration name to a Method.
func ParseMethod(name string) (Method, error) {
	needle := strings.ToLower(strings.TrimSpace(name))
	for m, n := range methodNames {
		if n == needle {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown method %q", ErrInvalidOptions, name)
}

func (m Method) String() string {
	if n, ok := methodNames[m]; ok {
		return n
	}
	return fmt.Sprintf("method(%d)", int(m))
}

func (m Method) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// DefaultPartialHashBytes is the prefix window read before a full hash.
const DefaultPartialHashBytes = 16 * 1024

// Options configures a Finder.
type Options struct {
	Method             Method
	Algorithm          hashing.Algorithm
	PartialHashBytes   int64
	CaseSensitiveNames bool
	Workers            int
	// ReferenceMode restructures groups around reference-folder members.
	ReferenceMode bool
}

// Validate rejects unusable option combinations before any I/O.
func (o Options) Validate() error {
	if _, ok := methodNames[o.Method]; !ok {
		return fmt.Errorf("%w: unknown method %d", ErrInvalidOptions, int(o.Method))
	}
	if !o.Algorithm.Valid() {
		return fmt.Errorf("%w: unknown hash algorithm %d", ErrInvalidOptions, int(o.Algorithm))
	}
	if o.PartialHashBytes <= 0 {
		return fmt.Errorf("%w: partial hash window must be positive (got %d)", ErrInvalidOptions, o.PartialHashBytes)
	}
	if o.Workers < 0 {
		return fmt.Errorf("%w: workers must not be negative", ErrInvalidOptions)
	}
	return nil
}

// OptionsFromConfig builds options from the [dupes] and [scan] sections.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	method, err := ParseMethod(cfg.Dupes.Method)
	if err != nil {
		return Options{}, err
	}
	alg, err := hashing.ParseAlgorithm(cfg.Dupes.HashAlgorithm)
	if err != nil {
		return Options{}, fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}
	window := int64(cfg.Dupes.PartialHashBytes)
	if window == 0 {
		window = DefaultPartialHashBytes
	}
	opts := Options{
		Method:             method,
		Algorithm:          alg,
		PartialHashBytes:   window,
		CaseSensitiveNames: cfg.Dupes.CaseSensitiveNames,
		Workers:            cfg.Scan.Workers,
		ReferenceMode:      len(cfg.Scan.ReferenceDirs) > 0,
	}
	return opts, opts.Validate()
}
