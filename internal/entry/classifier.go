package entry

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Rules describes which files a tool considers.
type Rules struct {
	MinSize            uint64
	MaxSize            uint64 // 0 disables the upper bound
	AllowedExtensions  []string
	ExcludedExtensions []string
	ExcludedPaths      []string // glob patterns matched against the full path and the base name
	ReferenceDirs      []string
}

// Reason explains why a record was rejected.
type Reason string

const (
	ReasonAccepted  Reason = ""
	ReasonTooSmall  Reason = "below minimum size"
	ReasonTooLarge  Reason = "above maximum size"
	ReasonExtension Reason = "extension not allowed"
	ReasonExcluded  Reason = "matches exclusion pattern"
)

// Classifier applies Rules to file records.
type Classifier struct {
	rules    Rules
	allowed  map[string]struct{}
	excluded map[string]struct{}
	refs     []string
}

// NewClassifier validates rules and returns a ready classifier.
func NewClassifier(rules Rules) (*Classifier, error) {
	if rules.MaxSize != 0 && rules.MaxSize < rules.MinSize {
		return nil, fmt.Errorf("max size %d below min size %d", rules.MaxSize, rules.MinSize)
	}
	for _, pattern := range rules.ExcludedPaths {
		if _, err := filepath.Match(pattern, ""); err != nil {
			return nil, fmt.Errorf("exclusion pattern %q: %w", pattern, err)
		}
	}
	c := &Classifier{
		rules:    rules,
		allowed:  extensionSet(rules.AllowedExtensions),
		excluded: extensionSet(rules.ExcludedExtensions),
	}
	for _, dir := range rules.ReferenceDirs {
		if dir = strings.TrimSpace(dir); dir != "" {
			c.refs = append(c.refs, filepath.Clean(dir))
		}
	}
	return c, nil
}

func extensionSet(exts []string) map[string]struct{} {
	if len(exts) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		e := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")
		if e != "" {
			set[e] = struct{}{}
		}
	}
	return set
}

// Eligible reports whether rec passes the rules and, if not, why.
func (c *Classifier) Eligible(rec FileRecord) (bool, Reason) {
	if rec.Size < c.rules.MinSize {
		return false, ReasonTooSmall
	}
	if c.rules.MaxSize != 0 && rec.Size > c.rules.MaxSize {
		return false, ReasonTooLarge
	}
	if !c.ExtensionAllowed(rec.Path) {
		return false, ReasonExtension
	}
	if c.PathExcluded(rec.Path) {
		return false, ReasonExcluded
	}
	return true, ReasonAccepted
}

// ExtensionAllowed applies only the extension lists.
func (c *Classifier) ExtensionAllowed(path string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if _, denied := c.excluded[ext]; denied {
		return false
	}
	if c.allowed == nil {
		return true
	}
	_, ok := c.allowed[ext]
	return ok
}

// PathExcluded reports whether path (a file or a directory) matches one of
// the exclusion patterns.
func (c *Classifier) PathExcluded(path string) bool {
	base := filepath.Base(path)
	for _, pattern := range c.rules.ExcludedPaths {
		if ok, _ := filepath.Match(pattern, path); ok {
			return true
		}
		if ok, _ := filepath.Match(pattern, base); ok {
			return true
		}
	}
	return false
}

// InReference reports whether path lives under one of the reference directories.
func (c *Classifier) InReference(path string) bool {
	clean := filepath.Clean(path)
	for _, ref := range c.refs {
		if clean == ref || strings.HasPrefix(clean, ref+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// Tag returns rec with Reference set from the reference directories.
func (c *Classifier) Tag(rec FileRecord) FileRecord {
	rec.Reference = rec.Reference || c.InReference(rec.Path)
	return rec
}
