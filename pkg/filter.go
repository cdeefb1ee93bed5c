package lsdups

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// RegexPrefix selects the regular expression strategy for a pattern
const RegexPrefix = "re:"

// Matcher decides whether a filename matches a configured pattern
type Matcher interface {
	Matches(name string) bool
	String() string
}

// globMatcher matches case-sensitive shell globs against the base name
type globMatcher struct {
	pattern string
}

func (g globMatcher) Matches(name string) bool {
	ok, err := filepath.Match(g.pattern, name)
	return err == nil && ok
}

func (g globMatcher) String() string { return g.pattern }

// regexMatcher matches an end-anchored regular expression against the base name
type regexMatcher struct {
	source string
	re     *regexp.Regexp
}

func (r regexMatcher) Matches(name string) bool {
	return r.re.MatchString(name)
}

func (r regexMatcher) String() string { return RegexPrefix + r.source }

// NewMatcher compiles pattern once. Patterns prefixed with "re:" are regular
// expressions anchored at the end of the name; everything else is a glob.
func NewMatcher(pattern string) (Matcher, error) {
	if strings.HasPrefix(pattern, RegexPrefix) {
		source := strings.TrimPrefix(pattern, RegexPrefix)
		re, err := regexp.Compile("(?:" + source + ")$")
		if err != nil {
			return nil, fmt.Errorf("invalid regex pattern %q: %w", source, err)
		}
		return regexMatcher{source: source, re: re}, nil
	}

	// filepath.Match only reports ErrBadPattern while matching, so probe it now
	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("invalid glob pattern %q: %w", pattern, err)
	}
	return globMatcher{pattern: pattern}, nil
}

// PathFilter decides whether a regular file is eligible for comparison
type PathFilter struct {
	include Matcher // nil accepts every name
	skip    Matcher // nil skips nothing
	minSize uint64
}

// NewPathFilter builds the matchers for cfg. Empty patterns are treated as unset.
func NewPathFilter(cfg ScanConfig) (*PathFilter, error) {
	pf := &PathFilter{minSize: cfg.MinSize}

	if cfg.IncludePattern != "" {
		m, err := NewMatcher(cfg.IncludePattern)
		if err != nil {
			return nil, newConfigError("", "include pattern: %w", err)
		}
		pf.include = m
	}

	if cfg.SkipPattern != "" {
		m, err := NewMatcher(cfg.SkipPattern)
		if err != nil {
			return nil, newConfigError("", "skip pattern: %w", err)
		}
		pf.skip = m
	}

	return pf, nil
}

// Accepts reports whether the file at entryPath with entrySize passes every filter.
// Skip takes priority over include.
func (pf *PathFilter) Accepts(entryPath string, entrySize uint64) bool {
	return pf.rejection(entryPath, entrySize) == ""
}

// rejection returns why an entry was rejected, or "" when it is accepted
func (pf *PathFilter) rejection(entryPath string, entrySize uint64) string {
	name := filepath.Base(entryPath)

	if pf.skip != nil && pf.skip.Matches(name) {
		return "matches skip pattern " + pf.skip.String()
	}
	if pf.include != nil && !pf.include.Matches(name) {
		return "does not match pattern " + pf.include.String()
	}
	if entrySize < pf.minSize {
		return fmt.Sprintf("smaller than minimum size %d", pf.minSize)
	}
	return ""
}
