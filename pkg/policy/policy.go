package policy

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrInvalidPolicy is returned when an exclusion pattern does not compile
var ErrInvalidPolicy = errors.New("invalid exclusion policy")

// Matcher decides which unit names are excluded from alerting.
// The zero value and a nil *Matcher exclude nothing.
type Matcher struct {
	pattern string
	re      *regexp.Regexp
}

// Compile builds a Matcher from an operator supplied regular expression.
// An empty pattern excludes nothing; it is not treated as ".*".
func Compile(pattern string) (*Matcher, error) {
	if pattern == "" {
		return &Matcher{}, nil
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidPolicy, pattern, err)
	}
	return &Matcher{pattern: pattern, re: re}, nil
}

// MustCompile is like Compile but panics on an invalid pattern
func MustCompile(pattern string) *Matcher {
	m, err := Compile(pattern)
	if err != nil {
		panic(err)
	}
	return m
}

// Matches reports whether name is excluded. The pattern is searched for
// anywhere in name; anchors must be written explicitly.
func (m *Matcher) Matches(name string) bool {
	if m == nil || m.re == nil {
		return false
	}
	return m.re.MatchString(name)
}

// Filter returns the names that are not excluded, preserving order
func (m *Matcher) Filter(names []string) []string {
	kept := make([]string, 0, len(names))
	for _, name := range names {
		if !m.Matches(name) {
			kept = append(kept, name)
		}
	}
	return kept
}

// Pattern returns the source pattern, empty when nothing is excluded
func (m *Matcher) Pattern() string {
	if m == nil {
		return ""
	}
	return m.pattern
}
