// Package id parses and formats repository identifiers.
// Entities use "syn<N>", optionally suffixed with ".<version>".
// Wiki pages and file handles use plain decimal ids.
package id

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	synIDPattern   = regexp.MustCompile(`^(?i:syn)(\d+)(?:\.(\d+))?$`)
	numericPattern = regexp.MustCompile(`^\d+$`)
)

// Format formats an entity id from its number
func Format(n int64) string {
	return fmt.Sprintf("syn%d", n)
}

// WithVersion formats an entity id with a version suffix
func WithVersion(entityID string, version int) string {
	return fmt.Sprintf("%s.%d", entityID, version)
}

// Parse parses an entity id and returns its number and optional version
func Parse(s string) (int64, *int, error) {
	s = strings.TrimSpace(s)
	m := synIDPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, nil, fmt.Errorf("invalid entity ID format: %s", s)
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, nil, fmt.Errorf("invalid entity ID format: %s", s)
	}
	if m[2] == "" {
		return n, nil, nil
	}
	v, err := strconv.Atoi(m[2])
	if err != nil {
		return 0, nil, fmt.Errorf("invalid entity version: %s", s)
	}
	return n, &v, nil
}

// Normalize returns the canonical lowercase id and the optional version
func Normalize(s string) (string, *int, error) {
	n, v, err := Parse(s)
	if err != nil {
		return "", nil, err
	}
	return Format(n), v, nil
}

// IsSynID checks if a string is a valid entity id
func IsSynID(s string) bool {
	_, _, err := Parse(s)
	return err == nil
}

// IsNumeric checks if a string is a plain decimal id (wiki page or file handle)
func IsNumeric(s string) bool {
	return numericPattern.MatchString(strings.TrimSpace(s))
}

// ParseNumeric parses a wiki page or file handle id
func ParseNumeric(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if !numericPattern.MatchString(s) {
		return 0, fmt.Errorf("invalid numeric ID: %q", s)
	}
	return strconv.ParseInt(s, 10, 64)
}
