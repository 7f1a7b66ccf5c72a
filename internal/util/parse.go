package util

import (
	"errors"
	"strconv"
	"strings"
)

// ErrBadPaging is returned for negative or non-numeric skip/take values.
var ErrBadPaging = errors.New("invalid paging")

// Paging is the offset/limit window used by every list endpoint.
type Paging struct {
	Skip int
	Take int
}

// ParsePaging parses skip/take query values. Missing values default to
// skip=0, take=10; negative or non-numeric values are rejected.
func ParsePaging(skip, take string) (Paging, error) {
	p := Paging{Skip: 0, Take: 10}
	if skip != "" {
		n, err := strconv.Atoi(skip)
		if err != nil || n < 0 {
			return p, ErrBadPaging
		}
		p.Skip = n
	}
	if take != "" {
		n, err := strconv.Atoi(take)
		if err != nil || n < 0 {
			return p, ErrBadPaging
		}
		p.Take = n
	}
	return p, nil
}

// ParseInt parses a string to an integer, returning defaultValue if parsing fails
func ParseInt(s string, defaultValue int) int {
	if val, err := strconv.Atoi(s); err == nil {
		return val
	}
	return defaultValue
}

// ParseUint parses a decimal id string.
func ParseUint(s string) (uint, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(n), nil
}

// ParseFloat parses a string to a float64, returning defaultValue if parsing fails
func ParseFloat(s string, defaultValue float64) float64 {
	if val, err := strconv.ParseFloat(s, 64); err == nil {
		return val
	}
	return defaultValue
}

// Slugify turns a display name into a permalink slug: lowercase, spaces to
// hyphens, everything outside [a-z0-9-_] dropped.
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('-')
		}
	}
	return b.String()
}
