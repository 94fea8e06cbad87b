package models

import (
	"fmt"
	"strconv"
	"strings"
)

// IndexRange selects playlist items by index. Nil bounds are open; Start is inclusive and Stop exclusive.
type IndexRange struct {
	Start *int
	Stop  *int
}

// ParseIndexRange parses "start:stop" where either side may be empty. The empty string is the unbounded range.
func ParseIndexRange(s string) (IndexRange, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return IndexRange{}, nil
	}

	left, right, ok := strings.Cut(s, ":")
	if !ok {
		return IndexRange{}, fmt.Errorf("range %q: expected start:stop", s)
	}

	var r IndexRange
	var err error
	if r.Start, err = parseBound(left); err != nil {
		return IndexRange{}, fmt.Errorf("range %q: start: %w", s, err)
	}
	if r.Stop, err = parseBound(right); err != nil {
		return IndexRange{}, fmt.Errorf("range %q: stop: %w", s, err)
	}
	return r, nil
}

func parseBound(s string) (*int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// Contains reports whether start <= i < stop.
func (r IndexRange) Contains(i int) bool {
	if r.Start != nil && i < *r.Start {
		return false
	}
	if r.Stop != nil && i >= *r.Stop {
		return false
	}
	return true
}

// IsZero reports whether both bounds are open.
func (r IndexRange) IsZero() bool {
	return r.Start == nil && r.Stop == nil
}

// String formats the range back into "start:stop"; the unbounded range is "".
func (r IndexRange) String() string {
	if r.IsZero() {
		return ""
	}
	var b strings.Builder
	if r.Start != nil {
		b.WriteString(strconv.Itoa(*r.Start))
	}
	b.WriteByte(':')
	if r.Stop != nil {
		b.WriteString(strconv.Itoa(*r.Stop))
	}
	return b.String()
}
