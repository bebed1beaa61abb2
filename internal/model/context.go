package model

import (
	"fmt"
	"strings"
)

// Filter is one key/value predicate rendered into a WHERE clause
type Filter struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// ParseFilter parses a "key=value" argument into a Filter.
func ParseFilter(arg string) (Filter, error) {
	key, value, ok := strings.Cut(arg, "=")
	if !ok || strings.TrimSpace(key) == "" {
		return Filter{}, fmt.Errorf("invalid filter %q (expected key=value)", arg)
	}
	return Filter{Key: strings.TrimSpace(key), Value: strings.TrimSpace(value)}, nil
}

// ControlContext scopes generated SQL to a single control. GroupBy names the
// fields the compliance summary aggregates over; when empty, the first
// filter key is used.
type ControlContext struct {
	GroupBy []string `json:"group_by,omitempty"`
	Filters []Filter `json:"filters,omitempty"`
}

// AssessmentContext is the broader filter set shared by all controls in one
// assessment.
type AssessmentContext struct {
	Filters []Filter `json:"filters,omitempty"`
}
