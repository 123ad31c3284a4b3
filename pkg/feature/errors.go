package feature

import (
	"fmt"
	"strconv"
	"strings"
)

// DomainError reports a feature value that is impossible for its field.
type DomainError struct {
	Field string  `json:"field" yaml:"field"`
	Value float64 `json:"value" yaml:"value"`
	Rule  string  `json:"rule" yaml:"rule"`
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("invalid %s value %s: %s", e.Field, strconv.FormatFloat(e.Value, 'g', -1, 64), e.Rule)
}

// SchemaError reports pre-encoded records that lack required feature
// columns or carry non-numeric values in them.
type SchemaError struct {
	Missing []string `json:"missing,omitempty" yaml:"missing,omitempty"`
	Invalid []string `json:"invalid,omitempty" yaml:"invalid,omitempty"`
}

func (e *SchemaError) Error() string {
	parts := make([]string, 0, 2)
	if len(e.Missing) > 0 {
		parts = append(parts, "missing fields: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "non-numeric fields: "+strings.Join(e.Invalid, ", "))
	}
	if len(parts) == 0 {
		return "schema error"
	}
	return strings.Join(parts, "; ")
}

// Merge folds other into e keeping canonical column order and no duplicates.
func (e *SchemaError) Merge(other *SchemaError) {
	if other == nil {
		return
	}
	e.Missing = mergeOrdered(e.Missing, other.Missing)
	e.Invalid = mergeOrdered(e.Invalid, other.Invalid)
}

func mergeOrdered(a, b []string) []string {
	if len(b) == 0 {
		return a
	}
	seen := toSet(a)
	for _, v := range b {
		seen[v] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for _, name := range AllFeatures {
		if _, ok := seen[name]; ok {
			out = append(out, name)
		}
	}
	return out
}
