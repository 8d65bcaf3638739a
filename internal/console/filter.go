package console

import (
	"strings"

	"github.com/oxyadmin/oxyadmin/internal/resource"
)

// Filter narrows a list view. Both conditions must hold.
type Filter struct {
	// Query is matched case-insensitively against name and description.
	Query string
	// Category must equal the record's type; empty matches everything.
	Category string
}

func (f Filter) Matches(rec resource.Record) bool {
	if f.Category != "" && rec.Category() != f.Category {
		return false
	}
	q := strings.ToLower(strings.TrimSpace(f.Query))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(rec.DisplayName()), q) ||
		strings.Contains(strings.ToLower(rec.Summary()), q)
}

// IsZero reports whether the filter lets every record through.
func (f Filter) IsZero() bool {
	return strings.TrimSpace(f.Query) == "" && f.Category == ""
}

// Apply returns the matching records in their original order.
func Apply[T resource.Record](f Filter, records []T) []T {
	out := make([]T, 0, len(records))
	for _, r := range records {
		if f.Matches(r) {
			out = append(out, r)
		}
	}
	return out
}
