package attendance

import (
	"fmt"
	"strings"
	"time"

	"mokjang/pkg/platform/sentinel"
)

// DayLayout is the canonical calendar-date form all comparisons run on.
const DayLayout = "2006-01-02"

// dayLayouts are the accepted inbound representations, most specific first.
// The date fields are taken as written; an instant's offset is kept, never
// converted, so canonicalization is pure truncation.
var dayLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	DayLayout,
}

// NormalizeDay reduces any supported day representation to canonical
// YYYY-MM-DD. Idempotent: canonical input comes back unchanged.
func NormalizeDay(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dayLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format(DayLayout), nil
		}
	}
	return "", fmt.Errorf("unrecognized day %q: %w", raw, sentinel.ErrInvalidState)
}

// Day formats a time as a canonical day in the time's own location.
func Day(t time.Time) string {
	return t.Format(DayLayout)
}
