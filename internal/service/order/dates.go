package order

import (
	"fmt"
	"strings"
	"time"

	"github.com/Additional-Code/stitchbook/internal/entity"
)

// Bounds used when a pending query omits startDate or endDate.
var (
	DefaultRangeStart = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)
	DefaultRangeEnd   = time.Date(2100, time.December, 31, 0, 0, 0, 0, time.UTC)
)

// ParseDate accepts YYYY-MM-DD or RFC 3339 and returns the calendar date.
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return entity.DateOf(t), nil
	}
	return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", raw)
}
