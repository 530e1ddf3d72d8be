package order

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	want := time.Date(2025, time.January, 10, 0, 0, 0, 0, time.UTC)

	for _, raw := range []string{"2025-01-10", " 2025-01-10 ", "2025-01-10T23:59:59Z", "2025-01-10T08:00:00+07:00"} {
		got, err := ParseDate(raw)
		require.NoError(t, err, raw)
		assert.True(t, got.Equal(want), "%s parsed as %s", raw, got)
	}

	for _, raw := range []string{"", "10/01/2025", "2025-02-30", "tomorrow"} {
		_, err := ParseDate(raw)
		assert.Error(t, err, raw)
	}
}
