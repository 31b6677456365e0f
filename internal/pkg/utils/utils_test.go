package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateOrderNoShape(t *testing.T) {
	no := GenerateOrderNo()

	require.True(t, strings.HasPrefix(no, "ORD"))
	// "ORD" + 13 millis digits + 8 hex chars.
	assert.Len(t, no, 3+13+8)
}

func TestGenerateOrderNoIsUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		no := GenerateOrderNo()
		require.False(t, seen[no], "duplicate order number %s", no)
		seen[no] = true
	}
}

func TestGeneratePointsTidShape(t *testing.T) {
	tid := GeneratePointsTid()
	assert.True(t, strings.HasPrefix(tid, "POINTS_"))
}

func TestCompactTimestamp(t *testing.T) {
	ts := time.Date(2026, 8, 30, 14, 5, 9, 0, time.UTC)
	assert.Equal(t, "20260830140509", CompactTimestamp(ts))
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "0", FormatNumber(0))
	assert.Equal(t, "100", FormatNumber(100))
	assert.Equal(t, "1,000", FormatNumber(1000))
	assert.Equal(t, "1,234,567", FormatNumber(1234567))
	assert.Equal(t, "-10,000", FormatNumber(-10000))
}
