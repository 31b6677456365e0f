package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenerateOrderNo builds a unique order number: "ORD" + unix millis + 8 hex
// chars from a UUID. Stays unique under concurrent checkouts within the
// same millisecond.
func GenerateOrderNo() string {
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	return fmt.Sprintf("ORD%d%s", time.Now().UnixMilli(), suffix)
}

// GeneratePointsTid builds the synthetic tid recorded for point usage rows.
func GeneratePointsTid() string {
	return fmt.Sprintf("POINTS_%d", time.Now().UnixMilli())
}

// MillisString returns the current unix milliseconds as a decimal string.
func MillisString() string {
	return fmt.Sprintf("%d", time.Now().UnixMilli())
}

// CompactTimestamp formats t as yyyyMMddHHmmss, the format both gateway
// APIs expect for EdiDate / refund timestamps.
func CompactTimestamp(t time.Time) string {
	return t.Format("20060102150405")
}

// FormatNumber renders n with thousands separators for result pages.
func FormatNumber(n int64) string {
	if n == 0 {
		return "0"
	}
	sign := ""
	if n < 0 {
		sign = "-"
		n = -n
	}
	str := fmt.Sprintf("%d", n)
	result := ""
	for i, c := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			result += ","
		}
		result += string(c)
	}
	return sign + result
}
