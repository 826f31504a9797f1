package production

import (
	"fmt"
	"strconv"
	"time"
)

// orderNumberDigits is the minimum width of the daily counter
const orderNumberDigits = 4

// OrderNumberPrefix is the per-day prefix of generated order numbers,
// e.g. "PO-20260302-"
func OrderNumberPrefix(day time.Time) string {
	return "PO-" + day.Format("20060102") + "-"
}

// FormatOrderNumber renders prefix followed by the zero padded counter
func FormatOrderNumber(prefix string, counter int) string {
	return fmt.Sprintf("%s%0*d", prefix, orderNumberDigits, counter)
}

// ParseOrderNumberSuffix extracts the counter of a number generated under
// prefix. Hand-entered numbers that merely share the prefix report false.
func ParseOrderNumberSuffix(prefix, number string) (int, bool) {
	if len(number) <= len(prefix) || number[:len(prefix)] != prefix {
		return 0, false
	}
	rest := number[len(prefix):]
	for _, r := range rest {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(rest)
	if err != nil {
		return 0, false
	}
	return n, true
}
