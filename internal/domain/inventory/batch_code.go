package inventory

import (
	"fmt"
	"strconv"
	"strings"
)

// Batch code prefixes used by the engine's own mints
const (
	PrefixReceipt    = "BATCH"
	PrefixProduction = "BATCH-PROD"
	PrefixTransfer   = "BATCH-NUMBER"
)

// batchCodeDigits is the minimum width of the numeric suffix
const batchCodeDigits = 4

// FormatBatchCode renders prefix followed by the zero padded counter
func FormatBatchCode(prefix string, counter int) string {
	return fmt.Sprintf("%s%0*d", prefix, batchCodeDigits, counter)
}

// ParseBatchCodeSuffix extracts the counter from a code minted under prefix.
// Codes whose remainder is not purely numeric belong to a different sequence
// (BATCH-PROD0001 is not part of the BATCH sequence) and report false.
func ParseBatchCodeSuffix(prefix, code string) (int, bool) {
	if !strings.HasPrefix(code, prefix) {
		return 0, false
	}
	rest := code[len(prefix):]
	if rest == "" {
		return 0, false
	}
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

// NormalizeBatchPrefix trims and upper-cases a user supplied prefix
func NormalizeBatchPrefix(prefix string) string {
	return strings.ToUpper(strings.TrimSpace(prefix))
}
