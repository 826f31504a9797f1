package inventory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatBatchCode(t *testing.T) {
	assert.Equal(t, "BATCH0001", FormatBatchCode("BATCH", 1))
	assert.Equal(t, "BATCH-PROD0042", FormatBatchCode(PrefixProduction, 42))
	assert.Equal(t, "BATCH12345", FormatBatchCode("BATCH", 12345))
}

func TestParseBatchCodeSuffix(t *testing.T) {
	tests := []struct {
		prefix string
		code   string
		want   int
		ok     bool
	}{
		{"BATCH", "BATCH0007", 7, true},
		{"BATCH", "BATCH10000", 10000, true},
		{"BATCH", "BATCH-PROD0001", 0, false},
		{"BATCH", "BATCH", 0, false},
		{"BATCH", "LOT0001", 0, false},
		{"BATCH-PROD", "BATCH-PROD0003", 3, true},
		{"BATCH", "BATCH00A1", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			got, ok := ParseBatchCodeSuffix(tt.prefix, tt.code)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
