package csvimport

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRowError(t *testing.T) {
	assert.Equal(t, "row 5: quantity must be positive", NewRowError(5, "", "quantity must be positive").Error())
	assert.Equal(t, "row 2: ExpireDate: bad date", NewRowError(2, "ExpireDate", "bad date").Error())
}

func TestErrorCollection(t *testing.T) {
	ec := NewErrorCollection(2)
	for i := 1; i <= 3; i++ {
		ec.Add(NewRowError(i, "", "failed"))
	}

	assert.Len(t, ec.Errors(), 2)
	assert.Equal(t, 3, ec.TotalCount())
	assert.True(t, ec.IsTruncated())
	assert.Equal(t, []string{"row 1: failed", "row 2: failed"}, ec.Messages())
}
