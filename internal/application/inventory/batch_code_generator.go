package inventory

import (
	"context"
	"fmt"

	"github.com/erp/warehouse/internal/domain/inventory"
	"github.com/erp/warehouse/internal/domain/shared"
)

// MaxCodeProbes bounds how far a sequence probes past taken codes
const MaxCodeProbes = 10000

// CodeSequence hands out batch codes for one prefix. The first call seeds the
// counter from the highest stored suffix; later calls continue from there and
// never return a code this sequence already issued.
//
// A sequence is not safe for concurrent use. Callers serialize on
// BatchCodeKey(prefix) through the TransactionScope.
type CodeSequence struct {
	prefix string
	next   int
	seeded bool
	issued map[string]struct{}
}

// NewCodeSequence creates a sequence for prefix
func NewCodeSequence(prefix string) *CodeSequence {
	return &CodeSequence{
		prefix: prefix,
		issued: make(map[string]struct{}),
	}
}

// Prefix returns the sequence prefix
func (s *CodeSequence) Prefix() string {
	return s.prefix
}

// Issued returns how many codes the sequence has handed out
func (s *CodeSequence) Issued() int {
	return len(s.issued)
}

// Next returns the next free code under the prefix
func (s *CodeSequence) Next(ctx context.Context, batches inventory.StockBatchRepository) (string, error) {
	if s.prefix == "" {
		return "", shared.NewValidationError("batch code prefix is required")
	}
	if !s.seeded {
		maxSuffix, err := batches.MaxCodeSuffix(ctx, s.prefix)
		if err != nil {
			return "", fmt.Errorf("read max code suffix for %s: %w", s.prefix, err)
		}
		s.next = maxSuffix + 1
		s.seeded = true
	}

	for i := 0; i < MaxCodeProbes; i++ {
		code := inventory.FormatBatchCode(s.prefix, s.next)
		s.next++
		if _, taken := s.issued[code]; taken {
			continue
		}
		exists, err := batches.ExistsByCode(ctx, code)
		if err != nil {
			return "", fmt.Errorf("check batch code %s: %w", code, err)
		}
		if exists {
			continue
		}
		s.issued[code] = struct{}{}
		return code, nil
	}

	return "", shared.NewDomainError(shared.CodeDuplicateCode,
		fmt.Sprintf("no free batch code under prefix %s after %d attempts", s.prefix, MaxCodeProbes)).
		WithDetail("prefix", s.prefix)
}
