package lock

import (
	"context"
	"errors"

	"github.com/erp/warehouse/internal/domain/shared"
)

// acquireError reports a key that could not be taken before the deadline.
// Cancellation by the caller is passed through unchanged.
func acquireError(key string, cause error) error {
	if errors.Is(cause, context.Canceled) {
		return cause
	}
	return shared.NewDomainError(shared.CodeConcurrencyConflict, "timed out waiting for lock "+key).
		WithDetail("key", key)
}
