package production

import (
	"fmt"

	"github.com/erp/warehouse/internal/domain/shared"
)

// Status is the lifecycle state of a production order. Only the four
// declared values exist; ParseStatus rejects anything else.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusFinished   Status = "FINISHED"
	StatusCancel     Status = "CANCEL"
)

// AllStatuses lists every status in lifecycle order
func AllStatuses() []Status {
	return []Status{StatusPending, StatusProcessing, StatusFinished, StatusCancel}
}

// ParseStatus converts a stored or user supplied value into a Status
func ParseStatus(v string) (Status, error) {
	s := Status(v)
	if !s.IsValid() {
		return "", shared.NewValidationError("unknown production order status %q", v)
	}
	return s, nil
}

// IsValid checks if the status is one of the declared values
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusFinished, StatusCancel:
		return true
	}
	return false
}

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// IsTerminal reports whether no transition leaves s
func (s Status) IsTerminal() bool {
	return s == StatusFinished || s == StatusCancel
}

// CanTransitionTo checks if the status can transition to the target status
func (s Status) CanTransitionTo(target Status) bool {
	switch s {
	case StatusPending:
		return target == StatusProcessing || target == StatusCancel
	case StatusProcessing:
		return target == StatusFinished
	case StatusFinished, StatusCancel:
		return false
	}
	return false
}

// checkTransition returns INVALID_STATE_TRANSITION when s cannot move to target
func (s Status) checkTransition(target Status) error {
	if s.CanTransitionTo(target) {
		return nil
	}
	return shared.NewDomainError(shared.CodeInvalidStateTransition,
		fmt.Sprintf("cannot move production order from %s to %s", s, target)).
		WithDetail("from", s.String()).
		WithDetail("to", target.String())
}
