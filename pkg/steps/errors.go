package steps

import (
	"errors"
	"fmt"
)

var (
	// ErrNoDecisionRuleMatched is returned by a decision step whose rules all
	// failed and which has no default arm.
	ErrNoDecisionRuleMatched = errors.New("no decision rule matched")

	// ErrApprovalTimeout is returned when an approval without escalation is
	// not decided before its timeout.
	ErrApprovalTimeout = errors.New("approval timed out")

	// ErrApprovalDue is returned by an ApprovalWaiter when the due time passes
	// with the request still pending.
	ErrApprovalDue = errors.New("approval due time reached")

	// ErrUnsupportedStep is returned for a step whose config type has no executor.
	ErrUnsupportedStep = errors.New("unsupported step configuration")
)

// SubActionError reports the failing sub action of a parallel step.
type SubActionError struct {
	SubStepID string
	Action    string
	Err       error
}

func (e *SubActionError) Error() string {
	return fmt.Sprintf("sub action %s (%s) failed: %v", e.SubStepID, e.Action, e.Err)
}

func (e *SubActionError) Unwrap() error {
	return e.Err
}
