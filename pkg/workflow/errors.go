package workflow

import (
	"errors"
	"fmt"
)

var (
	// ErrDeadlock is returned when steps remain but none of them can run.
	ErrDeadlock = errors.New("workflow deadlock: no executable steps remain")

	// ErrDefinitionNotFound is returned for an unknown definition id.
	ErrDefinitionNotFound = errors.New("workflow definition not found")

	// ErrInstanceNotFound is returned for an unknown instance id.
	ErrInstanceNotFound = errors.New("workflow instance not found")

	// ErrInstanceNotRunning is returned when cancelling an instance that already finished.
	ErrInstanceNotRunning = errors.New("workflow instance is not running")

	// ErrInstanceTimeout fails an instance that outlives its definition's timeout.
	ErrInstanceTimeout = errors.New("workflow instance timed out")

	// ErrApprovalDecisionsUnsupported is returned when the approval store cannot record decisions.
	ErrApprovalDecisionsUnsupported = errors.New("approval store does not accept decisions")

	errInstanceCancelled = errors.New("workflow instance cancelled")
	errEngineClosed      = errors.New("workflow engine closed")
)

// StepError reports the step that failed an instance.
type StepError struct {
	StepID string
	Err    error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %s failed: %v", e.StepID, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// IsDeadlock checks if an error reports an unsatisfiable graph.
func IsDeadlock(err error) bool {
	return errors.Is(err, ErrDeadlock)
}
