package invest

import (
	"errors"
	"fmt"
)

// Step-order errors.
var (
	ErrNoTemplate     = errors.New("select an investment template first")
	ErrNoTerms        = errors.New("investment terms have not been completed")
	ErrBundleNotReady = errors.New("contract generation has not completed")
	ErrWrongStep      = errors.New("action not available at this step")
)

// ValidationError rejects one terms field.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string { return e.Msg }

// PhaseError reports the pipeline phase that failed.
type PhaseError struct {
	Phase Phase
	Err   error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Phase, e.Err)
}

func (e *PhaseError) Unwrap() error { return e.Err }
