package reconciler

import (
	"fmt"

	"github.com/fgeck/lenovo-fwprep/internal/models"
)

// Process exit codes.
const (
	ExitOK                   = 0
	ExitFailure              = 1
	ExitWrongManufacturer    = 2
	ExitPasswordLocked       = 3
	ExitSettingsUnreadable   = 4
	ExitBootModeFailed       = 5
	ExitTPMFailed            = 6
	ExitVirtualizationFailed = 7
)

// ExitError is a fatal reconcile failure carrying the process exit code.
type ExitError struct {
	Code int
	Step string
	Err  error
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func preflightError(code int, format string, args ...any) *ExitError {
	return &ExitError{Code: code, Step: "preflight", Err: fmt.Errorf(format, args...)}
}

func stepError(step models.Step, err error) *ExitError {
	return &ExitError{Code: stepExitCode(step), Step: string(step), Err: err}
}

func stepExitCode(step models.Step) int {
	switch step {
	case models.StepSecureBoot:
		return ExitBootModeFailed
	case models.StepTPM:
		return ExitTPMFailed
	case models.StepVirtualization, models.StepIOVirtualization:
		return ExitVirtualizationFailed
	default:
		return ExitFailure
	}
}
