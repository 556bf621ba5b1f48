// Package main is the entry point for fwprep.
package main

import (
	"errors"
	"os"

	"github.com/fgeck/lenovo-fwprep/internal/services/reconciler"
)

func main() {
	os.Exit(exitCode(Execute()))
}

// exitCode maps a command error to the documented process exit code.
func exitCode(err error) int {
	if err == nil {
		return reconciler.ExitOK
	}
	var exitErr *reconciler.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return reconciler.ExitFailure
}
