package commands

import (
	"errors"
	"fmt"
	"io"

	"todoctl/internal/bulk"
	"todoctl/internal/config"
	"todoctl/internal/exitcode"
	"todoctl/internal/service"
)

// ExitCode maps an error to the process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return exitcode.Success
	case errors.Is(err, service.ErrAuth), errors.Is(err, config.ErrInvalid):
		return exitcode.AuthError
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, service.ErrNotFound),
		errors.Is(err, bulk.ErrMissingTitle),
		errors.Is(err, bulk.ErrNoDataRows):
		return exitcode.UserError
	default:
		return exitcode.BackendError
	}
}

// fail prints err and returns its exit code.
func fail(errOut io.Writer, err error) int {
	fmt.Fprintf(errOut, "error: %v\n", err)
	return ExitCode(err)
}
