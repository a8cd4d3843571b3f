// Package exitcode defines exit codes for the CLI.
package exitcode

const (
	// Success indicates successful completion.
	Success = 0

	// UserError indicates a user error (bad args, not found, validation).
	UserError = 1

	// AuthError indicates an auth/config error.
	AuthError = 2

	// BackendError indicates a store/network error.
	BackendError = 3

	// PartialFailure indicates a bulk operation where some items failed.
	PartialFailure = 4
)
