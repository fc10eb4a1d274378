package cmd

import "errors"

// Exit codes for sheetspec CLI
const (
	// ExitSuccess indicates all test cases passed
	ExitSuccess = 0

	// ExitTestFailure indicates one or more test cases failed or were unmatched
	ExitTestFailure = 1

	// ExitParseError indicates an unreadable workbook, collection or report
	ExitParseError = 2

	// ExitConfigError indicates a configuration error
	ExitConfigError = 3

	// ExitNetworkError indicates no request reached a server
	ExitNetworkError = 4

	// ExitUsageError indicates invalid CLI usage
	ExitUsageError = 64
)

// exitError carries the process exit code for a command failure. A nil err
// exits without printing anything.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return ""
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

func withExit(code int, err error) error {
	return &exitError{code: code, err: err}
}

// exitCode maps a command error to a process exit code. Errors that did not
// come from a command body are flag or argument errors raised by cobra.
func exitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return ExitUsageError
}
