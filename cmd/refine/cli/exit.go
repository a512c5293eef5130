// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"errors"
	"fmt"

	"github.com/bureau-foundation/refine/lib/jira"
	"github.com/bureau-foundation/refine/lib/session"
)

// Process exit codes.
const (
	ExitOK                = 0
	ExitFailure           = 1
	ExitUsage             = 2
	ExitAuth              = 3
	ExitInvalidTransition = 4
	ExitFieldRejected     = 5
	ExitTransient         = 6
	ExitNotReady          = 7
)

// ExitError signals a non-zero exit code without printing an extra
// error message. The command has already written its own output, as
// check-ready does when it lists the gaps of a ticket that is not
// ready.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit code %d", e.Code)
}

// ExitCode returns the exit code.
func (e *ExitError) ExitCode() int {
	return e.Code
}

// UsageError is a command line that cannot run: an unknown command or
// flag, a bad flag value, or the wrong number of arguments.
type UsageError struct {
	Err error
}

func (e *UsageError) Error() string { return e.Err.Error() }

func (e *UsageError) Unwrap() error { return e.Err }

// Usage creates a *UsageError.
func Usage(format string, args ...any) *UsageError {
	return &UsageError{Err: fmt.Errorf(format, args...)}
}

// ExitCode maps the error a command returned to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var exitError *ExitError
	if errors.As(err, &exitError) {
		return exitError.Code
	}
	var usageError *UsageError
	switch {
	case errors.As(err, &usageError):
		return ExitUsage
	case jira.IsAuth(err):
		return ExitAuth
	case jira.IsInvalidTransition(err):
		return ExitInvalidTransition
	case jira.IsFieldRejected(err):
		return ExitFieldRejected
	case jira.IsTransient(err):
		return ExitTransient
	case session.IsNotReady(err):
		return ExitNotReady
	default:
		return ExitFailure
	}
}

// Reported is true when the command already wrote everything the user
// needs and the error line should be suppressed.
func Reported(err error) bool {
	var exitError *ExitError
	return errors.As(err, &exitError)
}
