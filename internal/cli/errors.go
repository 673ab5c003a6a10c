// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Error display and exit codes for vibe commands.
//
// Handlers always return errors and never exit. main hands the error to
// HandleErrorAndExit, which prints it once and picks the exit code.
package cli

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/bears-chj7/studying-vibe/internal/backend"
	"github.com/bears-chj7/studying-vibe/internal/config"
	"github.com/bears-chj7/studying-vibe/internal/tasks"
	"github.com/bears-chj7/studying-vibe/internal/ui/styles"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	ExitSuccess       = 0
	ExitGeneralError  = 1
	ExitUsageError    = 2
	ExitConfigError   = 3
	ExitNetworkError  = 5
	ExitRejectedError = 6
	ExitNotFoundError = 7
	ExitTimeoutError  = 8
	ExitCanceled      = 130
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// UsageError is a malformed command line.
type UsageError struct {
	Message string
}

func (e *UsageError) Error() string {
	return e.Message
}

func usageErrorf(format string, args ...any) error {
	return &UsageError{Message: fmt.Sprintf(format, args...)}
}

// TaskFailedError is returned when an ingestion task ends Failed. Its
// outcome has already been shown to the user.
type TaskFailedError struct {
	Snapshot tasks.Snapshot
}

func (e *TaskFailedError) Error() string {
	return e.Snapshot.TerminalMessage
}

// ErrorType exposes the task's failure category to GetExitCode.
func (e *TaskFailedError) ErrorType() backend.ErrorType {
	return e.Snapshot.ErrorType
}

// =============================================================================
// DISPLAY
// =============================================================================

// DisplayError writes err to w, as a JSON envelope in JSON mode.
// Task failures were already rendered and are skipped.
func DisplayError(w io.Writer, err error, jsonMode bool) {
	if err == nil {
		return
	}
	var taskErr *TaskFailedError
	if errors.As(err, &taskErr) {
		return
	}
	if jsonMode {
		NewJSONErrorResponse("", err).Write(w)
		return
	}
	fmt.Fprintln(w, styles.RenderError(err.Error()))
}

// HandleErrorAndExit displays err and exits with its exit code.
func HandleErrorAndExit(err error, jsonMode bool) {
	if err == nil {
		return
	}
	out := io.Writer(os.Stderr)
	if jsonMode {
		out = os.Stdout
	}
	DisplayError(out, err, jsonMode)
	os.Exit(GetExitCode(err))
}

// GetExitCode maps an error to the process exit code.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var usageErr *UsageError
	if errors.As(err, &usageErr) {
		return ExitUsageError
	}

	var validateErrs config.ValidateErrors
	if errors.As(err, &validateErrs) {
		return ExitConfigError
	}

	errType := backend.TypeOf(err)
	var taskErr *TaskFailedError
	if errors.As(err, &taskErr) {
		errType = taskErr.ErrorType()
	}

	switch errType {
	case backend.ErrTypeInvalidRequest:
		return ExitUsageError
	case backend.ErrTypeConnection:
		return ExitNetworkError
	case backend.ErrTypeServerRejected:
		var clientErr *backend.ClientError
		if errors.As(err, &clientErr) && clientErr.StatusCode == http.StatusNotFound {
			return ExitNotFoundError
		}
		return ExitRejectedError
	case backend.ErrTypeTimeout:
		return ExitTimeoutError
	case backend.ErrTypeCanceled:
		return ExitCanceled
	}
	return ExitGeneralError
}
