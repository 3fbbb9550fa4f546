// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Error types, display and exit codes for docent commands.
//
// Handlers always return errors; Execute displays them once and maps them
// to an exit code.

package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/jeranaias/docent-tui/internal/api"
	"github.com/jeranaias/docent-tui/internal/config"
	"github.com/jeranaias/docent-tui/internal/conversation"
	"github.com/jeranaias/docent-tui/internal/session"
	"github.com/jeranaias/docent-tui/internal/storage"
	"github.com/jeranaias/docent-tui/internal/validate"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0
	// ExitGeneralError indicates a general/unknown error
	ExitGeneralError = 1
	// ExitUsageError indicates invalid arguments or input that failed validation
	ExitUsageError = 2
	// ExitConfigError indicates a bad configuration file or value
	ExitConfigError = 3
	// ExitAuthError indicates a missing, expired or rejected session
	ExitAuthError = 4
	// ExitNetworkError indicates the backend could not be reached or failed
	ExitNetworkError = 5
	// ExitNotReadyError indicates the document is still being indexed
	ExitNotReadyError = 6
	// ExitNotFoundError indicates a resource was not found
	ExitNotFoundError = 7
	// ExitTimeoutError indicates an operation timed out
	ExitTimeoutError = 8
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// CommandError represents a CLI command error with context.
type CommandError struct {
	Command string // e.g. "docs"
	Action  string // e.g. "upload"
	Reason  string
	Err     error
}

func (e *CommandError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s failed: %s: %v", e.Command, e.Action, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s %s failed: %s", e.Command, e.Action, e.Reason)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// ValidationError represents bad user input.
type ValidationError struct {
	Field   string
	Value   string
	Reason  string
	Example string // optional
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	if e.Value != "" {
		msg += fmt.Sprintf(" (got: %s)", e.Value)
	}
	if e.Example != "" {
		msg += fmt.Sprintf("\nExample: %s", e.Example)
	}
	return msg
}

// ConfigError wraps a configuration failure.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string {
	return "configuration error: " + e.Err.Error()
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewCommandError creates a new command error.
func NewCommandError(command, action, reason string, err error) error {
	return &CommandError{Command: command, Action: action, Reason: reason, Err: err}
}

// NewValidationError creates a new validation error.
func NewValidationError(field, value, reason string) error {
	return &ValidationError{Field: field, Value: value, Reason: reason}
}

// NewValidationErrorWithExample creates a validation error with an example.
func NewValidationErrorWithExample(field, value, reason, example string) error {
	return &ValidationError{Field: field, Value: value, Reason: reason, Example: example}
}

// ErrMissingArgument creates an error for a missing required argument.
func ErrMissingArgument(argName, usage string) error {
	return NewValidationErrorWithExample(argName, "", "required argument missing", usage)
}

// ErrUnknownSubcommand reports a subcommand the command does not have.
func ErrUnknownSubcommand(command, sub string, valid []string) error {
	return NewValidationErrorWithExample("subcommand", sub,
		fmt.Sprintf("%s has no subcommand %q", command, sub),
		fmt.Sprintf("docent %s %v", command, valid))
}

// =============================================================================
// DISPLAY
// =============================================================================

// DisplayError writes err to w: a JSON error response in JSON mode, a
// styled line otherwise.
func DisplayError(w io.Writer, command string, err error, jsonMode bool) {
	if err == nil {
		return
	}
	if jsonMode {
		DisplayErrorJSON(w, command, err)
		return
	}
	fmt.Fprintf(w, "%s %s\n", ErrorStyle.Render("[ERROR]"), errorText(err))
	if hint := errorHint(err); hint != "" {
		fmt.Fprintln(w, DimStyle.Render(hint))
	}
}

// DisplayErrorJSON writes err as a JSONResponse with error details.
func DisplayErrorJSON(w io.Writer, command string, err error) {
	resp := NewJSONErrorResponse(command, err)
	resp.ErrorType = errorType(err)
	resp.ExitCode = GetExitCode(err)

	var fields validate.Errors
	if errors.As(err, &fields) {
		resp.Fields = make(map[string]string, len(fields))
		for _, fe := range fields {
			if _, seen := resp.Fields[fe.Field]; !seen {
				resp.Fields[fe.Field] = fe.Message
			}
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(resp)
}

// errorText prefers the backend's own message for API failures.
func errorText(err error) string {
	var apiErr *api.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}

func errorHint(err error) string {
	switch {
	case errors.Is(err, session.ErrNoCredential),
		errors.Is(err, session.ErrExpired),
		errors.Is(err, api.ErrUnauthorized):
		return "Run `docent login` to sign in."
	case errors.Is(err, api.ErrNetwork):
		return "Is the backend running? Check api.base_url with `docent config get api.base_url`."
	case errors.Is(err, storage.ErrNotCached):
		return "Open the document online once (docent history <id>) to cache it."
	}
	return ""
}

func errorType(err error) string {
	switch GetExitCode(err) {
	case ExitUsageError:
		return "validation_error"
	case ExitConfigError:
		return "config_error"
	case ExitAuthError:
		return "auth_error"
	case ExitNetworkError:
		return "network_error"
	case ExitNotReadyError:
		return "not_ready_error"
	case ExitNotFoundError:
		return "not_found_error"
	case ExitTimeoutError:
		return "timeout_error"
	}
	return "generic_error"
}

// =============================================================================
// EXIT CODE MAPPING
// =============================================================================

// GetExitCode maps an error onto its exit code.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var validationErr *ValidationError
	var fieldErrs validate.Errors
	var configErr *ConfigError
	var configFields config.ValidateErrors

	switch {
	case errors.As(err, &validationErr), errors.As(err, &fieldErrs),
		errors.Is(err, api.ErrUnsupportedFileType),
		errors.Is(err, api.ErrEmptyFile),
		errors.Is(err, api.ErrFileTooLarge):
		return ExitUsageError
	case errors.As(err, &configErr), errors.As(err, &configFields):
		return ExitConfigError
	case errors.Is(err, session.ErrNoCredential),
		errors.Is(err, session.ErrExpired),
		errors.Is(err, api.ErrUnauthorized):
		return ExitAuthError
	case errors.Is(err, conversation.ErrNotReady):
		return ExitNotReadyError
	case errors.Is(err, api.ErrNotFound), errors.Is(err, storage.ErrNotCached),
		errors.Is(err, fs.ErrNotExist):
		return ExitNotFoundError
	case errors.Is(err, api.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return ExitTimeoutError
	case errors.Is(err, api.ErrNetwork), errors.Is(err, api.ErrServer):
		return ExitNetworkError
	case errors.Is(err, api.ErrBadRequest):
		return ExitUsageError
	}
	return ExitGeneralError
}
