// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Error types and exit codes for the locktower CLI.
//
// Scripts drive locktower in CI, so failures map to stable exit codes:
// a timed-out wait is distinguishable from an unreachable coordinator
// without parsing stderr.
package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jeranaias/locktower/internal/client"
)

// Exit codes returned to the shell.
const (
	ExitSuccess        = 0 // command completed
	ExitGeneralError   = 1 // unclassified failure
	ExitUsageError     = 2 // bad flags or arguments
	ExitConfigError    = 3 // configuration load/save/validate failure
	ExitAuthError      = 4 // server rejected the bearer token
	ExitNetworkError   = 5 // coordinator unreachable or connection lost
	ExitCancelledError = 6 // interrupted by the user or context
	ExitNotFoundError  = 7 // named thing does not exist
	ExitTimeoutError   = 8 // lock wait exceeded its deadline
)

// CommandError wraps a failure with the command that produced it.
type CommandError struct {
	Command string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// ValidationError reports a bad argument or flag value.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// NotFoundError reports a missing resource, key or file.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("not found: %s", e.Resource)
}

// GetExitCode maps an error onto a shell exit code.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	// Typed CLI errors first
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return ExitUsageError
	}
	var notFoundErr *NotFoundError
	if errors.As(err, &notFoundErr) {
		return ExitNotFoundError
	}

	// Client errors carry their own taxonomy
	var clientErr *client.ClientError
	if errors.As(err, &clientErr) {
		switch clientErr.Type {
		case client.ErrTypeTimeout:
			return ExitTimeoutError
		case client.ErrTypeCancelled:
			return ExitCancelledError
		case client.ErrTypeServerDown, client.ErrTypeConnection, client.ErrTypeRateLimited:
			return ExitNetworkError
		case client.ErrTypeUnauthorized:
			return ExitAuthError
		case client.ErrTypeInvalidRequest:
			return ExitUsageError
		}
	}

	// Fall back to message content for wrapped stdlib errors
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timed out") || strings.Contains(msg, "timeout"):
		return ExitTimeoutError
	case strings.Contains(msg, "cancelled") || strings.Contains(msg, "canceled"):
		return ExitCancelledError
	case strings.Contains(msg, "unauthorized") || strings.Contains(msg, "authentication"):
		return ExitAuthError
	case strings.Contains(msg, "connection") || strings.Contains(msg, "unreachable") || strings.Contains(msg, "dial"):
		return ExitNetworkError
	case strings.Contains(msg, "not found") || strings.Contains(msg, "no such"):
		return ExitNotFoundError
	case strings.Contains(msg, "config"):
		return ExitConfigError
	}

	return ExitGeneralError
}
