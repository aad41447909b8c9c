// Package errors provides structured CLI error types for rbrowse.
//
// CLIError wraps errors with user-facing messages, hints, and exit codes
// so every command reports failures the same way.
package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Exit codes for CLI errors.
const (
	ExitSuccess = 0  // Successful execution
	ExitGeneral = 1  // General error
	ExitNetwork = 3  // Network/server error
	ExitConfig  = 4  // Configuration error
	ExitTimeout = 5  // Operation timed out
	ExitUsage   = 64 // Command line usage error (BSD convention)
)

// CLIError represents a user-facing CLI error with actionable guidance.
type CLIError struct {
	// Message is the primary error message shown to the user.
	Message string

	// Hint provides actionable guidance on how to fix the error.
	Hint string

	// Cause is the underlying error, if any.
	Cause error

	// Code is the exit code for the CLI.
	Code int
}

// Error implements the error interface.
func (e *CLIError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *CLIError) Unwrap() error {
	return e.Cause
}

// New creates a new CLIError with the given message and exit code.
func New(code int, message string) *CLIError {
	return &CLIError{Message: message, Code: code}
}

// Wrap wraps an existing error with a CLIError.
func Wrap(code int, message string, cause error) *CLIError {
	return &CLIError{Message: message, Cause: cause, Code: code}
}

// WithHint adds a hint to the error.
func (e *CLIError) WithHint(hint string) *CLIError {
	e.Hint = hint
	return e
}

// As is a convenience function for errors.As with CLIError.
func As(err error, target **CLIError) bool {
	return errors.As(err, target)
}

// ExitCode returns the exit code carried by err, ExitGeneral for other
// errors and ExitSuccess for nil.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var cliErr *CLIError
	if As(err, &cliErr) {
		return cliErr.Code
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ExitTimeout
	}
	return ExitGeneral
}

// --- Common error constructors ---

// InvalidServerURL returns an error for an unusable server address.
func InvalidServerURL(raw string, cause error) *CLIError {
	return &CLIError{
		Message: fmt.Sprintf("Invalid server URL: %q", raw),
		Hint:    "Pass host:port or a full http:// URL, or set server.url in the config file",
		Cause:   cause,
		Code:    ExitUsage,
	}
}

// ServerUnreachable returns an error when the server cannot be reached.
func ServerUnreachable(url string, cause error) *CLIError {
	return &CLIError{
		Message: fmt.Sprintf("Cannot reach server at %s", url),
		Hint:    "Check that the server is running, or run 'rbrowse discover' to find one on your network",
		Cause:   cause,
		Code:    ExitNetwork,
	}
}

// ConnectTimedOut returns an error when the session did not become ready in time.
func ConnectTimedOut(timeout string) *CLIError {
	return &CLIError{
		Message: fmt.Sprintf("No listing received within %s", timeout),
		Hint:    "Increase --timeout or check the server logs",
		Code:    ExitTimeout,
	}
}

// RequestFailed returns an error for a rejected HTTP transfer.
func RequestFailed(op string, status int, cause error) *CLIError {
	hint := "Check the server logs for details"
	switch {
	case status == http.StatusNotFound:
		hint = "Check the remote path with 'rbrowse ls'"
	case status >= http.StatusInternalServerError:
		hint = "The server failed to handle the request; retry or check the server logs"
	}
	return &CLIError{
		Message: fmt.Sprintf("%s failed", op),
		Hint:    hint,
		Cause:   cause,
		Code:    ExitNetwork,
	}
}

// UploadsDisabled returns an error when the server does not accept uploads.
func UploadsDisabled(server string) *CLIError {
	return &CLIError{
		Message: fmt.Sprintf("Server %q does not accept uploads", server),
		Hint:    "Enable uploads in the server configuration",
		Code:    ExitGeneral,
	}
}

// NotATerminal returns an error when the TUI is started without a terminal.
func NotATerminal() *CLIError {
	return &CLIError{
		Message: "The interactive browser needs a terminal",
		Hint:    "Use 'rbrowse ls' or 'rbrowse get' in scripts",
		Code:    ExitUsage,
	}
}

// NoServersFound returns an error when discovery found nothing.
func NoServersFound() *CLIError {
	return &CLIError{
		Message: "No servers found on the local network",
		Hint:    "Make sure the server is running on this network and mDNS traffic is allowed",
		Code:    ExitNetwork,
	}
}

// ConfigFailed returns an error for configuration read or write failures.
func ConfigFailed(operation string, cause error) *CLIError {
	return &CLIError{
		Message: fmt.Sprintf("Failed to %s", operation),
		Hint:    "Check file permissions for your rbrowse config directory",
		Cause:   cause,
		Code:    ExitConfig,
	}
}
