// Package errors provides centralized error definitions and error handling
// utilities for the mailslot codebase. It defines the operation error
// taxonomy, typed errors with context wrapping, and classification helpers.
//
// # Error Types
//
// The package provides two categories of errors:
//
// Sentinel errors represent the outcome taxonomy of registry operations:
//   - ErrAlreadyOpen: the mailslot is already held by an opener
//   - ErrNotOpen: release of a mailslot that is not open
//   - ErrIndexOutOfRange: the index does not address any mailslot
//   - ErrMailboxFull: a push was rejected because the mailslot is at capacity
//   - ErrMessageTooLarge: a push exceeded the per-message size bound
//   - ErrBusy: guard acquisition was cancelled before the lock was obtained
//   - ErrCapacityExceeded: every mailslot is already counted as open
//
// Typed errors carry structured context:
//   - MailslotError: errors from registry and store operations
//   - ProtocolError: errors from the TCP dispatch front end
//
// # Usage
//
// Creating errors:
//
//	err := errors.NewMailslotError("open failed", errors.ErrAlreadyOpen).
//	    WithOp("open").WithIndex(7)
//
// Checking errors:
//
//	if errors.Is(err, errors.ErrAlreadyOpen) { ... }
//
//	var msErr *errors.MailslotError
//	if errors.As(err, &msErr) { ... }
//
//	if errors.IsRetryable(err) { ... }
//
// # Error Classification
//
// Errors can be classified by severity and behavior:
//   - Retryable: transient errors that may succeed on retry (ErrBusy)
//   - UserFacing: errors safe to relay to protocol clients
//   - Severity: Debug, Info, Warning, Error, Critical
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityDebug is for errors that are useful for debugging but not critical.
	SeverityDebug Severity = iota
	// SeverityInfo is for informational errors that don't indicate a problem.
	SeverityInfo
	// SeverityWarning is for errors that might indicate a problem but aren't critical.
	SeverityWarning
	// SeverityError is for errors that indicate a real problem.
	SeverityError
	// SeverityCritical is for errors that require immediate attention.
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Registry lifecycle sentinel errors
var (
	// ErrAlreadyOpen indicates the mailslot is already held by an opener.
	ErrAlreadyOpen = New("mailslot already open")
	// ErrNotOpen indicates a release of a mailslot that is not open.
	ErrNotOpen = New("mailslot not open")
	// ErrIndexOutOfRange indicates the index does not address any mailslot.
	ErrIndexOutOfRange = New("mailslot index out of range")
	// ErrCapacityExceeded indicates every mailslot is already counted as open.
	// Defensive: unreachable through the registry's own accounting.
	ErrCapacityExceeded = New("no mailslot available to open")
)

// Message store sentinel errors
var (
	// ErrMailboxFull indicates a push was rejected because the mailslot
	// holds its maximum number of messages. The message is discarded.
	ErrMailboxFull = New("mailslot full")
	// ErrMessageTooLarge indicates a push exceeded the per-message size
	// bound. The message is rejected before any copy takes place.
	ErrMessageTooLarge = New("message exceeds maximum size")
)

// Guard sentinel errors
var (
	// ErrBusy indicates guard acquisition was cancelled while waiting,
	// typically because the caller's context expired.
	ErrBusy = New("mailslot busy")
)

// General sentinel errors
var (
	// ErrCanceled indicates that an operation was canceled.
	ErrCanceled = New("operation canceled")
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
)

// -----------------------------------------------------------------------------
// Base Error Implementation
// -----------------------------------------------------------------------------

// baseError provides common functionality for all typed error types.
type baseError struct {
	message    string
	cause      error
	severity   Severity
	retryable  bool
	userFacing bool
}

// Error returns the error message.
func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// Is checks if this error matches the target.
func (e *baseError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// Severity returns the error severity.
func (e *baseError) Severity() Severity {
	return e.severity
}

// IsRetryable returns whether the error is retryable.
func (e *baseError) IsRetryable() bool {
	return e.retryable
}

// IsUserFacing returns whether the error is safe to show users.
func (e *baseError) IsUserFacing() bool {
	return e.userFacing
}

// -----------------------------------------------------------------------------
// Typed Errors
// -----------------------------------------------------------------------------

// MailslotError represents errors from registry and store operations.
//
// Example:
//
//	err := errors.NewMailslotError("open failed", errors.ErrAlreadyOpen)
//	err = err.WithOp("open").WithIndex(7)
//	fmt.Println(err) // "mailslot error [op=open, index=7]: open failed: mailslot already open"
type MailslotError struct {
	baseError
	Op    string
	Index int
}

// NewMailslotError creates a new MailslotError. The index defaults to -1
// (not set) until WithIndex is called.
func NewMailslotError(message string, cause error) *MailslotError {
	retryable := errors.Is(cause, ErrBusy)
	return &MailslotError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityWarning,
			retryable:  retryable,
			userFacing: true,
		},
		Index: -1,
	}
}

// WithOp adds the operation name (open, release, read, write, clear)
// to the error context.
func (e *MailslotError) WithOp(op string) *MailslotError {
	e.Op = op
	return e
}

// WithIndex adds the mailslot index to the error context.
func (e *MailslotError) WithIndex(index int) *MailslotError {
	e.Index = index
	return e
}

// WithSeverity sets the error severity.
func (e *MailslotError) WithSeverity(s Severity) *MailslotError {
	e.severity = s
	return e
}

// Error returns the formatted error message.
func (e *MailslotError) Error() string {
	var parts []string
	if e.Op != "" {
		parts = append(parts, fmt.Sprintf("op=%s", e.Op))
	}
	if e.Index >= 0 {
		parts = append(parts, fmt.Sprintf("index=%d", e.Index))
	}

	prefix := "mailslot error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("mailslot error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *MailslotError) Is(target error) bool {
	if _, ok := target.(*MailslotError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// ProtocolError represents errors from the TCP dispatch front end.
//
// Example:
//
//	err := errors.NewProtocolError("malformed command", errors.ErrInvalidInput)
//	err = err.WithCommand("WRITE").WithRemote("127.0.0.1:51002")
type ProtocolError struct {
	baseError
	Command string
	Remote  string
}

// NewProtocolError creates a new ProtocolError.
func NewProtocolError(message string, cause error) *ProtocolError {
	return &ProtocolError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityWarning,
			retryable:  false,
			userFacing: true,
		},
	}
}

// WithCommand adds the protocol command verb to the error context.
func (e *ProtocolError) WithCommand(cmd string) *ProtocolError {
	e.Command = cmd
	return e
}

// WithRemote adds the client address to the error context.
func (e *ProtocolError) WithRemote(addr string) *ProtocolError {
	e.Remote = addr
	return e
}

// Error returns the formatted error message.
func (e *ProtocolError) Error() string {
	var parts []string
	if e.Command != "" {
		parts = append(parts, fmt.Sprintf("command=%s", e.Command))
	}
	if e.Remote != "" {
		parts = append(parts, fmt.Sprintf("remote=%s", e.Remote))
	}

	prefix := "protocol error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("protocol error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *ProtocolError) Is(target error) bool {
	if _, ok := target.(*ProtocolError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Error Classification Helpers
// -----------------------------------------------------------------------------

// classified is the common interface implemented by the typed errors above.
type classified interface {
	error
	Severity() Severity
	IsRetryable() bool
	IsUserFacing() bool
}

// IsRetryable returns true if the error represents a transient condition
// that may succeed on retry. ErrBusy is the only retryable condition in
// the operation taxonomy: the guard holder will eventually release.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var ce classified
	if As(err, &ce) {
		return ce.IsRetryable()
	}

	return Is(err, ErrBusy)
}

// IsUserFacing returns true if the error message is safe to relay to
// clients of the dispatch layer. All taxonomy sentinels are user-facing;
// wrapped internal errors are not.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}

	var ce classified
	if As(err, &ce) {
		return ce.IsUserFacing()
	}

	for _, sentinel := range []error{
		ErrAlreadyOpen, ErrNotOpen, ErrIndexOutOfRange, ErrCapacityExceeded,
		ErrMailboxFull, ErrMessageTooLarge, ErrBusy, ErrInvalidInput,
	} {
		if Is(err, sentinel) {
			return true
		}
	}

	return false
}

// GetSeverity returns the severity level of the error.
// Returns SeverityError for errors that carry no classification.
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityDebug
	}

	var ce classified
	if As(err, &ce) {
		return ce.Severity()
	}

	return SeverityError
}

// -----------------------------------------------------------------------------
// Convenience Constructors
// -----------------------------------------------------------------------------

// Wrap wraps an error with additional context message.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
