package domain

import (
	"errors"
	"fmt"
)

// Application error codes.
// These form a closed taxonomy; callers branch on codes, not messages.
const (
	ECONFLICT     = "conflict"            // duplicate resource (invoice number, preset name)
	EINTERNAL     = "internal"            // unexpected failure (hide details)
	EINVALID      = "invalid"             // validation error (bad input)
	ENOTFOUND     = "not_found"           // resource not found
	ESTATE        = "invalid_state"       // operation illegal for the entity's current status
	EINSUFFICIENT = "insufficient_credit" // requested credit exceeds the deposit's available balance
	EAPPLIED      = "already_applied"     // late fee has already been applied
)

// Error represents an application error with a code and message.
// It implements the error interface and supports error wrapping.
type Error struct {
	// Code is a machine-readable error code (e.g., EINVALID, ENOTFOUND).
	Code string

	// Message is a human-readable error message safe to show to users.
	Message string

	// Op is the operation where the error occurred (e.g., "invoice.record_payment").
	// Used for debugging and logging, not shown to users.
	Op string

	// Err is the underlying error, if any. Used for error wrapping.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		if e.Op != "" {
			return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
		}
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

// Unwrap implements error unwrapping for errors.Is and errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// ErrorCode extracts the error code from an error.
// Returns EINTERNAL for non-domain errors.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}

	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}

	return EINTERNAL
}

// ErrorMessage extracts a user-facing message from an error.
// For internal errors, returns a generic message to avoid leaking details.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}

	var e *Error
	if errors.As(err, &e) {
		if e.Code == EINTERNAL {
			return "An internal error occurred. Please try again later."
		}
		return e.Message
	}

	return "An internal error occurred. Please try again later."
}

// IsCode returns true if err has the given error code.
func IsCode(err error, code string) bool {
	return ErrorCode(err) == code
}

// Errorf creates a new domain error with formatted message.
// Example: domain.Errorf(domain.EINVALID, "invoice.create", "unknown frequency: %s", freq)
func Errorf(code, op, format string, args ...interface{}) error {
	return &Error{
		Code:    code,
		Op:      op,
		Message: fmt.Sprintf(format, args...),
	}
}

// NotFound creates a not found error for a resource.
// Example: domain.NotFound("invoice.get", "invoice", 42)
func NotFound(op, resource string, id int64) error {
	return &Error{
		Code:    ENOTFOUND,
		Op:      op,
		Message: fmt.Sprintf("%s not found: %d", resource, id),
	}
}

// Invalid creates a validation error for a single issue.
// Example: domain.Invalid("invoice.create", "at least one line item is required")
func Invalid(op, message string) error {
	return &Error{
		Code:    EINVALID,
		Op:      op,
		Message: message,
	}
}

// InvalidState creates an error for an operation that is illegal in the
// entity's current status.
// Example: domain.InvalidState("invoice.update", "only draft invoices can be edited")
func InvalidState(op, message string) error {
	return &Error{
		Code:    ESTATE,
		Op:      op,
		Message: message,
	}
}

// InsufficientCredit creates an error for a credit application that exceeds
// the deposit's available balance. The message carries the available amount
// so callers can render it directly.
func InsufficientCredit(op string, requested, available float64) error {
	return &Error{
		Code:    EINSUFFICIENT,
		Op:      op,
		Message: fmt.Sprintf("requested credit %.2f exceeds available deposit balance %.2f", requested, available),
	}
}

// AlreadyApplied creates an error for a repeated late-fee application.
func AlreadyApplied(op, message string) error {
	return &Error{
		Code:    EAPPLIED,
		Op:      op,
		Message: message,
	}
}

// Conflict creates a conflict error.
func Conflict(op, message string) error {
	return &Error{
		Code:    ECONFLICT,
		Op:      op,
		Message: message,
	}
}

// Internal creates an internal error (wraps underlying error).
// The message shown to users will be generic; the underlying error is for logging.
// Example: domain.Internal(err, "invoice.create", "failed to save invoice")
func Internal(err error, op, message string) error {
	return &Error{
		Code:    EINTERNAL,
		Op:      op,
		Message: message,
		Err:     err,
	}
}
