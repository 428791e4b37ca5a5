package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a specific error condition
type ErrorCode string

const (
	// Validation errors. Reported to the user, never retried, no document mutation.
	ErrCodeNothingSelected ErrorCode = "NOTHING_SELECTED"
	ErrCodeNoTargets       ErrorCode = "NO_TARGETS"
	ErrCodeMismatch        ErrorCode = "MISMATCH"
	ErrCodeLimitExceeded   ErrorCode = "LIMIT_EXCEEDED"
	ErrCodeAmbiguousTarget ErrorCode = "AMBIGUOUS_TARGET"
	ErrCodeNoTarget        ErrorCode = "NO_TARGET"
	ErrCodeNotFound        ErrorCode = "NOT_FOUND"

	// Geometry errors
	ErrCodeDegenerateRect ErrorCode = "DEGENERATE_RECT"

	// Host document errors
	ErrCodeExternalAPI ErrorCode = "EXTERNAL_API"

	// Folder listing and file read errors
	ErrCodeIO ErrorCode = "IO_ERROR"

	// Configuration errors
	ErrCodeConfigNotFound   ErrorCode = "CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid    ErrorCode = "CONFIG_INVALID"
	ErrCodeConfigValidation ErrorCode = "CONFIG_VALIDATION"

	// General errors
	ErrCodeInternal     ErrorCode = "INTERNAL_ERROR"
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
)

var validationCodes = map[ErrorCode]bool{
	ErrCodeNothingSelected: true,
	ErrCodeNoTargets:       true,
	ErrCodeMismatch:        true,
	ErrCodeLimitExceeded:   true,
	ErrCodeAmbiguousTarget: true,
	ErrCodeNoTarget:        true,
	ErrCodeNotFound:        true,
}

// FrameError represents a structured error with context
type FrameError struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

// Error implements the error interface
func (e *FrameError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *FrameError) Unwrap() error {
	return e.Cause
}

// WithDetail adds a detail to the error
func (e *FrameError) WithDetail(key string, value interface{}) *FrameError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// ToJSON converts the error to JSON
func (e *FrameError) ToJSON() string {
	data, _ := json.MarshalIndent(e, "", "  ")
	return string(data)
}

// New creates a new FrameError
func New(code ErrorCode, message string) *FrameError {
	return &FrameError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with a FrameError
func Wrap(err error, code ErrorCode, message string) *FrameError {
	return &FrameError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Is checks if an error is a specific FrameError code
func Is(err error, code ErrorCode) bool {
	if err == nil {
		return false
	}

	frameErr, ok := err.(*FrameError)
	if !ok {
		// Try to unwrap
		if unwrapper, ok := err.(interface{ Unwrap() error }); ok {
			return Is(unwrapper.Unwrap(), code)
		}
		return false
	}

	return frameErr.Code == code
}

// GetCode extracts the error code from an error
func GetCode(err error) ErrorCode {
	if err == nil {
		return ""
	}

	frameErr, ok := err.(*FrameError)
	if !ok {
		// Try to unwrap
		if unwrapper, ok := err.(interface{ Unwrap() error }); ok {
			return GetCode(unwrapper.Unwrap())
		}
		return ""
	}

	return frameErr.Code
}

// IsValidation reports whether err carries one of the user-facing validation codes.
func IsValidation(err error) bool {
	return validationCodes[GetCode(err)]
}

// As returns the first FrameError in err's chain.
func As(err error) (*FrameError, bool) {
	var frameErr *FrameError
	if stderrors.As(err, &frameErr) {
		return frameErr, true
	}
	return nil, false
}

// Detail returns a detail value from the first FrameError in the chain.
func Detail(err error, key string) (interface{}, bool) {
	frameErr, ok := As(err)
	if !ok {
		return nil, false
	}
	v, ok := frameErr.Details[key]
	return v, ok
}
