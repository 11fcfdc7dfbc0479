// Package errors defines the error taxonomy shared by the converter, the
// batch service and the CLI.
package errors

import (
	"errors"
	"fmt"
)

// Error codes for the application.
const (
	CodeUnknown               = "UNKNOWN_ERROR"
	CodeInputTooSmall         = "INPUT_TOO_SMALL"
	CodeInputTooLarge         = "INPUT_TOO_LARGE"
	CodeUnrecognizedHeader    = "UNRECOGNIZED_HEADER"
	CodeAlreadyCompressed     = "ALREADY_COMPRESSED"
	CodeStructuralParseFailed = "STRUCTURAL_PARSE_FAILED"
	CodeRelocationIncomplete  = "RELOCATION_INCOMPLETE"
	CodeEncodingFailed        = "ENCODING_FAILED"
	CodeConversionFailed      = "CONVERSION_FAILED"
	CodeInvalidInput          = "INVALID_INPUT"
	CodeConfigError           = "CONFIG_ERROR"
	CodeNotFound              = "NOT_FOUND"
	CodeStorageError          = "STORAGE_ERROR"
	CodeDatabaseError         = "DATABASE_ERROR"
)

// AppError represents an application error with a code and message.
type AppError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is reports whether target is an AppError carrying the same code.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new AppError.
func New(code string, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new AppError with a formatted message.
func Newf(code string, format string, args ...interface{}) *AppError {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap wraps an existing error with an AppError.
func Wrap(code string, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common error instances, usable as errors.Is targets.
var (
	ErrInputTooSmall         = New(CodeInputTooSmall, "input too small")
	ErrInputTooLarge         = New(CodeInputTooLarge, "input too large")
	ErrUnrecognizedHeader    = New(CodeUnrecognizedHeader, "unrecognized header")
	ErrAlreadyCompressed     = New(CodeAlreadyCompressed, "input is already a compressed container")
	ErrStructuralParseFailed = New(CodeStructuralParseFailed, "structural parse failed")
	ErrRelocationIncomplete  = New(CodeRelocationIncomplete, "relocation incomplete")
	ErrEncodingFailed        = New(CodeEncodingFailed, "encoding failed")
	ErrConversionFailed      = New(CodeConversionFailed, "conversion failed")
	ErrInvalidInput          = New(CodeInvalidInput, "invalid input")
	ErrConfigError           = New(CodeConfigError, "configuration error")
	ErrNotFound              = New(CodeNotFound, "resource not found")
	ErrStorageError          = New(CodeStorageError, "storage error")
	ErrDatabaseError         = New(CodeDatabaseError, "database error")
)

// IsInputTooSmall checks if the error is an input-too-small error.
func IsInputTooSmall(err error) bool {
	return errors.Is(err, ErrInputTooSmall)
}

// IsInputTooLarge checks if the error is an input-too-large error.
func IsInputTooLarge(err error) bool {
	return errors.Is(err, ErrInputTooLarge)
}

// IsUnrecognizedHeader checks if the error is an unrecognized-header error.
func IsUnrecognizedHeader(err error) bool {
	return errors.Is(err, ErrUnrecognizedHeader)
}

// IsAlreadyCompressed checks if the error is the already-compressed signal.
func IsAlreadyCompressed(err error) bool {
	return errors.Is(err, ErrAlreadyCompressed)
}

// IsStructuralParseFailed checks if the error is a structural parse failure.
func IsStructuralParseFailed(err error) bool {
	return errors.Is(err, ErrStructuralParseFailed)
}

// IsRelocationIncomplete checks if the error reports unresolved pointer sites.
func IsRelocationIncomplete(err error) bool {
	return errors.Is(err, ErrRelocationIncomplete)
}

// IsEncodingFailed checks if the error is an encoding failure.
func IsEncodingFailed(err error) bool {
	return errors.Is(err, ErrEncodingFailed)
}

// IsConversionFailed checks if the error is a conversion failure.
func IsConversionFailed(err error) bool {
	return errors.Is(err, ErrConversionFailed)
}

// IsNotFound checks if the error is a not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}

// GetErrorMessage extracts the error message from an error.
func GetErrorMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	if err != nil {
		return err.Error()
	}
	return ""
}
