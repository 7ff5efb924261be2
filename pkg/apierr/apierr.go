// Package apierr defines the stable error vocabulary shared by the HTTP
// handlers. Every failure a client can observe maps to one machine-readable
// code with a fixed HTTP status, so the JSON error body never depends on
// which internal layer failed.
package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is a machine-readable error category carried in API error bodies.
type Code string

const (
	CodeInvalidFile       Code = "INVALID_FILE"
	CodeFileTooLarge      Code = "FILE_TOO_LARGE"
	CodeInvalidFileType   Code = "INVALID_FILE_TYPE"
	CodeValidationFailed  Code = "VALIDATION_FAILED"
	CodeRateLimitExceeded Code = "RATE_LIMIT_EXCEEDED"
	CodeWriteError        Code = "WRITE_ERROR"
	CodeProcessingFailed  Code = "PROCESSING_FAILED"
	CodeUnknown           Code = "UNKNOWN_ERROR"
)

// statusByCode pins each code to its HTTP status. Codes absent from this map
// do not exist; From falls back to CodeUnknown instead of inventing one.
var statusByCode = map[Code]int{
	CodeInvalidFile:       http.StatusBadRequest,
	CodeFileTooLarge:      http.StatusBadRequest,
	CodeInvalidFileType:   http.StatusBadRequest,
	CodeValidationFailed:  http.StatusBadRequest,
	CodeRateLimitExceeded: http.StatusTooManyRequests,
	CodeWriteError:        http.StatusInternalServerError,
	CodeProcessingFailed:  http.StatusInternalServerError,
	CodeUnknown:           http.StatusInternalServerError,
}

// Error is a classified handler error. Message is safe to send to clients;
// Err keeps the internal cause for logs only.
type Error struct {
	Code    Code
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a classified error with the status pinned to the code.
func New(code Code, message string) *Error {
	return &Error{Code: code, Status: StatusFor(code), Message: message}
}

// Newf is New with fmt-style message formatting.
func Newf(code Code, format string, args ...interface{}) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap attaches an internal cause to a classified error. The cause is kept
// for logging and errors.Is/As, never for the response body.
func Wrap(code Code, message string, err error) *Error {
	e := New(code, message)
	e.Err = err
	return e
}

// From classifies an arbitrary error. Already-classified errors pass through
// unchanged; anything else becomes CodeUnknown with a generic message.
func From(err error) *Error {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return Wrap(CodeUnknown, "An unexpected error occurred", err)
}

// StatusFor returns the HTTP status pinned to a code.
func StatusFor(code Code) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
