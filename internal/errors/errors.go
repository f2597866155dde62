package errors

import (
	"fmt"
	"net/http"

	"github.com/cockroachdb/errors"
)

// Every domain failure maps to 400, missing records included.
var (
	ErrNotFound   = new(ErrCodeNotFound, "resource not found")
	ErrValidation = new(ErrCodeValidation, "validation error")
	ErrDatabase   = new(ErrCodeDatabase, "database error")
	ErrSystem     = new(ErrCodeSystemError, "system error")

	statusCodeMap = map[error]int{
		ErrNotFound:   http.StatusBadRequest,
		ErrValidation: http.StatusBadRequest,
		ErrDatabase:   http.StatusBadRequest,
		ErrSystem:     http.StatusInternalServerError,
	}
)

const (
	ErrCodeNotFound    = "not_found"
	ErrCodeValidation  = "validation_error"
	ErrCodeDatabase    = "database_error"
	ErrCodeSystemError = "system_error"
)

// InternalError represents a domain error
type InternalError struct {
	Code    string // Machine-readable error code
	Message string // Human-readable error message
	Err     error  // Underlying error
}

func (e *InternalError) Error() string {
	if e.Err == nil {
		return e.DisplayError()
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Err.Error())
}

func (e *InternalError) DisplayError() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *InternalError) Unwrap() error {
	return e.Err
}

// Is implements error matching for wrapped errors
func (e *InternalError) Is(target error) bool {
	if target == nil {
		return false
	}

	t, ok := target.(*InternalError)
	if !ok {
		return errors.Is(e.Err, target)
	}

	return e.Code == t.Code
}

func new(code string, message string) *InternalError {
	return &InternalError{
		Code:    code,
		Message: message,
	}
}

func As(err error, target any) bool {
	return errors.As(err, target)
}

func Is(err, reference error) bool {
	return errors.Is(err, reference)
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsDatabase checks if an error is a database error
func IsDatabase(err error) bool {
	return errors.Is(err, ErrDatabase)
}

func HTTPStatusFromErr(err error) int {
	for e, status := range statusCodeMap {
		if errors.Is(err, e) {
			return status
		}
	}
	return http.StatusInternalServerError
}
