package errs

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"bookchat/internal/pkg/logx"
)

// CustomError is the application error: a stable code, a human-readable message
// and the HTTP status used when it is rendered as a response.
type CustomError struct {
	// Code is the application error code (see constants).
	Code int

	// Message is the formatted description.
	Message string

	// Status is the HTTP status code for this error.
	Status int
}

// Error implements the error interface.
func (e CustomError) Error() string {
	return fmt.Sprintf("error code %d: %s", e.Code, e.Message)
}

// NewError builds a *CustomError from a registered code. details are printf arguments
// for message templates containing verbs. An unregistered code yields ErrUnknown.
func NewError(code int, details ...any) *CustomError {
	templateErr, ok := errorMap[code]
	if !ok {
		logx.Error(
			fmt.Errorf("unregistered error code %d", code),
			"Unknown error code requested",
			"requested_code", code,
		)
		templateErr = errorMap[ErrUnknown]
	}

	customErr := templateErr

	if customErr.Status == 0 {
		customErr.Status = http.StatusOK
	}

	if len(details) > 0 && strings.Contains(customErr.Message, "%") {
		customErr.Message = fmt.Sprintf(customErr.Message, details...)
	}

	return &customErr
}

// CodeOf returns the code carried by err, or ErrUnknown when err is not a *CustomError.
func CodeOf(err error) int {
	var customErr *CustomError
	if errors.As(err, &customErr) {
		return customErr.Code
	}
	return ErrUnknown
}
