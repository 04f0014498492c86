package apierr

import (
	"fmt"
	"net/http"
)

// Error pairs an HTTP status with the message shown to the client.
type Error struct {
	Status  int
	Message string
	Err     error
	// Details are merged into the response body.
	Details map[string]interface{}
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("api error (%d)", e.Status)
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, message string, err error) *Error {
	return &Error{Status: status, Message: message, Err: err}
}

func BadRequest(message string, err error) *Error {
	return New(http.StatusBadRequest, message, err)
}

func Unauthorized(message string) *Error {
	return New(http.StatusUnauthorized, message, nil)
}

func NotFound(message string) *Error {
	return New(http.StatusNotFound, message, nil)
}

// WithDetails returns e with extra fields for the response body.
func (e *Error) WithDetails(details map[string]interface{}) *Error {
	e.Details = details
	return e
}
