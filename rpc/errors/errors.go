// Package errors describes the handful of failures a component operation can report to
// the caller. Each error carries the HTTP status that best describes it so that the gateway
// (and 'github.com/monadicstack/respond') can reply with the right status without any
// extra mapping code in your handlers.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// RPCError is a failure with a human-readable message and the HTTP status that most
// closely matches it. A post that could not be located is a 404, a garbled call is a 400.
type RPCError struct {
	// HTTPStatus is the HTTP status code that most closely describes this error.
	HTTPStatus int `json:"status"`
	// Message is the human-readable error message.
	Message string `json:"message"`
}

// Error returns the underlying error message that describes this failure.
func (err RPCError) Error() string {
	return err.Message
}

// Status returns the most relevant HTTP status code to return for this error.
func (err RPCError) Status() int {
	return err.HTTPStatus
}

type errorWithStatus interface {
	Status() int
}

type errorWithStatusCode interface {
	StatusCode() int
}

// New creates an error with an arbitrary status. Prefer NotFound(), BadRequest() and
// friends; this is for the odd status that none of them cover.
func New(status int, messageFormat string, args ...interface{}) RPCError {
	return RPCError{
		HTTPStatus: status,
		Message:    fmt.Sprintf(messageFormat, args...),
	}
}

// Status digs through the error chain for a Status() or StatusCode() method. Errors that
// have neither are treated as 500s.
func Status(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var errStatus errorWithStatus
	if errors.As(err, &errStatus) {
		return errStatus.Status()
	}

	var errStatusCode errorWithStatusCode
	if errors.As(err, &errStatusCode) {
		return errStatusCode.StatusCode()
	}
	return http.StatusInternalServerError
}

// Unexpected is the 500-style catch-all for failures you don't know what to do with.
func Unexpected(messageFormat string, args ...interface{}) RPCError {
	return New(http.StatusInternalServerError, messageFormat, args...)
}

// IsUnexpected returns true if the underlying HTTP status code of 'err' is 500.
func IsUnexpected(err error) bool {
	return Status(err) == http.StatusInternalServerError
}

// BadRequest is a 400-style error for calls that are ill-formed: a junk body, an id that
// is not a number, an operation name we don't recognize.
func BadRequest(messageFormat string, args ...interface{}) RPCError {
	return New(http.StatusBadRequest, messageFormat, args...)
}

// IsBadRequest returns true if the underlying HTTP status code of 'err' is 400.
func IsBadRequest(err error) bool {
	return Status(err) == http.StatusBadRequest
}

// NotFound is a 404-style error that indicates that some post could not be located.
func NotFound(messageFormat string, args ...interface{}) RPCError {
	return New(http.StatusNotFound, messageFormat, args...)
}

// IsNotFound returns true if the underlying HTTP status code of 'err' is 404.
func IsNotFound(err error) bool {
	return Status(err) == http.StatusNotFound
}
