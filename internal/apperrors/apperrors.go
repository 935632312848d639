package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error kinds. Match them with errors.Is.
var (
	ErrValidation        = errors.New("validation failed")
	ErrIllegalTransition = errors.New("illegal status transition")
	ErrConflict          = errors.New("concurrent modification")
	ErrNotFound          = errors.New("not found")
	ErrStorage           = errors.New("storage unavailable")
)

// Error carries one of the kinds above together with the failing operation.
type Error struct {
	Kind    error
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.Error()
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Op == "" {
		return msg
	}
	return e.Op + ": " + msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func Validation(op, message string) error {
	return &Error{Kind: ErrValidation, Op: op, Message: message}
}

func IllegalTransition(op string, from, to string) error {
	return &Error{Kind: ErrIllegalTransition, Op: op, Message: fmt.Sprintf("cannot move offer from %s to %s", from, to)}
}

func Conflict(op, message string) error {
	return &Error{Kind: ErrConflict, Op: op, Message: message}
}

func NotFound(op, resource string) error {
	return &Error{Kind: ErrNotFound, Op: op, Message: resource + " not found"}
}

func Storage(op string, err error) error {
	return &Error{Kind: ErrStorage, Op: op, Message: ErrStorage.Error(), Err: err}
}

// Message returns the human readable part of err without the operation prefix.
func Message(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return err.Error()
}

// StatusCode maps an error kind to the HTTP status the admin client expects.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrIllegalTransition):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// Code is the machine readable error code rendered in API responses.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "VALIDATION_ERROR"
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrConflict):
		return "ALREADY_REVIEWED"
	case errors.Is(err, ErrIllegalTransition):
		return "ILLEGAL_TRANSITION"
	case errors.Is(err, ErrStorage):
		return "STORAGE_ERROR"
	}
	return "INTERNAL_ERROR"
}
