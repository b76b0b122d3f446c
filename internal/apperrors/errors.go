package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation      Code = "VALIDATION"
	CodeUnauthenticated Code = "UNAUTHENTICATED"
	CodeDuplicateEdge   Code = "DUPLICATE_EDGE"
	CodeNotAParticipant Code = "NOT_A_PARTICIPANT"
	CodeNotFound        Code = "NOT_FOUND"
	CodeDatastore       Code = "DATASTORE"
)

// AppError is the error type every service returns to the HTTP layer.
type AppError struct {
	Code      Code   `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
	Cause     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Cause }

// Is matches on code and message so wrapped copies of the sentinels below
// still compare equal.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Code == e.Code && t.Message == e.Message
}

func New(code Code, message string) error {
	return &AppError{Code: code, Message: message}
}

func Validation(msg string) error {
	return New(CodeValidation, msg)
}

func NotFound(msg string) error {
	return New(CodeNotFound, msg)
}

// Datastore wraps an underlying query failure. Retryable marks failures that
// may succeed on a second attempt (connection loss, serialization, deadlock).
func Datastore(msg string, cause error, retryable bool) error {
	return &AppError{Code: CodeDatastore, Message: msg, Cause: cause, Retryable: retryable}
}

var (
	ErrUnauthenticated = New(CodeUnauthenticated, "unauthorized")
	ErrDuplicateEdge   = New(CodeDuplicateEdge, "match already exists")
	ErrNotAParticipant = New(CodeNotAParticipant, "you are not a participant in this conversation")
	ErrSelfMatch       = Validation("cannot match with yourself")
)

// CodeOf returns the code of the first AppError in the chain, or CodeDatastore
// for anything unclassified.
func CodeOf(err error) Code {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeDatastore
}

// IsRetryable reports whether err is a datastore failure worth retrying.
func IsRetryable(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Retryable
}

// HTTPStatus maps an error to the response status.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeUnauthenticated:
		return http.StatusUnauthorized
	case CodeDuplicateEdge:
		return http.StatusConflict
	case CodeNotAParticipant:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage is the human-readable message safe to return to clients.
func PublicMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "an unexpected error occurred"
}
