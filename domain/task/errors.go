package task

import (
	"errors"
	"fmt"
)

var (
	// ErrUserNotFound is returned when the owner does not resolve to a known account.
	ErrUserNotFound = errors.New("user not found")
	// ErrTaskNotFound is returned when no task with the id exists under the owner.
	// A task owned by someone else is reported the same way.
	ErrTaskNotFound = errors.New("task not found")
	// ErrInvalidInput is returned when a title or description fails validation.
	ErrInvalidInput = errors.New("invalid input")
	// ErrStoreUnavailable is returned when the backing store cannot be reached.
	ErrStoreUnavailable = errors.New("task store unavailable")
)

// Wire codes for the sentinel errors.
const (
	CodeUserNotFound     = "user_not_found"
	CodeTaskNotFound     = "task_not_found"
	CodeInvalidInput     = "invalid_input"
	CodeStoreUnavailable = "store_unavailable"
	CodeInternal         = "internal_error"
)

// ErrorInfo is the transport form of a task error.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements error.
func (e *ErrorInfo) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func invalidInput(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, msg)
}

// Code returns the wire code for err, or CodeInternal for unknown errors.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrUserNotFound):
		return CodeUserNotFound
	case errors.Is(err, ErrTaskNotFound):
		return CodeTaskNotFound
	case errors.Is(err, ErrInvalidInput):
		return CodeInvalidInput
	case errors.Is(err, ErrStoreUnavailable):
		return CodeStoreUnavailable
	default:
		return CodeInternal
	}
}

// ToErrorInfo converts err to its transport form. A nil err yields nil.
func ToErrorInfo(err error) *ErrorInfo {
	if err == nil {
		return nil
	}
	return &ErrorInfo{Code: Code(err), Message: err.Error()}
}

// FromCode rebuilds an error received over a transport so that errors.Is
// keeps working against the sentinels.
func FromCode(code, message string) error {
	var sentinel error
	switch code {
	case CodeUserNotFound:
		sentinel = ErrUserNotFound
	case CodeTaskNotFound:
		sentinel = ErrTaskNotFound
	case CodeInvalidInput:
		sentinel = ErrInvalidInput
	case CodeStoreUnavailable:
		sentinel = ErrStoreUnavailable
	default:
		if message == "" {
			message = code
		}
		return errors.New(message)
	}
	if message == "" || message == sentinel.Error() {
		return sentinel
	}
	return &remoteError{sentinel: sentinel, message: message}
}

// Err converts the transport form back into an error.
func (e *ErrorInfo) Err() error {
	if e == nil {
		return nil
	}
	return FromCode(e.Code, e.Message)
}

type remoteError struct {
	sentinel error
	message  string
}

func (e *remoteError) Error() string { return e.message }
func (e *remoteError) Unwrap() error { return e.sentinel }
