package auth

import (
	"errors"
	"fmt"
)

// Wire codes for auth failures.
const (
	CodeInvalidEmail       = "invalid_email"
	CodeWeakPassword       = "weak_password"
	CodePasswordTooLong    = "password_too_long"
	CodeUserExists         = "user_exists"
	CodeUserNotFound       = "user_not_found"
	CodeInvalidCredentials = "invalid_credentials"
	CodeInvalidToken       = "invalid_token"
	CodeTokenExpired       = "token_expired"
	CodeInternal           = "internal_error"
)

var codeToErr = map[string]error{
	CodeInvalidEmail:       ErrInvalidEmail,
	CodeWeakPassword:       ErrWeakPassword,
	CodePasswordTooLong:    ErrPasswordTooLong,
	CodeUserExists:         ErrUserExists,
	CodeUserNotFound:       ErrUserNotFound,
	CodeInvalidCredentials: ErrInvalidCredentials,
	CodeInvalidToken:       ErrInvalidToken,
	CodeTokenExpired:       ErrExpiredToken,
}

// ErrorInfo is the transport form of an auth failure.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements error.
func (e *ErrorInfo) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Err rebuilds the sentinel error the code stands for.
func (e *ErrorInfo) Err() error {
	if e == nil {
		return nil
	}
	if sentinel, ok := codeToErr[e.Code]; ok {
		return sentinel
	}
	return errors.New(e.Message)
}

func toErrorInfo(err error) *ErrorInfo {
	if err == nil {
		return nil
	}
	for code, sentinel := range codeToErr {
		if errors.Is(err, sentinel) {
			return &ErrorInfo{Code: code, Message: sentinel.Error()}
		}
	}
	return &ErrorInfo{Code: CodeInternal, Message: err.Error()}
}
