// Package apperrors defines the stable error taxonomy reported to
// callers. Every failure carries a machine-readable kind, a stable
// numeric code and a human-readable message; internal causes are never
// surfaced through it.
package apperrors

import (
	"errors"
	"fmt"
)

// Kind identifies a failure class independent of its message.
type Kind int

const (
	KindUnknown Kind = iota
	KindUserNotFound
	KindInvalidCredentials
	KindBlocked
	KindInvalidToken
	KindExpired
	KindInvalidRefreshToken
	KindInvalidCode
	KindCodeReused
	KindUnauthorized
	KindConflict
)

// Error is the taxonomy error type returned across the service boundary.
type Error struct {
	Kind    Kind
	Code    int
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches taxonomy errors by kind, so callers can compare against a
// constructor result without caring about message details.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// KindOf extracts the taxonomy kind from err, or KindUnknown if err is
// not (wrapping) a taxonomy error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func NewErrUserNotFound(username string) *Error {
	return &Error{Kind: KindUserNotFound, Code: 4040, Message: fmt.Sprintf("user %q not found", username)}
}

func NewErrInvalidCredentials() *Error {
	return &Error{Kind: KindInvalidCredentials, Code: 4011, Message: "invalid credentials"}
}

func NewErrBlocked() *Error {
	return &Error{Kind: KindBlocked, Code: 4031, Message: "authentication blocked"}
}

func NewErrInvalidToken() *Error {
	return &Error{Kind: KindInvalidToken, Code: 4012, Message: "invalid token"}
}

func NewErrExpired() *Error {
	return &Error{Kind: KindExpired, Code: 4013, Message: "token expired"}
}

func NewErrInvalidRefreshToken() *Error {
	return &Error{Kind: KindInvalidRefreshToken, Code: 4014, Message: "invalid refresh token"}
}

func NewErrInvalidCode(username string) *Error {
	return &Error{Kind: KindInvalidCode, Code: 4015, Message: fmt.Sprintf("invalid verification code for user %q", username)}
}

func NewErrCodeReused(username string) *Error {
	return &Error{Kind: KindCodeReused, Code: 4016, Message: fmt.Sprintf("verification code already used for user %q", username)}
}

func NewErrUnauthorized() *Error {
	return &Error{Kind: KindUnauthorized, Code: 4030, Message: "you do not have permission"}
}

func NewErrConflict(message string) *Error {
	return &Error{Kind: KindConflict, Code: 4090, Message: message}
}
