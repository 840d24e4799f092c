package api

import (
	"errors"
	"fmt"
	"net/http"
)

// Op names a Session Client operation.
type Op string

const (
	OpRegister           Op = "register"
	OpLogin              Op = "login"
	OpLogout             Op = "logout"
	OpListEmails         Op = "list emails"
	OpGetProfile         Op = "get profile"
	OpDownloadAttachment Op = "download attachment"
)

// MsgUnreachable is the message for requests that got no response at all.
const MsgUnreachable = "Unable to reach the mail service"

// fallbackMessages are used when a rejection carries no usable detail.
var fallbackMessages = map[Op]string{
	OpRegister:           "Registration failed",
	OpLogin:              "Login failed",
	OpLogout:             "Logout failed",
	OpListEmails:         "Failed to fetch emails",
	OpGetProfile:         "Failed to fetch profile",
	OpDownloadAttachment: "Failed to download attachment",
}

// FallbackMessage returns the fixed error message for op.
func FallbackMessage(op Op) string {
	if msg, ok := fallbackMessages[op]; ok {
		return msg
	}
	return "Request failed"
}

// Error is returned by every Client operation that fails after input
// validation. Its message is safe to show to the user: either the
// server-provided detail verbatim or a fixed per-operation fallback.
type Error struct {
	Op Op

	// StatusCode is the HTTP status, or 0 when no response was received.
	StatusCode int

	// Message is the user-facing text.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsTransport reports whether the request never received a response.
func (e *Error) IsTransport() bool {
	return e.StatusCode == 0 && e.Err != nil
}

// ValidationError reports a missing required input. It is returned before
// any network call is made.
type ValidationError struct {
	Op    Op
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s is required", e.Field)
}

// IsUnauthorized reports whether err is a 401 rejection from the service.
func IsUnauthorized(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

// IsValidation reports whether err (or any error in its chain) is a
// ValidationError.
func IsValidation(err error) bool {
	var vErr *ValidationError
	return errors.As(err, &vErr)
}

// requireFields returns a ValidationError for the first empty value.
// Fields are given as name/value pairs.
func requireFields(op Op, pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] == "" {
			return &ValidationError{Op: op, Field: pairs[i]}
		}
	}
	return nil
}
