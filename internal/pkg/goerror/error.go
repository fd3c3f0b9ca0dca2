package goerror

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFound indicates that the requested resource could not be found.
	ErrNotFound = errors.New("resource not found")
)

// Type classifies errors into high-level buckets used by the application.
type Type int

const (
	// TypeServer represents server-side failures.
	TypeServer Type = iota
	// TypeBusiness represents expected outcomes the caller must act on.
	TypeBusiness
	// TypeValidation represents malformed requests.
	TypeValidation
)

// String returns the string representation of the error type.
func (t Type) String() string {
	switch t {
	case TypeValidation:
		return "ERROR_TYPE_VALIDATION"
	case TypeBusiness:
		return "ERROR_TYPE_BUSINESS"
	case TypeServer:
		return "ERROR_TYPE_SERVER"
	default:
		return "ERROR_TYPE_UNKNOWN"
	}
}

// Code is the stable error identifier written to clients in the "code" field.
type Code int

const (
	// CodeInternal represents an internal or unspecified error.
	CodeInternal Code = iota
	// CodeUnauthenticated indicates a missing or unresolvable bearer credential.
	CodeUnauthenticated
	// CodeInvalidRequest indicates a malformed request body.
	CodeInvalidRequest
	// CodeInvalidAction indicates an unknown action name.
	CodeInvalidAction
	// CodeInvalidCode indicates a one-time code that did not match.
	CodeInvalidCode
	// CodeTOTPNotEnabled indicates the identity has no active enrollment.
	CodeTOTPNotEnabled
	// CodeProfileUnavailable indicates the credential record could not be loaded.
	CodeProfileUnavailable
	// CodeStorage indicates the credential record could not be written or read.
	CodeStorage
)

// String returns the wire representation of the error code.
func (c Code) String() string {
	switch c {
	case CodeUnauthenticated:
		return "unauthenticated"
	case CodeInvalidRequest:
		return "invalid_request"
	case CodeInvalidAction:
		return "invalid_action"
	case CodeInvalidCode:
		return "invalid_code"
	case CodeTOTPNotEnabled:
		return "totp_not_enabled"
	case CodeProfileUnavailable:
		return "profile_unavailable"
	case CodeStorage:
		return "storage_error"
	default:
		return "internal"
	}
}

// Error is a structured error used across the application.
//
// It can wrap an underlying error while also carrying a user-facing message,
// a high-level type, and a stable error code. The wrapped error is never
// written to clients.
type Error struct {
	err     error
	msg     string
	errType Type
	code    Code
	fields  map[string]string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.err != nil {
		return e.err.Error()
	}

	if e.msg != "" {
		return e.msg
	}

	switch e.errType {
	case TypeValidation:
		return "Invalid request"
	case TypeBusiness:
		return e.code.String()
	default:
		return "Internal error"
	}
}

// String returns a verbose representation of the error for debugging/logging.
func (e *Error) String() string {
	return fmt.Sprintf(
		"Error Type: %s, Code: %s, Message: %s, Underlying Error: %v",
		e.errType.String(),
		e.code.String(),
		e.msg,
		e.err,
	)
}

// Msg returns the user-facing error message.
func (e *Error) Msg() string {
	return e.msg
}

// Type returns the high-level error type.
func (e *Error) Type() Type {
	return e.errType
}

// Code returns the stable error code.
func (e *Error) Code() Code {
	return e.code
}

// Fields returns validation errors (field to message map), if any.
func (e *Error) Fields() map[string]string {
	return e.fields
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.err
}

// StatusCode maps the error code to an HTTP status code.
func (e *Error) StatusCode() int {
	switch e.code {
	case CodeUnauthenticated:
		return http.StatusUnauthorized
	case CodeInvalidRequest, CodeInvalidAction, CodeInvalidCode, CodeTOTPNotEnabled:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func new(err error, msg string, et Type, code Code) *Error {
	return &Error{err: err, msg: msg, errType: et, code: code}
}

// NewServer creates an internal error wrapping err.
func NewServer(err error) error {
	return new(err, "Internal server error", TypeServer, CodeInternal)
}

// NewStorage creates a storage_error wrapping a persistence failure.
func NewStorage(err error) error {
	return new(err, "Failed to access credential record", TypeServer, CodeStorage)
}

// NewProfileUnavailable creates a profile_unavailable error wrapping a load failure.
func NewProfileUnavailable(err error) error {
	return new(err, "Credential record unavailable", TypeServer, CodeProfileUnavailable)
}

// NewBusiness creates a business-type error with the specified message and code.
func NewBusiness(msg string, code Code) error {
	return new(nil, msg, TypeBusiness, code)
}

// NewUnauthenticated is a shorthand for the 401 business error.
func NewUnauthenticated() error {
	return NewBusiness("Authentication required", CodeUnauthenticated)
}

// NewInvalidInput creates a validation error from a validator failure, or from
// field/message pairs when err is nil.
func NewInvalidInput(err error, kv ...string) error {
	if err != nil {
		return new(err, "Invalid request", TypeValidation, CodeInvalidRequest)
	}

	e := new(nil, "Invalid request", TypeValidation, CodeInvalidRequest)
	if len(kv)%2 != 0 {
		return e
	}

	e.fields = make(map[string]string, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		e.fields[kv[i]] = kv[i+1]
	}

	return e
}

// NewInvalidFormat creates a validation error for an undecodable request body.
func NewInvalidFormat(msgs ...string) error {
	if len(msgs) == 0 {
		return new(nil, "Invalid request body", TypeValidation, CodeInvalidRequest)
	}
	return new(nil, msgs[0], TypeValidation, CodeInvalidRequest)
}
