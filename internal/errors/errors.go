package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error by how the web client reacts to it.
type Kind int

const (
	KindInternal      Kind = iota // Unexpected failure inside this process
	KindValidation                // Client-side field checks, never reaches the network
	KindAuth                      // 401/403 from the backend
	KindNetwork                   // Connection failures and backend 5xx, retryable
	KindConfiguration             // A backend or provider feature is not configured
	KindRejected                  // Any other 4xx the backend returned
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuth:
		return "auth"
	case KindNetwork:
		return "network"
	case KindConfiguration:
		return "configuration"
	case KindRejected:
		return "rejected"
	default:
		return "internal"
	}
}

// Common sentinel errors
var (
	ErrNoCredential  = errors.New("no credential stored")
	ErrNotFound      = errors.New("not found")
	ErrNotConfigured = errors.New("not configured")
	ErrInvalidRole   = errors.New("invalid role")
	ErrMissingToken  = errors.New("response did not include a token")
	ErrInvalidLang   = errors.New("unsupported language")
	ErrStateNotFound = errors.New("state not found")
	ErrEmptyKey      = errors.New("key cannot be empty")
	ErrEmptyToken    = errors.New("token cannot be empty")
)

// NetworkMessage is shown for every retryable transport failure.
const NetworkMessage = "We couldn't reach the server. Please check your connection and try again."

// Error is the typed error carried from the API client up to the handlers.
type Error struct {
	Kind    Kind
	Op      string // Operation that failed, e.g. "apiclient.Login"
	Status  int    // HTTP status from the backend, 0 when none
	Message string // User readable message
	Err     error  // Underlying cause
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Op == "" {
		return fmt.Sprintf("%s: %s", e.Kind, msg)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation creates a client-side validation error.
func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

// Auth creates an authentication/authorisation error for a backend status.
func Auth(op string, status int, msg string) *Error {
	return &Error{Kind: KindAuth, Op: op, Status: status, Message: msg}
}

// Network creates a retryable transport error.
func Network(op string, err error) *Error {
	return &Error{Kind: KindNetwork, Op: op, Message: NetworkMessage, Err: err}
}

// Configuration creates an error whose message is shown to the user verbatim.
func Configuration(op, msg string) *Error {
	return &Error{Kind: KindConfiguration, Op: op, Message: msg, Err: ErrNotConfigured}
}

// Rejected creates an error for a backend refusal that is not auth related.
func Rejected(op string, status int, msg string) *Error {
	return &Error{Kind: KindRejected, Op: op, Status: status, Message: msg}
}

// Internal wraps an unexpected failure.
func Internal(op string, err error) *Error {
	return &Error{Kind: KindInternal, Op: op, Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain.
// Errors outside the taxonomy are KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given Kind.
func IsKind(err error, kind Kind) bool {
	if err == nil {
		return false
	}
	return KindOf(err) == kind
}

// IsUnauthorized reports a 401: the credential itself was rejected.
func IsUnauthorized(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindAuth && e.Status == http.StatusUnauthorized
}

// IsForbidden reports a 403: the credential is valid but may not use the resource.
func IsForbidden(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindAuth && e.Status == http.StatusForbidden
}

// UserMessage renders err for display in a page.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if !errors.As(err, &e) {
		return "Something went wrong. Please try again."
	}
	switch e.Kind {
	case KindNetwork:
		return NetworkMessage
	case KindInternal:
		return "Something went wrong. Please try again."
	}
	if e.Message == "" {
		return "Something went wrong. Please try again."
	}
	return e.Message
}

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
