package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind groups failures so callers can react to the cause instead of a bare false.
type Kind int

const (
	KindInternal Kind = iota
	KindAuthentication
	KindLookup
	KindRemoteWrite
	KindPartialFailure
	KindInvalidInput
	KindUnauthenticated
	KindForbidden
	KindConflict
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindAuthentication:
		return "authentication"
	case KindLookup:
		return "lookup"
	case KindRemoteWrite:
		return "remote_write"
	case KindPartialFailure:
		return "partial_failure"
	case KindInvalidInput:
		return "invalid_input"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindConflict:
		return "conflict"
	case KindUnavailable:
		return "unavailable"
	default:
		return "internal"
	}
}

type Error struct {
	Kind    Kind
	Code    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches on Code so a wrapped copy of a sentinel still compares equal to it.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithCause returns a copy of the sentinel carrying cause.
func (e *Error) WithCause(cause error) *Error {
	return &Error{Kind: e.Kind, Code: e.Code, Message: e.Message, Cause: cause}
}

// WithMessage returns a copy of the sentinel with a more specific message.
func (e *Error) WithMessage(format string, args ...any) *Error {
	return &Error{Kind: e.Kind, Code: e.Code, Message: fmt.Sprintf(format, args...), Cause: e.Cause}
}

func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

var (
	ErrInvalidCredentials = New(KindAuthentication, "AUTH_001", "invalid email or password")
	ErrEmailInUse         = New(KindAuthentication, "AUTH_002", "email already in use")
	ErrWeakPassword       = New(KindAuthentication, "AUTH_003", "password rejected by policy")
	ErrProfileMissing     = New(KindAuthentication, "AUTH_004", "account has no profile record")

	ErrCodeNotFound         = New(KindLookup, "LOOKUP_001", "elder code not found")
	ErrPatientNotFound      = New(KindLookup, "LOOKUP_002", "patient not found")
	ErrMedicationNotFound   = New(KindLookup, "LOOKUP_003", "medication not found")
	ErrHealthRecordNotFound = New(KindLookup, "LOOKUP_004", "health record not found")
	ErrAppointmentNotFound  = New(KindLookup, "LOOKUP_005", "appointment not found")
	ErrGameSessionNotFound  = New(KindLookup, "LOOKUP_006", "game session not found")
	ErrNoGameAssigned       = New(KindLookup, "LOOKUP_007", "no game assigned")

	ErrWriteFailed  = New(KindRemoteWrite, "WRITE_001", "remote write failed")
	ErrPhotoUpload  = New(KindRemoteWrite, "WRITE_002", "photo upload failed")
	ErrReadFailed   = New(KindRemoteWrite, "WRITE_003", "remote read failed")
	ErrPartialWrite = New(KindPartialFailure, "PARTIAL_001", "photo stored but patient record was not written")

	ErrInvalidInput = New(KindInvalidInput, "INPUT_001", "invalid input")

	ErrNotSignedIn = New(KindUnauthenticated, "SESSION_001", "no current identity")
	ErrForbidden   = New(KindForbidden, "SESSION_002", "identity cannot access this resource")

	ErrCodeInUse = New(KindConflict, "CONFLICT_001", "patient code already in use")

	ErrLookupUnavailable = New(KindUnavailable, "EXT_001", "medication lookup unavailable")
)

// Invalid is a shorthand for ErrInvalidInput with a field-specific message.
func Invalid(format string, args ...any) *Error {
	return ErrInvalidInput.WithMessage(format, args...)
}

// KindOf reports the kind of err, KindInternal for errors outside the taxonomy.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// CodeOf reports the stable code of err.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return "INTERNAL"
}

func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindAuthentication, KindUnauthenticated:
		return http.StatusUnauthorized
	case KindLookup:
		return http.StatusNotFound
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindForbidden:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	case KindUnavailable:
		return http.StatusServiceUnavailable
	case KindRemoteWrite:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
