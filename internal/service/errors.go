// Package service implements the exam reservation workflow, the exam
// catalog and the member/admin identity operations on top of the
// repository layer.  Every failure it reports is an *Error carrying a Kind
// that the HTTP layer maps onto a status code.
package service

import (
    "errors"
    "fmt"

    "github.com/iliyamo/exam-reservation/internal/repository"
)

// Kind classifies a service failure independently of the transport.
type Kind string

const (
    KindUnauthenticated    Kind = "unauthenticated"
    KindInvalidCredentials Kind = "invalid_credentials"
    KindNotFound           Kind = "not_found"
    KindConflict           Kind = "conflict"
    KindCapacityExceeded   Kind = "capacity_exceeded"
    KindInvalidArgument    Kind = "invalid_argument"
    KindInternal           Kind = "internal"
)

// Error is a classified failure with a stable machine-readable code and a
// client-facing message.  Err holds the underlying cause for Internal
// errors and is never shown to clients.
type Error struct {
    Kind    Kind
    Code    string
    Message string
    Err     error
}

func (e *Error) Error() string {
    if e.Err != nil {
        return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
    }
    return e.Code + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error with the same code, so that errors.Is works
// against the sentinel values below even after wrapping.
func (e *Error) Is(target error) bool {
    t, ok := target.(*Error)
    return ok && t.Code == e.Code
}

func newError(kind Kind, code, msg string) *Error {
    return &Error{Kind: kind, Code: code, Message: msg}
}

var (
    ErrUnauthenticated     = newError(KindUnauthenticated, "unauthenticated", "missing or invalid token")
    ErrInvalidCredentials  = newError(KindInvalidCredentials, "invalid_credentials", "invalid id or password")
    ErrIDTaken             = newError(KindConflict, "id_taken", "id already registered")
    ErrMemberNotFound      = newError(KindNotFound, "member_not_found", "member not found")
    ErrAdminNotFound       = newError(KindNotFound, "admin_not_found", "admin not found")
    ErrExamNotFound        = newError(KindNotFound, "exam_not_found", "exam not found")
    ErrExamExists          = newError(KindConflict, "exam_exists", "exam with this title and time already exists")
    ErrReservationNotFound = newError(KindNotFound, "reservation_not_found", "reservation not found")
    ErrAlreadyReserved     = newError(KindConflict, "already_registered", "reservation already exists")
    ErrCapacityExceeded    = newError(KindCapacityExceeded, "capacity_exceeded", "exam is fully booked")
)

// InvalidArgument reports a request that fails validation.
func InvalidArgument(msg string) *Error {
    return newError(KindInvalidArgument, "invalid_argument", msg)
}

// Internal wraps an unexpected failure.
func Internal(err error) *Error {
    return &Error{Kind: KindInternal, Code: "internal", Message: "internal server error", Err: err}
}

// KindOf returns the kind of err.  Errors that are not an *Error are
// Internal; nil has no kind.
func KindOf(err error) Kind {
    if err == nil {
        return ""
    }
    var se *Error
    if errors.As(err, &se) {
        return se.Kind
    }
    return KindInternal
}

// AsError converts err into an *Error, wrapping unknown errors as Internal.
func AsError(err error) *Error {
    if err == nil {
        return nil
    }
    var se *Error
    if errors.As(err, &se) {
        return se
    }
    return Internal(err)
}

// mapNotFound turns repository.ErrNotFound into notFound and anything else
// into an Internal error.
func mapNotFound(err, notFound error) error {
    if errors.Is(err, repository.ErrNotFound) {
        return notFound
    }
    return Internal(err)
}

// outcome is the metrics label for err.
func outcome(err error) string {
    if err == nil {
        return "ok"
    }
    return AsError(err).Code
}
