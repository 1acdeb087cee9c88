// Package apperr carries the semantic error kinds every handler reports.
// Kinds are gRPC codes so any error converts to a status with status.FromError.
package apperr

import (
	"errors"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type Error struct {
	Kind    codes.Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches errors of the same kind and message, so a sentinel still
// matches after it has been wrapped with a cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Message == t.Message
}

func (e *Error) GRPCStatus() *status.Status {
	return status.New(e.Kind, e.Message)
}

// With returns a copy of e wrapping cause.
func (e *Error) With(cause error) *Error {
	return &Error{Kind: e.Kind, Message: e.Message, Cause: cause}
}

func New(kind codes.Code, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Unauthenticated(message string) *Error    { return New(codes.Unauthenticated, message) }
func InvalidArgument(message string) *Error    { return New(codes.InvalidArgument, message) }
func NotFound(message string) *Error           { return New(codes.NotFound, message) }
func PermissionDenied(message string) *Error   { return New(codes.PermissionDenied, message) }
func FailedPrecondition(message string) *Error { return New(codes.FailedPrecondition, message) }
func AlreadyExists(message string) *Error      { return New(codes.AlreadyExists, message) }
func ResourceExhausted(message string) *Error  { return New(codes.ResourceExhausted, message) }

// Internal hides the cause from callers but keeps it for logs.
func Internal(cause error) *Error {
	return &Error{Kind: codes.Internal, Message: "internal error", Cause: cause}
}

// KindOf reports the kind of err. Errors outside this package are internal.
func KindOf(err error) codes.Code {
	if err == nil {
		return codes.OK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if st, ok := status.FromError(err); ok {
		return st.Code()
	}
	return codes.Internal
}

// KindFromName parses the name produced by codes.Code.String.
func KindFromName(name string) codes.Code {
	for c := codes.OK; c <= codes.Unauthenticated; c++ {
		if c.String() == name {
			return c
		}
	}
	return codes.Unknown
}

func HTTPStatus(kind codes.Code) int {
	switch kind {
	case codes.OK:
		return http.StatusOK
	case codes.Unauthenticated:
		return http.StatusUnauthorized
	case codes.InvalidArgument:
		return http.StatusBadRequest
	case codes.NotFound:
		return http.StatusNotFound
	case codes.PermissionDenied:
		return http.StatusForbidden
	case codes.FailedPrecondition:
		return http.StatusPreconditionFailed
	case codes.AlreadyExists, codes.Aborted:
		return http.StatusConflict
	case codes.ResourceExhausted:
		return http.StatusTooManyRequests
	case codes.Unavailable:
		return http.StatusServiceUnavailable
	case codes.DeadlineExceeded:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// Retryable reports whether a read failing with kind may be repeated as is.
func Retryable(kind codes.Code) bool {
	switch kind {
	case codes.Unavailable, codes.DeadlineExceeded, codes.Internal, codes.Unknown, codes.Aborted:
		return true
	}
	return false
}
