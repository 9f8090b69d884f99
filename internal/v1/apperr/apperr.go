// Package apperr defines the domain error taxonomy shared by every layer of
// the lobby service. Store errors never cross into handler signatures; they
// are wrapped into one of the kinds below at the repository boundary, and
// the RPC surface maps exactly one of these kinds to a transport status.
package apperr

import (
	"errors"
	"fmt"
)

// Kind identifies a domain error category. Exhaustive per spec.
type Kind int

const (
	KindUnknown Kind = iota
	KindUserNotFound
	KindUserAlreadyExists
	KindRoomNotFound
	KindRoomAlreadyExists
	KindBadRequest
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindUserNotFound:
		return "user_not_found"
	case KindUserAlreadyExists:
		return "user_already_exists"
	case KindRoomNotFound:
		return "room_not_found"
	case KindRoomAlreadyExists:
		return "room_already_exists"
	case KindBadRequest:
		return "bad_request"
	case KindInternal:
		return "internal_server_error"
	default:
		return "unknown"
	}
}

// Error is the domain error type surfaced by identity, room, and store
// repository calls. It carries enough detail for logging without leaking
// storage internals to callers.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func newErr(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// UserNotFound reports that the given user id does not exist in the store.
func UserNotFound(userID string) *Error {
	return newErr(KindUserNotFound, fmt.Sprintf("user %q not found", userID), nil)
}

// UserAlreadyExists reports an insert collision on user id.
func UserAlreadyExists(userID string) *Error {
	return newErr(KindUserAlreadyExists, fmt.Sprintf("user %q already exists", userID), nil)
}

// RoomNotFound reports that the given room id does not exist in the store.
func RoomNotFound(roomID string) *Error {
	return newErr(KindRoomNotFound, fmt.Sprintf("room %q not found", roomID), nil)
}

// RoomAlreadyExists reports an insert collision on room id.
func RoomAlreadyExists(roomID string) *Error {
	return newErr(KindRoomAlreadyExists, fmt.Sprintf("room %q already exists", roomID), nil)
}

// BadRequest reports a client precondition failure (already in room, room at capacity, ...).
func BadRequest(msg string) *Error {
	return newErr(KindBadRequest, msg, nil)
}

// Internal wraps an unexpected underlying error (store failure that is not a
// NotFound) as an opaque, client-safe internal error. The cause is retained
// for logging but never rendered to the caller.
func Internal(msg string, cause error) *Error {
	return newErr(KindInternal, msg, cause)
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind == kind
	}
	return false
}
