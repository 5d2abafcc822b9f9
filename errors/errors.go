package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrConversationNotFound = fmt.Errorf("conversation not found")
	ErrNotParticipant       = fmt.Errorf("caller is not a participant of this conversation")
	ErrInvalidToken         = fmt.Errorf("invalid or expired token")
	ErrEmptyMessage         = fmt.Errorf("message body is empty")
	ErrUnknownMedia         = fmt.Errorf("unrecognized media payload")
	ErrMalformedFrame       = fmt.Errorf("malformed frame")
	ErrSelfConversation     = fmt.Errorf("a conversation needs two distinct participants")
	ErrEmptyWords           = fmt.Errorf("no censored words have been found")
	ErrWorkerPanic          = fmt.Errorf("worker panic")
)

// IsClientError reports whether the failure is the caller's doing: a frame
// the session should drop and log at warn, not a server fault.
func IsClientError(err error) bool {
	return errors.Is(err, ErrEmptyMessage) ||
		errors.Is(err, ErrUnknownMedia) ||
		errors.Is(err, ErrMalformedFrame)
}

// HTTPStatus maps domain sentinels to the status code the narrow HTTP surface
// returns before a websocket handshake or on the history endpoints.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrConversationNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrNotParticipant), errors.Is(err, ErrInvalidToken):
		return http.StatusForbidden
	case errors.Is(err, ErrEmptyMessage), errors.Is(err, ErrMalformedFrame),
		errors.Is(err, ErrSelfConversation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
