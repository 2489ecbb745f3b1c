package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for HTTP status mapping.
type Kind int

const (
	KindValidation   Kind = iota // 400: missing/empty required field
	KindPrecondition             // 400: dependency artifact absent
	KindNotFound                 // 404: unknown session/campaign
	KindForbidden                // 403: non-owner access
	KindUpstream                 // 500: generative service failure
)

// Error is an error with an HTTP classification. The message is
// returned verbatim to the caller.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

// Validationf returns a validation error.
func Validationf(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// Preconditionf returns a precondition-failed error naming the missing prior stage.
func Preconditionf(format string, args ...any) *Error {
	return &Error{Kind: KindPrecondition, Message: fmt.Sprintf(format, args...)}
}

// NotFoundf returns a not-found error.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Forbiddenf returns an authorization error.
func Forbiddenf(format string, args ...any) *Error {
	return &Error{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

// Upstreamf returns an upstream-generation-failure error.
func Upstreamf(format string, args ...any) *Error {
	return &Error{Kind: KindUpstream, Message: fmt.Sprintf(format, args...)}
}

// StatusCode maps an error to its HTTP status. Unclassified errors are 500.
func StatusCode(err error) int {
	var e *Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError
	}
	switch e.Kind {
	case KindValidation, KindPrecondition:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// PublicMessage returns the message safe to show a caller. Upstream
// and unclassified failures collapse to a generic message so provider
// details never reach the response.
func PublicMessage(err error) string {
	if StatusCode(err) == http.StatusInternalServerError {
		return "generation failed"
	}
	return err.Error()
}

// WriteError writes err as a JSON error response, mapping its kind to a status.
func WriteError(w http.ResponseWriter, err error) {
	WriteJSON(w, StatusCode(err), map[string]string{"error": PublicMessage(err)})
}
