package errors

import (
	stderrors "errors"
	"net/http"
)

// HTTPError represents an error with an associated HTTP status code.
type HTTPError struct {
	Code    int
	Message string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTPError with the given code and message.
func NewHTTPError(code int, message string) *HTTPError {
	return &HTTPError{
		Code:    code,
		Message: message,
	}
}

// Helper for common errors
var (
	ErrUnauthorized = func(msg string) *HTTPError { return NewHTTPError(http.StatusUnauthorized, msg) }
)

// StatusFor maps an error returned by the service layer to the HTTP status the
// API answers with.
func StatusFor(err error) int {
	var httpErr *HTTPError
	if stderrors.As(err, &httpErr) {
		return httpErr.Code
	}
	switch KindOf(err) {
	case KindValidation, KindCouponNotFound, KindCouponAlreadyRedeemed:
		return http.StatusUnprocessableEntity
	case KindSlotUnavailable:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
