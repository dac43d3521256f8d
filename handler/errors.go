package handler

import (
	"errors"
	"net/http"

	"github.com/docmatch/notifier/pkg/binder"
	"github.com/docmatch/notifier/pkg/jwt"
	"github.com/docmatch/notifier/pkg/notifications"
	"github.com/docmatch/notifier/pkg/rbac"
	"github.com/docmatch/notifier/pkg/targeting"
	"github.com/docmatch/notifier/pkg/validator"
)

var (
	ErrNilResponse = errors.New("handler returned nil response")

	ErrRouteNotFound    = NewHTTPError(http.StatusNotFound, "route_not_found")
	ErrMethodNotAllowed = NewHTTPError(http.StatusMethodNotAllowed, "method_not_allowed")
)

// HTTPError is an error with a fixed status and code.
type HTTPError struct {
	Code int
	Key  string
}

// NewHTTPError creates an HTTPError.
func NewHTTPError(code int, key string) HTTPError {
	return HTTPError{Code: code, Key: key}
}

func (e HTTPError) Error() string {
	return e.Key
}

// Classify maps err to a status and an error detail. Messages of internal
// errors are not exposed.
func Classify(err error) (int, *ErrorDetail) {
	var httpErr HTTPError
	switch {
	case validator.IsValidationError(err):
		return http.StatusUnprocessableEntity, &ErrorDetail{
			Code:    "validation_error",
			Message: "validation failed",
			Details: validator.Extract(err).Fields(),
		}
	case errors.Is(err, targeting.ErrMissingTarget):
		return http.StatusBadRequest, &ErrorDetail{Code: "missing_target", Message: err.Error()}
	case errors.Is(err, targeting.ErrUnknownRole):
		return http.StatusUnprocessableEntity, &ErrorDetail{Code: "unknown_role", Message: err.Error()}
	case errors.Is(err, notifications.ErrInvalidRecipient):
		return http.StatusUnprocessableEntity, &ErrorDetail{Code: "invalid_recipient", Message: err.Error()}
	case binder.IsBindError(err):
		return http.StatusBadRequest, &ErrorDetail{Code: "bad_request", Message: err.Error()}
	case jwt.IsAuthError(err):
		return http.StatusUnauthorized, &ErrorDetail{Code: "unauthorized", Message: http.StatusText(http.StatusUnauthorized)}
	case errors.Is(err, notifications.ErrForbidden),
		errors.Is(err, rbac.ErrInsufficientPermissions),
		errors.Is(err, rbac.ErrInvalidRole):
		return http.StatusForbidden, &ErrorDetail{Code: "forbidden", Message: http.StatusText(http.StatusForbidden)}
	case errors.Is(err, notifications.ErrNotFound):
		return http.StatusNotFound, &ErrorDetail{Code: "not_found", Message: "notification not found"}
	case errors.As(err, &httpErr):
		return httpErr.Code, &ErrorDetail{Code: httpErr.Key, Message: http.StatusText(httpErr.Code)}
	default:
		return http.StatusInternalServerError, &ErrorDetail{Code: "internal_error", Message: "internal server error"}
	}
}
