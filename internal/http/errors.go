package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fyrsmithlabs/sprintai/internal/analysis"
	"github.com/fyrsmithlabs/sprintai/internal/chat"
	"github.com/fyrsmithlabs/sprintai/internal/decision"
	"github.com/fyrsmithlabs/sprintai/internal/identity"
	"github.com/fyrsmithlabs/sprintai/internal/live"
	"github.com/fyrsmithlabs/sprintai/internal/store"
)

// statusFor maps a domain error to an HTTP status. Unknown errors are 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, identity.ErrInvalidCredentials),
		errors.Is(err, identity.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, identity.ErrEmailInUse),
		errors.Is(err, decision.ErrMinOptions):
		return http.StatusConflict
	case errors.Is(err, decision.ErrOptionNotFound),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case identity.IsValidation(err),
		errors.Is(err, decision.ErrInvalidValue),
		errors.Is(err, decision.ErrUnknownFactor),
		errors.Is(err, decision.ErrMissingFactor),
		errors.Is(err, decision.ErrDuplicateOption),
		errors.Is(err, decision.ErrRequiredField),
		errors.Is(err, analysis.ErrUserRequired),
		errors.Is(err, chat.ErrEmptyMessage),
		errors.Is(err, live.ErrInvalidUserID):
		return http.StatusBadRequest
	case errors.Is(err, identity.ErrClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// httpError converts err into an echo.HTTPError. Internal errors are
// logged by the caller and replaced with a generic message.
func httpError(err error) *echo.HTTPError {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		return echo.NewHTTPError(code, "internal error").SetInternal(err)
	}
	return echo.NewHTTPError(code, err.Error())
}
