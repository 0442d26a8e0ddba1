package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/freightdesk/internal/freight/service"
	"github.com/aussiebroadwan/freightdesk/pkg/httpx"
	"github.com/aussiebroadwan/freightdesk/pkg/slogx"
)

type validationResponse struct {
	httpx.ErrorResponse
	Fields map[string]string `json:"fields"`
}

var sentinelStatus = []struct {
	err    error
	status int
	desc   string
}{
	{service.ErrNotFound, http.StatusNotFound, "Resource not found"},
	{service.ErrUnauthorized, http.StatusUnauthorized, "Authentication required"},
	{service.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid credentials"},
	{service.ErrMFARequired, http.StatusUnauthorized, "A two-factor code is required"},
	{service.ErrForbidden, http.StatusForbidden, "Administrator access required"},
	{service.ErrAccountDisabled, http.StatusForbidden, "Account is disabled"},
	{service.ErrQuoteExpired, http.StatusConflict, "Quote has expired"},
	{service.ErrConflict, http.StatusConflict, "Resource was modified or already exists"},
	{service.ErrRateLimited, http.StatusTooManyRequests, "Please wait before requesting another code"},
	{service.ErrInvalidOrExpiredCode, http.StatusBadRequest, "Invalid or expired code"},
	{service.ErrWrongCurrentPassword, http.StatusBadRequest, "Current password is incorrect"},
}

// writeServiceError maps service errors onto HTTP responses. Anything it
// does not recognise is logged and reported as a bare 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		httpx.WriteJSON(w, http.StatusBadRequest, validationResponse{
			ErrorResponse: httpx.ErrorResponse{Error: "validation_error", ErrorDescription: verr.Error()},
			Fields:        verr.Fields,
		})
		return
	}

	for _, s := range sentinelStatus {
		if errors.Is(err, s.err) {
			desc := s.desc
			if s.err == service.ErrConflict && err != s.err {
				// Carries the transition rule that was broken.
				desc = err.Error()
			}
			httpx.WriteError(w, s.status, s.err.Error(), desc)
			return
		}
	}

	slogx.FromContext(r.Context()).Error("request failed", "err", err)
	httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Internal server error")
}

// decode reads the JSON body into dst, answering 400 itself on failure.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httpx.DecodeJSON(r, dst); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return false
	}
	return true
}
