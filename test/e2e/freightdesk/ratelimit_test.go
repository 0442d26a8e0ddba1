package freightdesk_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestRateLimitLogin runs with the production limits: the login route allows
// five attempts per minute per address.
func TestRateLimitLogin(t *testing.T) {
	c := setupContainer(t, map[string]string{
		"RATELIMIT_STRICT_REQUESTS": "-",
		"RATELIMIT_STRICT_BURST":    "-",
	})

	body := map[string]string{"identifier": "nobody", "password": "wrong-password"}
	for i := range 5 {
		var e errorBody
		code := c.do(t, http.MethodPost, "/v1/users/login", body, &e)
		require.Equal(t, http.StatusUnauthorized, code, "attempt %d should be refused, not limited", i+1)
	}

	var e errorBody
	require.Equal(t, http.StatusTooManyRequests, c.do(t, http.MethodPost, "/v1/users/login", body, &e))

	// Public lookups have their own, larger bucket.
	require.Equal(t, http.StatusNotFound, c.do(t, http.MethodGet, "/v1/quotes/track/QTE-NONE", nil, &e))
}

func TestForgotPasswordCooldown(t *testing.T) {
	c := setupContainer(t, nil)

	var first, unknown struct {
		Message string `json:"message"`
	}
	require.Equal(t, http.StatusOK, c.do(t, http.MethodPost, "/v1/users/forgot-password",
		map[string]string{"email": adminEmail}, &first))
	require.Equal(t, http.StatusOK, c.do(t, http.MethodPost, "/v1/users/forgot-password",
		map[string]string{"email": "ghost@example.com"}, &unknown))
	require.Equal(t, first.Message, unknown.Message)

	var e errorBody
	require.Equal(t, http.StatusTooManyRequests, c.do(t, http.MethodPost, "/v1/users/resend-reset-code",
		map[string]string{"email": adminEmail}, &e))
	require.Equal(t, "rate_limited", e.Error)
}
