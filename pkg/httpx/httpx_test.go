package httpx_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/freightdesk/pkg/httpx"
	"github.com/aussiebroadwan/freightdesk/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

type stubVerifier map[string]jwtx.Claims

func (s stubVerifier) Verify(token string) (jwtx.Claims, error) {
	c, ok := s[token]
	if !ok {
		return jwtx.Claims{}, errors.New("bad token")
	}
	return c, nil
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestChainOrder(t *testing.T) {
	var order []string
	mark := func(name string) httpx.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := httpx.Chain(okHandler, mark("a"), mark("b"), mark("c"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, []string{"a", "b", "c"}, order)
}

func TestAuthnAndRequireAdmin(t *testing.T) {
	v := stubVerifier{
		"admin-token":    {RegisteredClaims: jwt.RegisteredClaims{Subject: "u1"}, Username: "ops", IsAdmin: true},
		"customer-token": {RegisteredClaims: jwt.RegisteredClaims{Subject: "u2"}, Username: "jo"},
	}
	h := httpx.Chain(okHandler, httpx.AuthnMiddleware(v), httpx.RequireAdmin())

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"invalid token", "Bearer nope", http.StatusUnauthorized},
		{"non-admin", "Bearer customer-token", http.StatusForbidden},
		{"admin", "Bearer admin-token", http.StatusOK},
		{"lowercase scheme", "bearer admin-token", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			require.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusUnauthorized {
				require.Contains(t, rec.Header().Get("WWW-Authenticate"), "Bearer")
			}
		})
	}
}

func TestAuthnInjectsClaims(t *testing.T) {
	v := stubVerifier{"t": {RegisteredClaims: jwt.RegisteredClaims{Subject: "u9"}, Username: "dee"}}

	var got jwtx.Claims
	h := httpx.AuthnMiddleware(v)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = httpx.ClaimsFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer t")
	h.ServeHTTP(httptest.NewRecorder(), req)
	require.Equal(t, "u9", got.Subject)
	require.Equal(t, "dee", got.Username)
}

func TestRateLimitMiddleware(t *testing.T) {
	config := httpx.RateLimitConfig{RequestsPerWindow: 2, Window: time.Minute, Burst: 2}
	h := httpx.RateLimitByIP(config)(okHandler)

	do := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = ip + ":12345"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	require.Equal(t, http.StatusOK, do("10.0.0.1").Code)
	require.Equal(t, http.StatusOK, do("10.0.0.1").Code)

	blocked := do("10.0.0.1")
	require.Equal(t, http.StatusTooManyRequests, blocked.Code)
	require.NotEmpty(t, blocked.Header().Get("Retry-After"))
	require.Equal(t, "2", blocked.Header().Get("X-RateLimit-Limit"))
	require.Contains(t, blocked.Body.String(), "rate_limited")

	require.Equal(t, http.StatusOK, do("10.0.0.2").Code)
}

func TestIPKeyExtractor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.1:5555"
	require.Equal(t, "192.168.1.1", httpx.IPKeyExtractor(req))

	req.Header.Set("X-Real-IP", "172.16.0.1")
	require.Equal(t, "172.16.0.1", httpx.IPKeyExtractor(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.5, 10.0.0.1")
	require.Equal(t, "203.0.113.5", httpx.IPKeyExtractor(req))
}

func TestRateLimitFromEnv(t *testing.T) {
	t.Setenv("RATELIMIT_TEST_REQUESTS", "7")
	t.Setenv("RATELIMIT_TEST_WINDOW_SEC", "30")
	t.Setenv("RATELIMIT_TEST_BURST", "not-a-number")

	got := httpx.RateLimitFromEnv("TEST", httpx.StrictLimit)
	require.Equal(t, 7, got.RequestsPerWindow)
	require.Equal(t, 30*time.Second, got.Window)
	require.Equal(t, httpx.StrictLimit.Burst, got.Burst)
}

func TestDecodeJSONAndPagination(t *testing.T) {
	var dst struct{ Name string }

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"crate"}`))
	require.NoError(t, httpx.DecodeJSON(req, &dst))
	require.Equal(t, "crate", dst.Name)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	require.ErrorIs(t, httpx.DecodeJSON(req, &dst), httpx.ErrEmptyBody)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{"))
	require.Error(t, httpx.DecodeJSON(req, &dst))

	req = httptest.NewRequest(http.MethodGet, "/?page=3&limit=500", nil)
	page, limit := httpx.Pagination(req, 20, 100)
	require.Equal(t, 3, page)
	require.Equal(t, 100, limit)

	req = httptest.NewRequest(http.MethodGet, "/?page=-1", nil)
	page, limit = httpx.Pagination(req, 20, 100)
	require.Equal(t, 1, page)
	require.Equal(t, 20, limit)
}

func TestCORSPreflight(t *testing.T) {
	h := httpx.CORS([]string{"https://app.example.com"})(okHandler)

	req := httptest.NewRequest(http.MethodOptions, "/v1/quotes/request", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}
