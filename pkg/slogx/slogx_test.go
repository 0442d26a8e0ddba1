package slogx_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aussiebroadwan/freightdesk/pkg/slogx"
	"github.com/stretchr/testify/require"
)

func TestNew_RedactsSensitiveKeys(t *testing.T) {
	var buf bytes.Buffer
	log := slogx.New(slogx.Config{Service: "freightdesk", Env: "test", Format: "json", Output: &buf})

	log.Info("login attempt", "password", "hunter22", "code", "123456", "user", "dee")

	out := buf.String()
	require.NotContains(t, out, "hunter22")
	require.NotContains(t, out, "123456")
	require.Contains(t, out, `"user":"dee"`)
	require.Contains(t, out, "[redacted]")
}

func TestHTTPMiddleware(t *testing.T) {
	var buf bytes.Buffer
	base := slogx.New(slogx.Config{Service: "freightdesk", Format: "text", Output: &buf})

	var sawLogger bool
	h := slogx.HTTPMiddleware(base)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawLogger = slogx.FromContext(r.Context()) != base
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/livez", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.True(t, sawLogger)
	require.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))
	require.Contains(t, buf.String(), "req_id=req-123")
	require.Contains(t, buf.String(), "status=418")
}

func TestFromContextDefault(t *testing.T) {
	require.NotNil(t, slogx.FromContext(context.Background()))
	ctx := slogx.With(context.Background(), "shipment_id", "s1")
	require.NotNil(t, slogx.FromContext(ctx))
}
