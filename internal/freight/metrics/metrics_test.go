package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	require.NotPanics(t, func() {
		m.QuoteTransition("quoted")
		m.ShipmentEvent("delivered")
		m.CodeIssued("password_reset", "issued")
		m.Notification("quote-priced", "sent", 1)
		m.SetQueueDepth(3)
	})
}

func TestCounters(t *testing.T) {
	m := New()
	m.QuoteTransition("quoted")
	m.QuoteTransition("quoted")
	m.CodeIssued("password_reset", "cooldown")

	require.Equal(t, 2.0, testutil.ToFloat64(m.QuoteTransitionsTotal.WithLabelValues("quoted")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.CodesIssuedTotal.WithLabelValues("password_reset", "cooldown")))
}

func TestMiddlewareAndHandler(t *testing.T) {
	m := New()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/quotes/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	h := m.Middleware(mux)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/quotes/abc", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	require.True(t, strings.Contains(body, `freightdesk_http_requests_total{method="GET",route="GET /v1/quotes/{id}",status="404"} 1`), body)
}
