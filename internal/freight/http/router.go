package http

import (
	"log/slog"
	"net/http"
	"time"

	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/aussiebroadwan/freightdesk/api/freightdesk" // Swagger docs
	"github.com/aussiebroadwan/freightdesk/internal/freight/metrics"
	"github.com/aussiebroadwan/freightdesk/internal/freight/service"
	"github.com/aussiebroadwan/freightdesk/internal/freight/store"
	"github.com/aussiebroadwan/freightdesk/pkg/httpx"
	"github.com/aussiebroadwan/freightdesk/pkg/jwtx"
	"github.com/aussiebroadwan/freightdesk/pkg/slogx"
)

// RateLimits groups the per-IP limits applied to route classes.
type RateLimits struct {
	Strict   httpx.RateLimitConfig // credentials and code issuance
	Moderate httpx.RateLimitConfig // public writes and authenticated calls
	Public   httpx.RateLimitConfig // public lookups and health checks
}

func DefaultRateLimits() RateLimits {
	return RateLimits{Strict: httpx.StrictLimit, Moderate: httpx.ModerateLimit, Public: httpx.PublicLimit}
}

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	keys         *jwtx.KeySet
	verifier     httpx.TokenVerifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	store        store.Store

	Metrics     *metrics.Metrics
	Queue       Pinger // optional readiness dependency
	CORSOrigins []string
	Limits      RateLimits
	TokenTTL    time.Duration

	AuthService              *service.AuthService
	UserService              *service.UserService
	MFAService               *service.MFAService
	PasswordResetService     *service.PasswordResetService
	EmailVerificationService *service.EmailVerificationService
	QuoteService             *service.QuoteService
	ShipmentService          *service.ShipmentService
	ContactService           *service.ContactService
	MailService              *service.MailService
}

func NewRouter(
	keys *jwtx.KeySet,
	auth *service.AuthService,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	return &Router{
		Mux:          http.NewServeMux(),
		keys:         keys,
		verifier:     verifierFunc(auth.VerifyToken),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
		Limits:       DefaultRateLimits(),
		AuthService:  auth,
	}
}

// ApplyRoutes registers every route and builds the global middleware chain.
// Set the optional fields before calling it.
func (r *Router) ApplyRoutes() {
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		httpx.CORS(r.CORSOrigins),
	}
	if r.Metrics != nil {
		// Innermost, so it sees the pattern ServeMux matched.
		r.middlewares = append(r.middlewares, r.Metrics.Middleware)
	}

	r.registerQuotes()
	r.registerShipments()
	r.registerUsers()
	r.registerContact()
	r.registerMail()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title						Freightdesk API
//	@version					0.1.0
//	@description				Quotes, shipment tracking and customer accounts for a freight forwarder.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/freightdesk
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				EdDSA-signed JWT. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) public(h http.HandlerFunc, limit httpx.RateLimitConfig) http.Handler {
	return httpx.Chain(h, httpx.RateLimitByIP(limit))
}

// authed and admin rate limit ahead of authn, so requests carrying rejected
// tokens still spend the caller's bucket.
func (r *Router) authed(h http.HandlerFunc, limit httpx.RateLimitConfig) http.Handler {
	return httpx.Chain(h,
		httpx.RateLimitByIP(limit),
		httpx.AuthnMiddleware(r.verifier),
	)
}

func (r *Router) admin(h http.HandlerFunc) http.Handler {
	return httpx.Chain(h,
		httpx.RateLimitByIP(r.Limits.Moderate),
		httpx.AuthnMiddleware(r.verifier),
		httpx.RequireAdmin(),
	)
}

func (r *Router) registerQuotes() {
	h := &QuoteHandler{Quotes: r.QuoteService}

	r.Mux.Handle("POST /v1/quotes/request", r.public(h.HandleRequest, r.Limits.Moderate))
	r.Mux.Handle("GET /v1/quotes/track/{quoteNumber}", r.public(h.HandleTrack, r.Limits.Public))
	r.Mux.Handle("POST /v1/quotes/track/{quoteNumber}/accept", r.public(h.HandleAccept, r.Limits.Moderate))
	r.Mux.Handle("POST /v1/quotes/track/{quoteNumber}/decline", r.public(h.HandleDecline, r.Limits.Moderate))

	r.Mux.Handle("GET /v1/quotes", r.admin(h.HandleList))
	r.Mux.Handle("GET /v1/quotes/stats", r.admin(h.HandleStats))
	r.Mux.Handle("GET /v1/quotes/{id}", r.admin(h.HandleGet))
	r.Mux.Handle("PUT /v1/quotes/{id}", r.admin(h.HandleUpdate))
	r.Mux.Handle("DELETE /v1/quotes/{id}", r.admin(h.HandleDelete))
}

func (r *Router) registerShipments() {
	h := &ShipmentHandler{Shipments: r.ShipmentService}

	r.Mux.Handle("GET /v1/shipments/track/{trackingNumber}", r.public(h.HandleTrack, r.Limits.Public))

	r.Mux.Handle("POST /v1/shipments", r.admin(h.HandleCreate))
	r.Mux.Handle("GET /v1/shipments", r.admin(h.HandleList))
	r.Mux.Handle("GET /v1/shipments/{id}", r.admin(h.HandleGet))
	r.Mux.Handle("PUT /v1/shipments/{id}", r.admin(h.HandleReplace))
	r.Mux.Handle("PUT /v1/shipments/{id}/status", r.admin(h.HandleStatus))
	r.Mux.Handle("POST /v1/shipments/{id}/notes", r.admin(h.HandleAddNote))
	r.Mux.Handle("DELETE /v1/shipments/{id}", r.admin(h.HandleDelete))
}

func (r *Router) registerUsers() {
	h := &UserHandler{
		Auth:          r.AuthService,
		Users:         r.UserService,
		MFA:           r.MFAService,
		PasswordReset: r.PasswordResetService,
		Verification:  r.EmailVerificationService,
		TokenTTL:      r.TokenTTL,
	}

	r.Mux.Handle("POST /v1/users/login", r.public(h.HandleLogin, r.Limits.Strict))
	r.Mux.Handle("POST /v1/users/forgot-password", r.public(h.HandleForgotPassword, r.Limits.Strict))
	r.Mux.Handle("POST /v1/users/resend-reset-code", r.public(h.HandleResendResetCode, r.Limits.Strict))
	r.Mux.Handle("POST /v1/users/reset-password", r.public(h.HandleResetPassword, r.Limits.Strict))

	r.Mux.Handle("GET /v1/users/me", r.authed(h.HandleMe, r.Limits.Public))
	r.Mux.Handle("PUT /v1/users/me", r.authed(h.HandleUpdateMe, r.Limits.Moderate))
	r.Mux.Handle("POST /v1/users/me/password", r.authed(h.HandleChangePassword, r.Limits.Strict))
	r.Mux.Handle("POST /v1/users/me/verify-email/request", r.authed(h.HandleRequestVerification, r.Limits.Strict))
	r.Mux.Handle("POST /v1/users/me/verify-email", r.authed(h.HandleConfirmVerification, r.Limits.Strict))
	r.Mux.Handle("POST /v1/users/me/mfa/enrol", r.authed(h.HandleMFAEnrol, r.Limits.Moderate))
	r.Mux.Handle("POST /v1/users/me/mfa/confirm", r.authed(h.HandleMFAConfirm, r.Limits.Strict))
	r.Mux.Handle("POST /v1/users/me/mfa/disable", r.authed(h.HandleMFADisable, r.Limits.Strict))

	r.Mux.Handle("POST /v1/users", r.admin(h.HandleCreate))
	r.Mux.Handle("GET /v1/users", r.admin(h.HandleList))
	r.Mux.Handle("GET /v1/users/{id}", r.admin(h.HandleGet))
	r.Mux.Handle("DELETE /v1/users/{id}", r.admin(h.HandleDelete))
	r.Mux.Handle("PUT /v1/users/{id}/kyc", r.admin(h.HandleSetKYC))
	r.Mux.Handle("PUT /v1/users/{id}/status", r.admin(h.HandleSetStatus))
}

func (r *Router) registerContact() {
	h := &ContactHandler{Contact: r.ContactService}
	r.Mux.Handle("POST /v1/contact", r.public(h.ServeHTTP, r.Limits.Moderate))
}

func (r *Router) registerMail() {
	h := &MailHandler{Mail: r.MailService}
	r.Mux.Handle("GET /v1/mail/customers", r.admin(h.HandleCustomers))
	r.Mux.Handle("POST /v1/mail/send", r.admin(h.HandleSend))
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", r.public(LivezHandler(r.startTime, r.buildVersion), r.Limits.Public))
	r.Mux.Handle("GET /readyz", r.public(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.keys, r.Queue), r.Limits.Public))
	r.Mux.Handle("GET /.well-known/jwks.json", r.public(JWKSHandler(r.keys), r.Limits.Public))
	if r.Metrics != nil {
		r.Mux.Handle("GET /metrics", r.Metrics.Handler())
	}
	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}
