package http

import (
	"context"

	"github.com/aussiebroadwan/freightdesk/internal/freight/service"
	"github.com/aussiebroadwan/freightdesk/pkg/httpx"
	"github.com/aussiebroadwan/freightdesk/pkg/jwtx"
)

// verifierFunc adapts a function such as AuthService.VerifyToken to
// httpx.TokenVerifier.
type verifierFunc func(token string) (jwtx.Claims, error)

func (f verifierFunc) Verify(token string) (jwtx.Claims, error) { return f(token) }

// principal returns the caller established by AuthnMiddleware, or the zero
// Principal on public routes.
func principal(ctx context.Context) service.Principal {
	claims, ok := httpx.ClaimsFromContext(ctx)
	if !ok {
		return service.Principal{}
	}
	return service.Principal{
		UserID:   claims.Subject,
		Username: claims.Username,
		IsAdmin:  claims.IsAdmin,
	}
}
