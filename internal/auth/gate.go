// Package auth is the single entry point for request authentication:
// bearer credential verification, principal loading, company resolution
// and effective permission materialization, in that order.
package auth

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"clink-api/internal/apperr"
	"clink-api/internal/rbac"
	"clink-api/internal/tenant"
	"clink-api/pkg/jwtutil"
)

// PrincipalSource is the slice of the data-access collaborator the gate
// needs. (nil, nil) means the principal does not exist.
type PrincipalSource interface {
	FindPrincipalByID(ctx context.Context, id string) (*rbac.Principal, error)
}

// TokenVerifier verifies a raw bearer token and returns its claims.
type TokenVerifier func(token string) (*jwtutil.Claims, error)

// AuthContext is the per-request output of the gate. Handlers consult
// Permissions before any mutating or company-scoped read. CompanyID is
// nil only for global-scope principals operating company-agnostically.
type AuthContext struct {
	UserID      string
	Email       string
	DisplayName string
	CompanyID   *string
	Permissions rbac.PermissionSet
	Principal   rbac.Principal
}

// Gate composes verification, principal loading, company resolution and
// permission materialization. It holds no mutable state; every request
// loads fresh data.
type Gate struct {
	principals PrincipalSource
	verify     TokenVerifier
	log        *zap.Logger
	now        func() time.Time
}

// NewGate wires the gate. A nil verifier falls back to jwtutil.
func NewGate(principals PrincipalSource, verify TokenVerifier, log *zap.Logger) *Gate {
	if verify == nil {
		verify = jwtutil.ValidateToken
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Gate{
		principals: principals,
		verify:     verify,
		log:        log,
		now:        time.Now,
	}
}

var errUnauthenticated = apperr.New(apperr.Unauthenticated, "invalid or expired credentials")

// Authenticate resolves an Authorization header value and an optional
// X-Company-ID header value to an AuthContext. Every failure except a
// forbidden company collapses to Unauthenticated; the failing stage is
// logged, never returned.
func (g *Gate) Authenticate(ctx context.Context, authorizationHeader, companyHeader string) (*AuthContext, error) {
	token, ok := bearerToken(authorizationHeader)
	if !ok {
		g.log.Debug("missing or malformed authorization header")
		return nil, errUnauthenticated
	}

	claims, err := g.verify(token)
	if err != nil {
		g.log.Debug("token verification failed", zap.Error(err))
		return nil, errUnauthenticated
	}

	// Re-check expiry against the claim itself. The verifier already
	// rejects expired tokens, but a misconfigured verifier (or one with
	// generous clock skew) must not let a stale token through.
	if claims.ExpiresAt == nil || !g.now().Before(claims.ExpiresAt.Time) {
		g.log.Debug("token expired", zap.String("subject", claims.Subject))
		return nil, errUnauthenticated
	}

	if claims.Subject == "" {
		g.log.Debug("token has no subject")
		return nil, errUnauthenticated
	}

	principal, err := g.principals.FindPrincipalByID(ctx, claims.Subject)
	if err != nil {
		g.log.Error("loading principal failed", zap.Error(err))
		return nil, errUnauthenticated
	}
	if principal == nil {
		// Merged with the credential failures so callers cannot probe
		// which accounts exist.
		g.log.Debug("principal not found", zap.String("subject", claims.Subject))
		return nil, errUnauthenticated
	}

	companyID, err := tenant.Resolve(*principal, companyHeader)
	if err != nil {
		g.log.Warn("company resolution rejected",
			zap.String("user_id", principal.ID),
			zap.String("header_company_id", companyHeader))
		return nil, err
	}

	perms := rbac.EffectivePermissions(*principal, companyID)

	return &AuthContext{
		UserID:      principal.ID,
		Email:       principal.Email,
		DisplayName: principal.DisplayName(),
		CompanyID:   companyID,
		Permissions: perms,
		Principal:   *principal,
	}, nil
}

// bearerToken extracts the token from an "Authorization: Bearer x" value.
func bearerToken(header string) (string, bool) {
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
