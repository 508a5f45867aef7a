package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clink-api/internal/apperr"
	"clink-api/internal/catalog"
	"clink-api/internal/rbac"
	"clink-api/pkg/jwtutil"
)

type fakePrincipals struct {
	principal *rbac.Principal
	err       error
}

func (f *fakePrincipals) FindPrincipalByID(_ context.Context, _ string) (*rbac.Principal, error) {
	return f.principal, f.err
}

func validClaims(subject string, expiresAt time.Time) *jwtutil.Claims {
	return &jwtutil.Claims{
		Email: subject + "@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
}

func acceptingVerifier(claims *jwtutil.Claims) TokenVerifier {
	return func(string) (*jwtutil.Claims, error) { return claims, nil }
}

func testPrincipal() *rbac.Principal {
	return &rbac.Principal{
		ID:    "u1",
		Email: "u1@example.com",
		Roles: []rbac.Role{{
			Name: "User Manager", Scope: rbac.ScopeCompany, Status: rbac.StatusActive,
			Permissions: []string{catalog.UsersView, catalog.UsersEdit},
		}},
		Memberships: []rbac.Membership{{CompanyID: "c1", Role: "member"}},
	}
}

func requireUnauthenticated(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, apperr.Unauthenticated, apperr.KindOf(err))
	// Every credential failure surfaces the same message.
	assert.Equal(t, "invalid or expired credentials", apperr.PublicMessage(err))
}

func TestAuthenticate_MissingHeader(t *testing.T) {
	g := NewGate(&fakePrincipals{}, acceptingVerifier(nil), nil)

	_, err := g.Authenticate(context.Background(), "", "")
	requireUnauthenticated(t, err)
}

func TestAuthenticate_MalformedHeader(t *testing.T) {
	g := NewGate(&fakePrincipals{}, acceptingVerifier(nil), nil)

	for _, header := range []string{"sometoken", "Basic dXNlcg==", "Bearer ", "Bearer"} {
		_, err := g.Authenticate(context.Background(), header, "")
		requireUnauthenticated(t, err)
	}
}

func TestAuthenticate_VerifierRejection(t *testing.T) {
	verify := func(string) (*jwtutil.Claims, error) { return nil, errors.New("signature invalid") }
	g := NewGate(&fakePrincipals{}, verify, nil)

	_, err := g.Authenticate(context.Background(), "Bearer bad", "")
	requireUnauthenticated(t, err)
}

func TestAuthenticate_ExpiredClaimsRejectedEvenWhenVerifierAccepts(t *testing.T) {
	// A verifier with generous clock skew can hand back expired claims;
	// the gate re-checks against the claim itself.
	claims := validClaims("u1", time.Now().Add(-time.Minute))
	g := NewGate(&fakePrincipals{principal: testPrincipal()}, acceptingVerifier(claims), nil)

	_, err := g.Authenticate(context.Background(), "Bearer stale", "")
	requireUnauthenticated(t, err)
}

func TestAuthenticate_MissingExpiryRejected(t *testing.T) {
	claims := &jwtutil.Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "u1"}}
	g := NewGate(&fakePrincipals{principal: testPrincipal()}, acceptingVerifier(claims), nil)

	_, err := g.Authenticate(context.Background(), "Bearer noexp", "")
	requireUnauthenticated(t, err)
}

func TestAuthenticate_MissingSubjectRejected(t *testing.T) {
	claims := validClaims("", time.Now().Add(time.Hour))
	g := NewGate(&fakePrincipals{principal: testPrincipal()}, acceptingVerifier(claims), nil)

	_, err := g.Authenticate(context.Background(), "Bearer nosub", "")
	requireUnauthenticated(t, err)
}

func TestAuthenticate_UnknownPrincipalMergedWithCredentialFailures(t *testing.T) {
	claims := validClaims("ghost", time.Now().Add(time.Hour))
	g := NewGate(&fakePrincipals{principal: nil}, acceptingVerifier(claims), nil)

	_, err := g.Authenticate(context.Background(), "Bearer orphan", "")
	requireUnauthenticated(t, err)
}

func TestAuthenticate_PrincipalLoadErrorMergedToo(t *testing.T) {
	claims := validClaims("u1", time.Now().Add(time.Hour))
	g := NewGate(&fakePrincipals{err: errors.New("db down")}, acceptingVerifier(claims), nil)

	_, err := g.Authenticate(context.Background(), "Bearer t", "")
	requireUnauthenticated(t, err)
}

func TestAuthenticate_HappyPath(t *testing.T) {
	claims := validClaims("u1", time.Now().Add(time.Hour))
	g := NewGate(&fakePrincipals{principal: testPrincipal()}, acceptingVerifier(claims), nil)

	actx, err := g.Authenticate(context.Background(), "Bearer good", "")
	require.NoError(t, err)

	assert.Equal(t, "u1", actx.UserID)
	assert.Equal(t, "u1@example.com", actx.Email)
	require.NotNil(t, actx.CompanyID)
	assert.Equal(t, "c1", *actx.CompanyID)
	assert.True(t, actx.Permissions.Has(catalog.UsersView))
	assert.False(t, actx.Permissions.Has(catalog.SettingsAdmin))
}

func TestAuthenticate_LowercaseBearerAccepted(t *testing.T) {
	claims := validClaims("u1", time.Now().Add(time.Hour))
	g := NewGate(&fakePrincipals{principal: testPrincipal()}, acceptingVerifier(claims), nil)

	_, err := g.Authenticate(context.Background(), "bearer good", "")
	assert.NoError(t, err)
}

func TestAuthenticate_ForbiddenCompanyPassesThrough(t *testing.T) {
	claims := validClaims("u1", time.Now().Add(time.Hour))
	g := NewGate(&fakePrincipals{principal: testPrincipal()}, acceptingVerifier(claims), nil)

	_, err := g.Authenticate(context.Background(), "Bearer good", "not-my-company")
	require.Error(t, err)
	// Unlike credential failures this one keeps its own kind: the
	// caller is authenticated, just not a member.
	assert.Equal(t, apperr.ForbiddenCompany, apperr.KindOf(err))
}

func TestAuthenticate_ClockBoundaryIsExclusive(t *testing.T) {
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	claims := validClaims("u1", at)
	g := NewGate(&fakePrincipals{principal: testPrincipal()}, acceptingVerifier(claims), nil)
	g.now = func() time.Time { return at }

	// At exactly the deadline the token is already expired.
	_, err := g.Authenticate(context.Background(), "Bearer t", "")
	requireUnauthenticated(t, err)

	g.now = func() time.Time { return at.Add(-time.Second) }
	_, err = g.Authenticate(context.Background(), "Bearer t", "")
	assert.NoError(t, err)
}

func TestBearerToken(t *testing.T) {
	tok, ok := bearerToken("Bearer abc.def.ghi")
	require.True(t, ok)
	assert.Equal(t, "abc.def.ghi", tok)

	_, ok = bearerToken("")
	assert.False(t, ok)
	_, ok = bearerToken("abc.def.ghi")
	assert.False(t, ok)
}
