package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusUnauthorized, Unauthenticated.HTTPStatus())
	assert.Equal(t, http.StatusForbidden, ForbiddenCompany.HTTPStatus())
	assert.Equal(t, http.StatusBadRequest, CompanyRequired.HTTPStatus())
	assert.Equal(t, http.StatusForbidden, Forbidden.HTTPStatus())
	assert.Equal(t, http.StatusNotFound, NotFound.HTTPStatus())
	assert.Equal(t, http.StatusInternalServerError, Internal.HTTPStatus())
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, Forbidden, KindOf(New(Forbidden, "no")))
	assert.Equal(t, Internal, KindOf(errors.New("plain")))

	wrapped := fmt.Errorf("outer: %w", New(NotFound, "gone"))
	assert.Equal(t, NotFound, KindOf(wrapped))
}

func TestIs(t *testing.T) {
	err := Wrap(Internal, "query failed", errors.New("bad connection"))
	assert.True(t, Is(err, Internal))
	assert.False(t, Is(err, NotFound))
	assert.False(t, Is(errors.New("plain"), Internal))
}

func TestPublicMessage_CollapsesSensitiveKinds(t *testing.T) {
	// The caller must not learn which stage of authentication failed.
	assert.Equal(t, "invalid or expired credentials",
		PublicMessage(New(Unauthenticated, "token expired at 12:01")))
	assert.Equal(t, "invalid or expired credentials",
		PublicMessage(New(Unauthenticated, "no such user")))

	// Internal details never leak either.
	assert.Equal(t, "internal server error",
		PublicMessage(Wrap(Internal, "pq: relation users does not exist", errors.New("x"))))

	// Client-addressable kinds keep their message.
	assert.Equal(t, "a company context is required for this operation",
		PublicMessage(New(CompanyRequired, "a company context is required for this operation")))
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("bad connection")
	err := Wrap(Internal, "query failed", cause)
	assert.ErrorIs(t, err, cause)
}
