package dashboard

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clink-api/pkg/config"
)

func TestTokenCache_FetchesOnceWhileValid(t *testing.T) {
	calls := 0
	fetch := func(ctx context.Context) (Token, error) {
		calls++
		return Token{Value: "tok-1", ExpiresAt: time.Now().Add(time.Hour)}, nil
	}
	cache := NewTokenCache(fetch, 30*time.Second)

	for i := 0; i < 5; i++ {
		tok, err := cache.Get(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "tok-1", tok.Value)
	}
	assert.Equal(t, 1, calls)
}

func TestTokenCache_RefreshesNearExpiry(t *testing.T) {
	calls := 0
	fetch := func(ctx context.Context) (Token, error) {
		calls++
		return Token{Value: "tok", ExpiresAt: time.Now().Add(time.Hour)}, nil
	}
	cache := NewTokenCache(fetch, 30*time.Second)

	_, err := cache.Get(context.Background())
	require.NoError(t, err)

	// Jump the clock to inside the refresh margin.
	cache.now = func() time.Time { return time.Now().Add(time.Hour - time.Second) }

	_, err = cache.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestTokenCache_FetchErrorKeepsNothing(t *testing.T) {
	boom := errors.New("upstream down")
	failing := func(ctx context.Context) (Token, error) { return Token{}, boom }
	cache := NewTokenCache(failing, 30*time.Second)

	_, err := cache.Get(context.Background())
	assert.ErrorIs(t, err, boom)

	// A later successful fetch recovers.
	cache.fetch = func(ctx context.Context) (Token, error) {
		return Token{Value: "recovered", ExpiresAt: time.Now().Add(time.Hour)}, nil
	}
	tok, err := cache.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "recovered", tok.Value)
}

func TestNewFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.FormValue("grant_type"))
		assert.Equal(t, "clink-app", r.FormValue("client_id"))
		assert.Equal(t, "s3cret", r.FormValue("client_secret"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"upstream-token","expires_in":300}`))
	}))
	defer srv.Close()

	fetch := NewFetcher(config.DashboardConfig{
		BaseURL:      srv.URL,
		ClientID:     "clink-app",
		ClientSecret: "s3cret",
		TokenTTL:     5 * time.Minute,
	}, srv.Client())

	tok, err := fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "upstream-token", tok.Value)
	assert.WithinDuration(t, time.Now().Add(5*time.Minute), tok.ExpiresAt, 10*time.Second)
}

func TestNewFetcher_Non200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	fetch := NewFetcher(config.DashboardConfig{BaseURL: srv.URL}, srv.Client())

	_, err := fetch(context.Background())
	assert.Error(t, err)
}
