// Package dashboard integrates the embedded analytics dashboard. The
// dashboard host issues short-lived service tokens; this package caches
// the current token and re-fetches it synchronously on expiry. It is
// the only process-wide mutable state in the service.
package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"clink-api/pkg/config"
	"clink-api/prometheus"
)

// Token is a service token with its wall-clock deadline.
type Token struct {
	Value     string
	ExpiresAt time.Time
}

// FetchFunc obtains a fresh token from the dashboard host.
type FetchFunc func(ctx context.Context) (Token, error)

// TokenCache keeps the current service token under a single lock.
// Expiry triggers a synchronous re-fetch; concurrent requesters wait
// only for the in-flight fetch, never on each other beyond that.
type TokenCache struct {
	mu     sync.Mutex
	fetch  FetchFunc
	margin time.Duration
	cached Token
	now    func() time.Time
}

// NewTokenCache wraps a fetch function. Tokens are refreshed when less
// than margin remains before their deadline.
func NewTokenCache(fetch FetchFunc, margin time.Duration) *TokenCache {
	return &TokenCache{
		fetch:  fetch,
		margin: margin,
		now:    time.Now,
	}
}

// Get returns a valid token, re-fetching when the cached one is absent
// or about to expire.
func (c *TokenCache) Get(ctx context.Context) (Token, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cached.Value != "" && c.now().Add(c.margin).Before(c.cached.ExpiresAt) {
		return c.cached, nil
	}

	token, err := c.fetch(ctx)
	if err != nil {
		return Token{}, err
	}
	c.cached = token
	prometheus.DashboardTokenRefreshCounter.Inc()
	return token, nil
}

// NewFetcher builds the default HTTP fetch against the dashboard host's
// token endpoint using the configured client credentials.
func NewFetcher(cfg config.DashboardConfig, client *http.Client) FetchFunc {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return func(ctx context.Context) (Token, error) {
		form := url.Values{
			"grant_type":    {"client_credentials"},
			"client_id":     {cfg.ClientID},
			"client_secret": {cfg.ClientSecret},
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			cfg.BaseURL+"/api/v1/security/login", strings.NewReader(form.Encode()))
		if err != nil {
			return Token{}, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := client.Do(req)
		if err != nil {
			return Token{}, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return Token{}, fmt.Errorf("dashboard token endpoint returned %d", resp.StatusCode)
		}

		var body struct {
			AccessToken string `json:"access_token"`
			ExpiresIn   int    `json:"expires_in"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return Token{}, err
		}
		ttl := time.Duration(body.ExpiresIn) * time.Second
		if ttl <= 0 {
			ttl = cfg.TokenTTL
		}
		return Token{
			Value:     body.AccessToken,
			ExpiresAt: time.Now().Add(ttl),
		}, nil
	}
}
