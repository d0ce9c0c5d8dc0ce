package authcore_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/panyam/authcore"
)

func TestTokenSourceReusesValidToken(t *testing.T) {
	p := newMockProvider(t)
	d, err := authcore.NewOAuthDelegate(testOAuthConfig(p))
	require.NoError(t, err)

	src := d.TokenSource(t.Context(), &oauth2.Token{
		AccessToken:  "at-1",
		RefreshToken: "rt-1",
		Expiry:       time.Now().Add(time.Hour),
	})
	tok, err := src.Token()
	require.NoError(t, err)
	assert.Equal(t, "at-1", tok.AccessToken)
	assert.Nil(t, p.lastForm(), "no token request for a valid token")
}

func TestTokenSourceRefreshesExpiredToken(t *testing.T) {
	p := newMockProvider(t)
	d, err := authcore.NewOAuthDelegate(testOAuthConfig(p))
	require.NoError(t, err)

	src := d.TokenSource(t.Context(), &oauth2.Token{
		AccessToken:  "at-1",
		RefreshToken: "rt-1",
		Expiry:       time.Now().Add(-time.Minute),
	})
	tok, err := src.Token()
	require.NoError(t, err)
	assert.Equal(t, "at-refreshed", tok.AccessToken)
	assert.Equal(t, "rt-1", tok.RefreshToken, "refresh token kept when not rotated")
	assert.Equal(t, "rt-1", p.lastForm().Get("refresh_token"))
}

func TestTokenSourceWithoutRefreshToken(t *testing.T) {
	p := newMockProvider(t)
	d, err := authcore.NewOAuthDelegate(testOAuthConfig(p))
	require.NoError(t, err)

	src := d.TokenSource(t.Context(), &oauth2.Token{AccessToken: "at-1", Expiry: time.Now().Add(-time.Minute)})
	_, err = src.Token()
	assert.Error(t, err)
}

func TestDelegateClientSendsBearer(t *testing.T) {
	p := newMockProvider(t)
	d, err := authcore.NewOAuthDelegate(testOAuthConfig(p))
	require.NoError(t, err)

	var seen string
	resource := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer resource.Close()

	client := d.Client(t.Context(), &oauth2.Token{
		AccessToken:  "at-1",
		RefreshToken: "rt-1",
		TokenType:    "Bearer",
		Expiry:       time.Now().Add(-time.Minute),
	})
	resp, err := client.Get(resource.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "Bearer at-refreshed", seen)
}
