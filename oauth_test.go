package authcore_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panyam/authcore"
)

// mockProvider is a token endpoint that accepts any code whose verifier
// matches the challenge registered for it.
type mockProvider struct {
	*httptest.Server

	mu         sync.Mutex
	challenges map[string]string // code -> challenge
	forms      []url.Values
}

func newMockProvider(t *testing.T) *mockProvider {
	p := &mockProvider{challenges: map[string]string{}}
	p.Server = httptest.NewServer(http.HandlerFunc(p.serveToken))
	t.Cleanup(p.Close)
	return p
}

func (p *mockProvider) issueCode(code, challenge string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.challenges[code] = challenge
}

func (p *mockProvider) lastForm() url.Values {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.forms) == 0 {
		return nil
	}
	return p.forms[len(p.forms)-1]
}

func (p *mockProvider) serveToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	p.mu.Lock()
	p.forms = append(p.forms, r.PostForm)
	challenge, known := p.challenges[r.PostForm.Get("code")]
	p.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch r.PostForm.Get("grant_type") {
	case "authorization_code":
		if !known || authcore.GenerateCodeChallenge(r.PostForm.Get("code_verifier")) != challenge {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"error":"invalid_grant","error_description":"bad code or verifier"}`)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "at-" + r.PostForm.Get("code"),
			"token_type":    "Bearer",
			"expires_in":    3600,
			"refresh_token": "rt-" + r.PostForm.Get("code"),
			"scope":         "openid profile",
		})
	case "refresh_token":
		if r.PostForm.Get("refresh_token") == "revoked" {
			// some providers answer 200 with an error body
			fmt.Fprint(w, `{"error":"invalid_grant"}`)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "at-refreshed",
			"token_type":   "Bearer",
			"expires_in":   60,
		})
	default:
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":"unsupported_grant_type"}`)
	}
}

func testOAuthConfig(p *mockProvider) authcore.OAuthConfig {
	return authcore.OAuthConfig{
		AuthURL:      "https://provider.example/authorize",
		TokenURL:     p.URL + "/token",
		ClientID:     "client-1",
		ClientSecret: "shh",
		RedirectURL:  "https://app.example/callback",
		Scopes:       []string{"openid", "profile"},
	}
}

// authorize follows an auth URL the way a provider would and returns a code
// bound to its challenge.
func authorize(t *testing.T, p *mockProvider, authURL, code string) {
	t.Helper()
	u, err := url.Parse(authURL)
	require.NoError(t, err)
	q := u.Query()
	require.Equal(t, "S256", q.Get("code_challenge_method"))
	require.NotEmpty(t, q.Get("code_challenge"))
	p.issueCode(code, q.Get("code_challenge"))
}

func TestOAuthConfigValidate(t *testing.T) {
	base := authcore.OAuthConfig{
		AuthURL:     "https://p.example/auth",
		TokenURL:    "https://p.example/token",
		ClientID:    "c",
		RedirectURL: "https://app.example/cb",
	}
	require.NoError(t, base.Validate())

	tests := []struct {
		name   string
		mutate func(*authcore.OAuthConfig)
	}{
		{"no client id", func(c *authcore.OAuthConfig) { c.ClientID = "" }},
		{"no redirect", func(c *authcore.OAuthConfig) { c.RedirectURL = "" }},
		{"no token url", func(c *authcore.OAuthConfig) { c.TokenURL = "" }},
		{"relative auth url", func(c *authcore.OAuthConfig) { c.AuthURL = "/authorize" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base
			tt.mutate(&c)
			assert.ErrorIs(t, c.Validate(), authcore.ErrConfigurationInvalid)
		})
	}
}

func TestOAuthAuthURL(t *testing.T) {
	p := newMockProvider(t)
	d, err := authcore.NewOAuthDelegate(testOAuthConfig(p))
	require.NoError(t, err)
	ctx := context.Background()

	raw, err := d.AuthURL(ctx, "state-1", "")
	require.NoError(t, err)
	u, err := url.Parse(raw)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "provider.example", u.Host)
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "client-1", q.Get("client_id"))
	assert.Equal(t, "https://app.example/callback", q.Get("redirect_uri"))
	assert.Equal(t, "openid profile", q.Get("scope"))
	assert.Equal(t, "state-1", q.Get("state"))
	assert.Equal(t, "S256", q.Get("code_challenge_method"))
	assert.Len(t, q.Get("code_challenge"), 43)

	withChallenge, err := d.AuthURL(ctx, "state-2", "caller-challenge")
	require.NoError(t, err)
	u, err = url.Parse(withChallenge)
	require.NoError(t, err)
	assert.Equal(t, "caller-challenge", u.Query().Get("code_challenge"))
	assert.Equal(t, "S256", u.Query().Get("code_challenge_method"))

	_, err = d.AuthURL(ctx, "", "")
	assert.Error(t, err)
}

func TestOAuthExchangeWithRetainedVerifier(t *testing.T) {
	p := newMockProvider(t)
	verifiers := authcore.NewMemoryVerifierStore(nil)
	d, err := authcore.NewOAuthDelegate(testOAuthConfig(p), authcore.WithVerifierStore(verifiers))
	require.NoError(t, err)
	ctx := context.Background()

	authURL, err := d.AuthURL(ctx, "state-1", "")
	require.NoError(t, err)
	authorize(t, p, authURL, "code-1")
	assert.Equal(t, 1, verifiers.Len())

	tok, err := d.ExchangeCode(ctx, "state-1", "code-1", "")
	require.NoError(t, err)
	assert.Equal(t, "at-code-1", tok.AccessToken)
	assert.Equal(t, "rt-code-1", tok.RefreshToken)
	assert.Equal(t, int64(3600), tok.ExpiresIn)
	assert.Equal(t, 0, verifiers.Len())

	form := p.lastForm()
	assert.Equal(t, "authorization_code", form.Get("grant_type"))
	assert.Equal(t, "client-1", form.Get("client_id"))
	assert.Equal(t, "shh", form.Get("client_secret"))
	assert.Equal(t, "https://app.example/callback", form.Get("redirect_uri"))

	// the verifier was consumed
	_, err = d.ExchangeCode(ctx, "state-1", "code-1", "")
	assert.ErrorIs(t, err, authcore.ErrVerifierMissing)
}

func TestOAuthExchangeWithCallerVerifier(t *testing.T) {
	p := newMockProvider(t)
	d, err := authcore.NewOAuthDelegate(testOAuthConfig(p))
	require.NoError(t, err)
	ctx := context.Background()

	verifier := authcore.GenerateCodeVerifier()
	authURL, err := d.AuthURL(ctx, "state-1", authcore.GenerateCodeChallenge(verifier))
	require.NoError(t, err)
	authorize(t, p, authURL, "code-1")

	tok, err := d.ExchangeCode(ctx, "", "code-1", verifier)
	require.NoError(t, err)
	assert.Equal(t, "at-code-1", tok.AccessToken)
	assert.Equal(t, verifier, p.lastForm().Get("code_verifier"))
}

func TestOAuthConcurrentStates(t *testing.T) {
	p := newMockProvider(t)
	d, err := authcore.NewOAuthDelegate(testOAuthConfig(p))
	require.NoError(t, err)
	ctx := context.Background()

	const n = 10
	for i := range n {
		authURL, err := d.AuthURL(ctx, fmt.Sprintf("state-%d", i), "")
		require.NoError(t, err)
		authorize(t, p, authURL, fmt.Sprintf("code-%d", i))
	}

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := n - 1; i >= 0; i-- {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = d.ExchangeCode(ctx, fmt.Sprintf("state-%d", i), fmt.Sprintf("code-%d", i), "")
		}()
	}
	wg.Wait()
	for i, err := range errs {
		assert.NoError(t, err, "exchange %d", i)
	}
}

func TestOAuthExchangeMissingVerifier(t *testing.T) {
	p := newMockProvider(t)
	d, err := authcore.NewOAuthDelegate(testOAuthConfig(p))
	require.NoError(t, err)

	_, err = d.ExchangeCode(context.Background(), "never-started", "code-1", "")
	assert.ErrorIs(t, err, authcore.ErrVerifierMissing)
	assert.Nil(t, p.lastForm(), "no request without a verifier")
}

func TestOAuthExchangeRejected(t *testing.T) {
	p := newMockProvider(t)
	d, err := authcore.NewOAuthDelegate(testOAuthConfig(p))
	require.NoError(t, err)
	ctx := context.Background()

	authURL, err := d.AuthURL(ctx, "state-1", "")
	require.NoError(t, err)
	authorize(t, p, authURL, "code-1")

	_, err = d.ExchangeCode(ctx, "state-1", "code-1", "wrong-verifier-wrong-verifier-wrong-verifier")
	require.ErrorIs(t, err, authcore.ErrExchangeFailed)
	var exErr *authcore.ExchangeError
	require.True(t, errors.As(err, &exErr))
	assert.Equal(t, http.StatusBadRequest, exErr.StatusCode)
	assert.Equal(t, "invalid_grant", exErr.Code)
	assert.Equal(t, "bad code or verifier", exErr.Description)
}

func TestOAuthRefresh(t *testing.T) {
	p := newMockProvider(t)
	d, err := authcore.NewOAuthDelegate(testOAuthConfig(p))
	require.NoError(t, err)
	ctx := context.Background()

	tok, err := d.RefreshAccessToken(ctx, "rt-1")
	require.NoError(t, err)
	assert.Equal(t, "at-refreshed", tok.AccessToken)
	assert.Equal(t, "refresh_token", p.lastForm().Get("grant_type"))
	assert.Equal(t, "rt-1", p.lastForm().Get("refresh_token"))

	_, err = d.RefreshAccessToken(ctx, "revoked")
	assert.ErrorIs(t, err, authcore.ErrExchangeFailed)

	_, err = d.RefreshAccessToken(ctx, "")
	assert.Error(t, err)
}

func TestOAuthAbandon(t *testing.T) {
	p := newMockProvider(t)
	verifiers := authcore.NewMemoryVerifierStore(nil)
	d, err := authcore.NewOAuthDelegate(testOAuthConfig(p), authcore.WithVerifierStore(verifiers))
	require.NoError(t, err)
	ctx := context.Background()

	_, err = d.AuthURL(ctx, "state-1", "")
	require.NoError(t, err)
	require.NoError(t, d.Abandon(ctx, "state-1"))
	assert.Equal(t, 0, verifiers.Len())
}

func TestMemoryVerifierStoreExpiry(t *testing.T) {
	clock := newFakeClock()
	s := authcore.NewMemoryVerifierStore(clock.Now)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "a", "va", time.Minute))
	clock.Advance(time.Minute)
	v, err := s.Take(ctx, "a")
	require.NoError(t, err)
	assert.Empty(t, v)

	require.NoError(t, s.Put(ctx, "b", "vb", time.Minute))
	require.NoError(t, s.Put(ctx, "c", "vc", 2*time.Minute))
	clock.Advance(90 * time.Second)
	require.NoError(t, s.Put(ctx, "d", "vd", time.Minute))
	assert.Equal(t, 2, s.Len(), "expired entries pruned on put")

	v, err = s.Take(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, "vc", v)
}

func TestTokenResponseOAuth2Token(t *testing.T) {
	now := time.Unix(1700000000, 0)
	tr := &authcore.TokenResponse{AccessToken: "at", TokenType: "Bearer", ExpiresIn: 60, RefreshToken: "rt", IDToken: "idt"}
	tok := tr.OAuth2Token(now)
	assert.Equal(t, "at", tok.AccessToken)
	assert.Equal(t, "rt", tok.RefreshToken)
	assert.Equal(t, now.Add(time.Minute), tok.Expiry)
	assert.Equal(t, "idt", tok.Extra("id_token"))
}

type recordingTransport struct {
	endpoint string
	form     url.Values
}

func (r *recordingTransport) PostForm(ctx context.Context, endpoint string, header http.Header, form url.Values) (*authcore.TransportResponse, error) {
	r.endpoint, r.form = endpoint, form
	return &authcore.TransportResponse{StatusCode: 200, Body: []byte(`{"access_token":"x","token_type":"Bearer"}`)}, nil
}

func TestOAuthCustomTransport(t *testing.T) {
	rt := &recordingTransport{}
	cfg := authcore.OAuthConfig{
		AuthURL:     "https://p.example/auth",
		TokenURL:    "https://p.example/token",
		ClientID:    "public-client",
		RedirectURL: "https://app.example/cb",
	}
	d, err := authcore.NewOAuthDelegate(cfg, authcore.WithTransport(rt))
	require.NoError(t, err)

	tok, err := d.ExchangeCode(context.Background(), "", "code", "verifier")
	require.NoError(t, err)
	assert.Equal(t, "x", tok.AccessToken)
	assert.Equal(t, "https://p.example/token", rt.endpoint)
	assert.False(t, rt.form.Has("client_secret"), "public clients send no secret")
}
