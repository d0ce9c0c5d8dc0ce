package authcore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"
)

// OAuthConfig describes one OAuth2 provider for the authorization-code flow.
type OAuthConfig struct {
	AuthURL      string
	TokenURL     string
	ClientID     string
	ClientSecret string // optional, public clients rely on PKCE alone
	RedirectURL  string
	Scopes       []string

	// PendingTTL bounds how long a verifier generated by AuthURL is retained.
	// Defaults to DefaultPendingTTL.
	PendingTTL time.Duration
}

// WithEndpoint returns a copy of c using the auth and token URLs of e, e.g.
// google.Endpoint or github.Endpoint from golang.org/x/oauth2.
func (c OAuthConfig) WithEndpoint(e oauth2.Endpoint) OAuthConfig {
	c.AuthURL = e.AuthURL
	c.TokenURL = e.TokenURL
	return c
}

// Validate checks that the required fields are set and the URLs parse.
func (c *OAuthConfig) Validate() error {
	if c.ClientID == "" {
		return fmt.Errorf("%w: oauth client id is required", ErrConfigurationInvalid)
	}
	if c.RedirectURL == "" {
		return fmt.Errorf("%w: oauth redirect url is required", ErrConfigurationInvalid)
	}
	for name, raw := range map[string]string{"auth url": c.AuthURL, "token url": c.TokenURL} {
		if raw == "" {
			return fmt.Errorf("%w: oauth %s is required", ErrConfigurationInvalid, name)
		}
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%w: oauth %s %q is not an absolute url", ErrConfigurationInvalid, name, raw)
		}
	}
	return nil
}

// TokenResponse is a provider's token endpoint response. It is handed to the
// caller as is and never persisted here.
type TokenResponse struct {
	TokenType    string `json:"token_type"`
	AccessToken  string `json:"access_token"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
	Scope        string `json:"scope,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	IDToken      string `json:"id_token,omitempty"`
}

// OAuth2Token converts the response to an *oauth2.Token, computing Expiry from
// ExpiresIn relative to now.
func (t *TokenResponse) OAuth2Token(now time.Time) *oauth2.Token {
	tok := &oauth2.Token{
		AccessToken:  t.AccessToken,
		TokenType:    t.TokenType,
		RefreshToken: t.RefreshToken,
	}
	if t.ExpiresIn > 0 {
		tok.Expiry = now.Add(time.Duration(t.ExpiresIn) * time.Second)
	}
	extra := map[string]any{}
	if t.Scope != "" {
		extra["scope"] = t.Scope
	}
	if t.IDToken != "" {
		extra["id_token"] = t.IDToken
	}
	if len(extra) > 0 {
		tok = tok.WithExtra(extra)
	}
	return tok
}

// ExchangeError is returned when the token endpoint rejects a request.
// errors.Is(err, ErrExchangeFailed) holds for it.
type ExchangeError struct {
	StatusCode  int
	Code        string // OAuth "error" field, when the provider sent one
	Description string // OAuth "error_description" field
}

func (e *ExchangeError) Error() string {
	msg := fmt.Sprintf("token request failed: %d", e.StatusCode)
	if e.Code != "" {
		msg += " " + e.Code
	}
	if e.Description != "" {
		msg += ": " + e.Description
	}
	return msg
}

func (e *ExchangeError) Unwrap() error { return ErrExchangeFailed }

// OAuthDelegate runs the authorization-code + PKCE flow against one provider.
//
// Verifiers generated by AuthURL are kept in a VerifierStore keyed by state, so
// concurrent authorization attempts on one delegate do not interfere.
type OAuthDelegate struct {
	config    OAuthConfig
	oauth2    oauth2.Config
	transport Transport
	verifiers VerifierStore
	logger    *slog.Logger
	clock     Clock
}

// OAuthOption customizes an OAuthDelegate.
type OAuthOption func(*OAuthDelegate)

// WithTransport sets the transport used to reach the token endpoint.
func WithTransport(t Transport) OAuthOption {
	return func(d *OAuthDelegate) { d.transport = t }
}

// WithVerifierStore replaces the in-memory verifier store, e.g. with a shared
// Redis store when callbacks may land on a different instance.
func WithVerifierStore(s VerifierStore) OAuthOption {
	return func(d *OAuthDelegate) { d.verifiers = s }
}

// WithOAuthLogger sets the logger. Defaults to slog.Default().
func WithOAuthLogger(l *slog.Logger) OAuthOption {
	return func(d *OAuthDelegate) { d.logger = l }
}

// WithOAuthClock overrides time.Now.
func WithOAuthClock(c Clock) OAuthOption {
	return func(d *OAuthDelegate) { d.clock = c }
}

// NewOAuthDelegate validates cfg and returns a delegate.
func NewOAuthDelegate(cfg OAuthConfig, opts ...OAuthOption) (*OAuthDelegate, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.PendingTTL <= 0 {
		cfg.PendingTTL = DefaultPendingTTL
	}
	d := &OAuthDelegate{
		config: cfg,
		oauth2: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthURL,
				TokenURL: cfg.TokenURL,
			},
		},
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.transport == nil {
		d.transport = NewHTTPTransport(nil)
	}
	if d.verifiers == nil {
		d.verifiers = NewMemoryVerifierStore(d.clock)
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	return d, nil
}

// AuthURL builds the provider authorization URL for state. When codeChallenge
// is empty a verifier/challenge pair is generated and the verifier retained for
// the ExchangeCode call carrying the same state.
func (d *OAuthDelegate) AuthURL(ctx context.Context, state, codeChallenge string) (string, error) {
	if state == "" {
		return "", errors.New("oauth state is required")
	}
	var opts []oauth2.AuthCodeOption
	if codeChallenge == "" {
		verifier := GenerateCodeVerifier()
		if err := d.verifiers.Put(ctx, state, verifier, d.config.PendingTTL); err != nil {
			return "", fmt.Errorf("failed to retain code verifier: %w", err)
		}
		opts = append(opts, oauth2.S256ChallengeOption(verifier))
	} else {
		opts = append(opts,
			oauth2.SetAuthURLParam("code_challenge", codeChallenge),
			oauth2.SetAuthURLParam("code_challenge_method", CodeChallengeMethod))
	}
	return d.oauth2.AuthCodeURL(state, opts...), nil
}

// ExchangeCode trades an authorization code for tokens. codeVerifier may be
// empty, in which case the verifier retained by AuthURL for state is used. Any
// retained verifier for state is consumed by this call whatever its outcome.
func (d *OAuthDelegate) ExchangeCode(ctx context.Context, state, code, codeVerifier string) (*TokenResponse, error) {
	verifier := codeVerifier
	if state != "" {
		retained, err := d.verifiers.Take(ctx, state)
		if err != nil {
			return nil, fmt.Errorf("failed to load code verifier: %w", err)
		}
		if verifier == "" {
			verifier = retained
		}
	}
	if verifier == "" {
		return nil, ErrVerifierMissing
	}

	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", d.config.RedirectURL)
	form.Set("client_id", d.config.ClientID)
	if d.config.ClientSecret != "" {
		form.Set("client_secret", d.config.ClientSecret)
	}
	form.Set("code_verifier", verifier)
	tr, err := d.requestToken(ctx, form)
	if err != nil {
		return nil, err
	}
	if missing := MissingScopes(tr.GrantedScopes(d.config.Scopes), d.config.Scopes); len(missing) > 0 {
		d.logger.InfoContext(ctx, "provider granted fewer scopes than requested", "missing", JoinScopes(missing))
	}
	return tr, nil
}

// RefreshAccessToken exchanges a refresh token for a new access token.
func (d *OAuthDelegate) RefreshAccessToken(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	if refreshToken == "" {
		return nil, errors.New("refresh token is required")
	}
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	form.Set("client_id", d.config.ClientID)
	if d.config.ClientSecret != "" {
		form.Set("client_secret", d.config.ClientSecret)
	}
	return d.requestToken(ctx, form)
}

// Abandon drops the verifier retained for state.
func (d *OAuthDelegate) Abandon(ctx context.Context, state string) error {
	return d.verifiers.Delete(ctx, state)
}

func (d *OAuthDelegate) requestToken(ctx context.Context, form url.Values) (*TokenResponse, error) {
	header := http.Header{}
	header.Set("Content-Type", "application/x-www-form-urlencoded")
	header.Set("Accept", "application/json")

	resp, err := d.transport.PostForm(ctx, d.config.TokenURL, header, form)
	if err != nil {
		return nil, fmt.Errorf("token request to %s: %w", d.config.TokenURL, err)
	}

	var body struct {
		TokenResponse
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	decodeErr := json.Unmarshal(resp.Body, &body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 || body.Error != "" {
		exErr := &ExchangeError{StatusCode: resp.StatusCode, Code: body.Error, Description: body.ErrorDescription}
		d.logger.WarnContext(ctx, "oauth token request rejected",
			"grant_type", form.Get("grant_type"), "status", resp.StatusCode, "error", body.Error)
		return nil, exErr
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("%w: invalid token response: %v", ErrExchangeFailed, decodeErr)
	}
	if body.AccessToken == "" {
		return nil, fmt.Errorf("%w: response has no access token", ErrExchangeFailed)
	}
	tr := body.TokenResponse
	return &tr, nil
}
