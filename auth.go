package authcore

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Config configures an Auth. It is validated once by New.
type Config struct {
	// Mode selects stateful sessions or stateless tokens. Required.
	Mode Mode

	// Storage is the host persistence layer. It is inspected once for
	// UserStore (enables Register/Login) and SessionStore (required by
	// ModeStateful). Optional in ModeStateless.
	Storage any

	// JWTSecret signs stateless tokens. Required by ModeStateless.
	JWTSecret string
	// Optional iss/aud claims for stateless tokens.
	JWTIssuer   string
	JWTAudience string

	// SessionTTL is the lifetime used when CreateSession gets no expiry.
	// Defaults to DefaultSessionTTL.
	SessionTTL time.Duration

	// OAuth enables the OAuth delegate when non-nil.
	OAuth        *OAuthConfig
	OAuthOptions []OAuthOption

	Logger   *slog.Logger
	Clock    Clock
	IDSource IDSource
}

// Auth is the single entry point over local credentials, the selected session
// strategy and the optional OAuth delegate.
type Auth struct {
	session SessionStrategy
	local   *LocalAuth
	oauth   *OAuthDelegate
	logger  *slog.Logger
}

// New validates cfg and builds an Auth. Failures match ErrConfigurationInvalid
// or ErrCapabilityMissing.
func New(cfg Config) (*Auth, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	caps := NegotiateCapabilities(cfg.Storage)
	if cfg.Storage != nil && caps.Users == nil && !caps.composed {
		return nil, fmt.Errorf("%w: storage %T does not implement UserStore", ErrCapabilityMissing, cfg.Storage)
	}

	sessionOpts := []SessionOption{
		WithSessionTTL(cfg.SessionTTL),
		WithClock(cfg.Clock),
		WithIDSource(cfg.IDSource),
		WithLogger(logger),
		WithIssuer(cfg.JWTIssuer),
		WithAudience(cfg.JWTAudience),
	}

	a := &Auth{logger: logger}
	var err error
	switch cfg.Mode {
	case ModeStateful:
		if cfg.Storage == nil {
			return nil, fmt.Errorf("%w: storage is required for stateful sessions", ErrConfigurationInvalid)
		}
		if caps.Sessions == nil {
			return nil, fmt.Errorf("%w: storage %T does not implement SessionStore", ErrCapabilityMissing, cfg.Storage)
		}
		a.session, err = NewStatefulSession(caps.Sessions, sessionOpts...)
	case ModeStateless:
		a.session, err = NewStatelessSession(cfg.JWTSecret, sessionOpts...)
	default:
		return nil, fmt.Errorf("%w: session mode must be stateful or stateless, got %s", ErrConfigurationInvalid, cfg.Mode)
	}
	if err != nil {
		return nil, err
	}

	if caps.Users != nil {
		if a.local, err = NewLocalAuth(caps.Users, logger); err != nil {
			return nil, err
		}
	}

	if cfg.OAuth != nil {
		opts := append([]OAuthOption{WithOAuthLogger(logger), WithOAuthClock(cfg.Clock)}, cfg.OAuthOptions...)
		if a.oauth, err = NewOAuthDelegate(*cfg.OAuth, opts...); err != nil {
			return nil, err
		}
	}

	logger.Debug("auth configured", "mode", cfg.Mode.String(), "local", a.local != nil, "oauth", a.oauth != nil)
	return a, nil
}

// Mode reports the active session mode.
func (a *Auth) Mode() Mode { return a.session.Mode() }

// Sessions exposes the active strategy.
func (a *Auth) Sessions() SessionStrategy { return a.session }

func (a *Auth) Register(ctx context.Context, username, password string) (*User, error) {
	if a.local == nil {
		return nil, fmt.Errorf("%w: local auth needs a UserStore", ErrNotConfigured)
	}
	return a.local.Register(ctx, username, password)
}

// Login returns nil, nil when the credentials do not authenticate.
func (a *Auth) Login(ctx context.Context, username, password string) (*User, error) {
	if a.local == nil {
		return nil, fmt.Errorf("%w: local auth needs a UserStore", ErrNotConfigured)
	}
	return a.local.Login(ctx, username, password)
}

// CreateSession returns a session id (stateful) or a signed token (stateless).
// A zero expiresAt uses the configured TTL.
func (a *Auth) CreateSession(ctx context.Context, subject string, expiresAt time.Time) (string, error) {
	return a.session.Create(ctx, subject, expiresAt)
}

// VerifySession returns the subject of a valid session id or token, or "".
func (a *Auth) VerifySession(ctx context.Context, sessionIDOrToken string) (string, error) {
	return a.session.Verify(ctx, sessionIDOrToken)
}

// GetSession returns the raw session record. Stateful mode only.
func (a *Auth) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	return a.session.Get(ctx, sessionID)
}

// DeleteSession revokes a session. Stateful mode only.
func (a *Auth) DeleteSession(ctx context.Context, sessionID string) error {
	return a.session.Delete(ctx, sessionID)
}

// TokenPayload returns a token's claims regardless of expiry. Stateless mode only.
func (a *Auth) TokenPayload(ctx context.Context, token string) (*TokenClaims, error) {
	return a.session.Payload(ctx, token)
}

func (a *Auth) OAuthURL(ctx context.Context, state, codeChallenge string) (string, error) {
	if a.oauth == nil {
		return "", fmt.Errorf("%w: oauth", ErrNotConfigured)
	}
	return a.oauth.AuthURL(ctx, state, codeChallenge)
}

func (a *Auth) ExchangeOAuthCode(ctx context.Context, state, code, codeVerifier string) (*TokenResponse, error) {
	if a.oauth == nil {
		return nil, fmt.Errorf("%w: oauth", ErrNotConfigured)
	}
	return a.oauth.ExchangeCode(ctx, state, code, codeVerifier)
}

func (a *Auth) RefreshOAuthToken(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	if a.oauth == nil {
		return nil, fmt.Errorf("%w: oauth", ErrNotConfigured)
	}
	return a.oauth.RefreshAccessToken(ctx, refreshToken)
}

// AbandonOAuth drops the verifier retained for an authorization attempt that
// will not complete.
func (a *Auth) AbandonOAuth(ctx context.Context, state string) error {
	if a.oauth == nil {
		return fmt.Errorf("%w: oauth", ErrNotConfigured)
	}
	return a.oauth.Abandon(ctx, state)
}
