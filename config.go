package authcore

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// DefaultEnvPrefix is the prefix ConfigFromEnv uses when given "".
const DefaultEnvPrefix = "AUTH_"

// authEnv holds the raw environment values behind ConfigFromEnv.
type authEnv struct {
	Mode        Mode          `env:"MODE"`
	JWTSecret   string        `env:"JWT_SECRET"`
	JWTIssuer   string        `env:"JWT_ISSUER"`
	JWTAudience string        `env:"JWT_AUDIENCE"`
	SessionTTL  time.Duration `env:"SESSION_TTL" envDefault:"30m"`

	OAuthAuthURL      string        `env:"OAUTH_AUTH_URL"`
	OAuthTokenURL     string        `env:"OAUTH_TOKEN_URL"`
	OAuthClientID     string        `env:"OAUTH_CLIENT_ID"`
	OAuthClientSecret string        `env:"OAUTH_CLIENT_SECRET"`
	OAuthRedirectURL  string        `env:"OAUTH_REDIRECT_URL"`
	OAuthScopes       []string      `env:"OAUTH_SCOPES" envSeparator:","`
	OAuthPendingTTL   time.Duration `env:"OAUTH_PENDING_TTL" envDefault:"10m"`
}

// ConfigFromEnv reads a Config from environment variables named prefix + key,
// e.g. AUTH_MODE, AUTH_JWT_SECRET, AUTH_OAUTH_CLIENT_ID. OAuth is configured
// only when OAUTH_CLIENT_ID is set. Storage, logger and clock are never read
// from the environment; set them on the returned Config before calling New.
func ConfigFromEnv(prefix string) (Config, error) {
	if prefix == "" {
		prefix = DefaultEnvPrefix
	}
	var raw authEnv
	if err := env.ParseWithOptions(&raw, env.Options{Prefix: prefix}); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrConfigurationInvalid, err)
	}

	cfg := Config{
		Mode:        raw.Mode,
		JWTSecret:   raw.JWTSecret,
		JWTIssuer:   raw.JWTIssuer,
		JWTAudience: raw.JWTAudience,
		SessionTTL:  raw.SessionTTL,
	}
	if raw.OAuthClientID != "" {
		cfg.OAuth = &OAuthConfig{
			AuthURL:      raw.OAuthAuthURL,
			TokenURL:     raw.OAuthTokenURL,
			ClientID:     raw.OAuthClientID,
			ClientSecret: raw.OAuthClientSecret,
			RedirectURL:  raw.OAuthRedirectURL,
			Scopes:       raw.OAuthScopes,
			PendingTTL:   raw.OAuthPendingTTL,
		}
	}
	return cfg, nil
}
