package authcore

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// StatelessSession issues self-contained signed tokens. Nothing is stored, so
// any instance holding the same secret can verify any token; the flip side is
// that a token cannot be revoked before it expires.
type StatelessSession struct {
	secret string
	opts   sessionOptions
}

var _ SessionStrategy = (*StatelessSession)(nil)

// NewStatelessSession returns a token strategy signing with secret.
func NewStatelessSession(secret string, opts ...SessionOption) (*StatelessSession, error) {
	if secret == "" {
		return nil, fmt.Errorf("%w: jwt secret is required for stateless sessions", ErrConfigurationInvalid)
	}
	return &StatelessSession{secret: secret, opts: newSessionOptions(opts)}, nil
}

func (s *StatelessSession) Mode() Mode { return ModeStateless }

// Create signs a token with sub, exp, a fresh jti, and iat/nbf set to now.
func (s *StatelessSession) Create(ctx context.Context, subject string, expiresAt time.Time) (string, error) {
	if subject == "" {
		return "", fmt.Errorf("subject is required")
	}
	jti, err := s.opts.ids.next()
	if err != nil {
		return "", err
	}
	now := s.opts.clock.now()
	claims := &TokenClaims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(s.opts.expiry(now, expiresAt)),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ID:        jti,
		Issuer:    s.opts.issuer,
	}}
	if s.opts.audience != "" {
		claims.Audience = jwt.ClaimStrings{s.opts.audience}
	}
	return SignToken(claims, s.secret)
}

// Verify returns the subject of a token whose signature checks out and whose
// exp is in the future.
func (s *StatelessSession) Verify(ctx context.Context, token string) (string, error) {
	claims := VerifyToken(token, s.secret)
	if claims == nil {
		return "", nil
	}
	now := s.opts.clock.now()
	if claims.ExpiresAt == nil || !claims.ExpiresAt.After(now) {
		s.opts.logger.DebugContext(ctx, "token expired", "subject", claims.Subject, "jti", claims.ID)
		return "", nil
	}
	if claims.NotBefore != nil && claims.NotBefore.After(now) {
		return "", nil
	}
	if s.opts.issuer != "" && claims.Issuer != s.opts.issuer {
		return "", nil
	}
	if s.opts.audience != "" && !slices.Contains(claims.Audience, s.opts.audience) {
		return "", nil
	}
	return claims.Subject, nil
}

func (s *StatelessSession) Get(ctx context.Context, token string) (*Session, error) {
	return nil, fmt.Errorf("%w: GetSession requires stateful sessions", ErrUnsupportedOperation)
}

func (s *StatelessSession) Delete(ctx context.Context, token string) error {
	return fmt.Errorf("%w: DeleteSession requires stateful sessions", ErrUnsupportedOperation)
}

// Payload returns the signed claims regardless of expiry, or nil if the
// signature does not verify.
func (s *StatelessSession) Payload(ctx context.Context, token string) (*TokenClaims, error) {
	return VerifyToken(token, s.secret), nil
}
