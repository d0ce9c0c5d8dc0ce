package authcore

import (
	"context"
	"errors"
	"net/http"

	"golang.org/x/oauth2"
)

// delegateTokenSource refreshes through the delegate's token endpoint. It is
// always wrapped in oauth2.ReuseTokenSource, which serializes calls to Token.
type delegateTokenSource struct {
	ctx          context.Context
	delegate     *OAuthDelegate
	refreshToken string
}

func (s *delegateTokenSource) Token() (*oauth2.Token, error) {
	if s.refreshToken == "" {
		return nil, errors.New("token expired and no refresh token is available")
	}
	tr, err := s.delegate.RefreshAccessToken(s.ctx, s.refreshToken)
	if err != nil {
		return nil, err
	}
	// Providers that do not rotate refresh tokens omit the field.
	if tr.RefreshToken == "" {
		tr.RefreshToken = s.refreshToken
	}
	s.refreshToken = tr.RefreshToken
	return tr.OAuth2Token(s.delegate.clock.now()), nil
}

// TokenSource returns a source that hands out tok until it expires and then
// refreshes it with RefreshAccessToken. Nothing is persisted; callers that
// need the rotated token can read it from the source.
func (d *OAuthDelegate) TokenSource(ctx context.Context, tok *oauth2.Token) oauth2.TokenSource {
	src := &delegateTokenSource{ctx: ctx, delegate: d}
	if tok != nil {
		src.refreshToken = tok.RefreshToken
	}
	return oauth2.ReuseTokenSource(tok, src)
}

// Client returns an HTTP client that sends tok as a bearer token to resource
// servers and refreshes it when it expires.
func (d *OAuthDelegate) Client(ctx context.Context, tok *oauth2.Token) *http.Client {
	return oauth2.NewClient(ctx, d.TokenSource(ctx, tok))
}
