package authcore_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panyam/authcore"
	"github.com/panyam/authcore/stores/memory"
)

// usersOnly exposes only the UserStore half of a memory store.
type usersOnly struct{ authcore.UserStore }

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  authcore.Config
		want error
	}{
		{"mode unset", authcore.Config{Storage: memory.New()}, authcore.ErrConfigurationInvalid},
		{"stateful without storage", authcore.Config{Mode: authcore.ModeStateful}, authcore.ErrConfigurationInvalid},
		{"stateless without secret", authcore.Config{Mode: authcore.ModeStateless}, authcore.ErrConfigurationInvalid},
		{"stateful without session store", authcore.Config{Mode: authcore.ModeStateful, Storage: usersOnly{memory.New()}}, authcore.ErrCapabilityMissing},
		{"storage without user store", authcore.Config{Mode: authcore.ModeStateless, JWTSecret: "s", Storage: struct{}{}}, authcore.ErrCapabilityMissing},
		{"bad oauth", authcore.Config{Mode: authcore.ModeStateless, JWTSecret: "s", OAuth: &authcore.OAuthConfig{ClientID: "c"}}, authcore.ErrConfigurationInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := authcore.New(tt.cfg)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestAuthStatefulFlow(t *testing.T) {
	a, err := authcore.New(authcore.Config{Mode: authcore.ModeStateful, Storage: memory.New()})
	require.NoError(t, err)
	ctx := context.Background()
	assert.Equal(t, authcore.ModeStateful, a.Mode())

	_, err = a.Register(ctx, "alice", "pw")
	require.NoError(t, err)
	user, err := a.Login(ctx, "alice", "pw")
	require.NoError(t, err)
	require.NotNil(t, user)

	sid, err := a.CreateSession(ctx, user.Username, time.Time{})
	require.NoError(t, err)
	sub, err := a.VerifySession(ctx, sid)
	require.NoError(t, err)
	assert.Equal(t, "alice", sub)

	sess, err := a.GetSession(ctx, sid)
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, "alice", sess.Subject)

	_, err = a.TokenPayload(ctx, sid)
	assert.ErrorIs(t, err, authcore.ErrUnsupportedOperation)

	require.NoError(t, a.DeleteSession(ctx, sid))
	sub, err = a.VerifySession(ctx, sid)
	require.NoError(t, err)
	assert.Empty(t, sub)

	_, err = a.OAuthURL(ctx, "state", "")
	assert.ErrorIs(t, err, authcore.ErrNotConfigured)
}

func TestAuthStatelessWithoutStorage(t *testing.T) {
	a, err := authcore.New(authcore.Config{Mode: authcore.ModeStateless, JWTSecret: testSecret})
	require.NoError(t, err)
	ctx := context.Background()

	token, err := a.CreateSession(ctx, "alice", time.Time{})
	require.NoError(t, err)
	sub, err := a.VerifySession(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "alice", sub)

	claims, err := a.TokenPayload(ctx, token)
	require.NoError(t, err)
	require.NotNil(t, claims)
	assert.Equal(t, "alice", claims.Subject)

	_, err = a.GetSession(ctx, token)
	assert.ErrorIs(t, err, authcore.ErrUnsupportedOperation)
	assert.ErrorIs(t, a.DeleteSession(ctx, token), authcore.ErrUnsupportedOperation)

	_, err = a.Register(ctx, "alice", "pw")
	assert.ErrorIs(t, err, authcore.ErrNotConfigured)
	_, err = a.Login(ctx, "alice", "pw")
	assert.ErrorIs(t, err, authcore.ErrNotConfigured)
}

func TestAuthComposedStorage(t *testing.T) {
	users := memory.New()
	sessions := memory.New()
	a, err := authcore.New(authcore.Config{
		Mode:    authcore.ModeStateful,
		Storage: authcore.ComposedStorage{UserStore: users, SessionStore: sessions},
	})
	require.NoError(t, err)
	ctx := context.Background()

	_, err = a.Register(ctx, "alice", "pw")
	require.NoError(t, err)
	u, err := users.FindUserByUniqueField(ctx, "alice")
	require.NoError(t, err)
	assert.NotNil(t, u)

	sid, err := a.CreateSession(ctx, "alice", time.Time{})
	require.NoError(t, err)
	sess, err := sessions.GetSession(ctx, sid)
	require.NoError(t, err)
	assert.NotNil(t, sess)

	// a composed value may leave out users entirely
	a, err = authcore.New(authcore.Config{
		Mode:    authcore.ModeStateful,
		Storage: &authcore.ComposedStorage{SessionStore: sessions},
	})
	require.NoError(t, err)
	_, err = a.Register(ctx, "bob", "pw")
	assert.ErrorIs(t, err, authcore.ErrNotConfigured)
}

func TestNegotiateCapabilities(t *testing.T) {
	store := memory.New()
	caps := authcore.NegotiateCapabilities(store)
	assert.NotNil(t, caps.Users)
	assert.NotNil(t, caps.Sessions)

	caps = authcore.NegotiateCapabilities(usersOnly{store})
	assert.NotNil(t, caps.Users)
	assert.Nil(t, caps.Sessions)

	caps = authcore.NegotiateCapabilities(nil)
	assert.Nil(t, caps.Users)
	assert.Nil(t, caps.Sessions)

	var nilComposed *authcore.ComposedStorage
	caps = authcore.NegotiateCapabilities(nilComposed)
	assert.Nil(t, caps.Users)
}

func TestAuthOAuthWired(t *testing.T) {
	p := newMockProvider(t)
	cfg := testOAuthConfig(p)
	a, err := authcore.New(authcore.Config{Mode: authcore.ModeStateless, JWTSecret: testSecret, OAuth: &cfg})
	require.NoError(t, err)
	ctx := context.Background()

	authURL, err := a.OAuthURL(ctx, "state-1", "")
	require.NoError(t, err)
	authorize(t, p, authURL, "code-1")

	tok, err := a.ExchangeOAuthCode(ctx, "state-1", "code-1", "")
	require.NoError(t, err)
	assert.Equal(t, "at-code-1", tok.AccessToken)

	tok, err = a.RefreshOAuthToken(ctx, tok.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "at-refreshed", tok.AccessToken)

	_, err = a.OAuthURL(ctx, "state-2", "")
	require.NoError(t, err)
	require.NoError(t, a.AbandonOAuth(ctx, "state-2"))
	_, err = a.ExchangeOAuthCode(ctx, "state-2", "code-2", "")
	assert.ErrorIs(t, err, authcore.ErrVerifierMissing)
}
