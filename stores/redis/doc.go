// Package redis stores authcore sessions and pending PKCE verifiers in Redis.
//
// Sessions are JSON values under {KeyPrefix}session:{id} with a Redis TTL
// matching their expiry, so expired sessions disappear on their own.
// Verifiers live under {KeyPrefix}pkce:{state} and are consumed with GETDEL,
// which lets OAuth callbacks land on any instance.
//
//	store, err := redis.NewFromEnv()
//	auth, err := authcore.New(authcore.Config{
//	    Mode:    authcore.ModeStateful,
//	    Storage: authcore.ComposedStorage{UserStore: users, SessionStore: store},
//	    OAuth:   &oauthCfg,
//	    OAuthOptions: []authcore.OAuthOption{authcore.WithVerifierStore(store.Verifiers())},
//	})
package redis
