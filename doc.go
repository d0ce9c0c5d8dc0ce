// Package authcore is a storage-agnostic authentication core.
//
// It offers local username/password authentication, sessions in one of two
// modes, and an OAuth2 authorization-code delegate with PKCE. The host supplies
// persistence by implementing UserStore and SessionStore; ready-made backends
// live under stores/.
//
// # Session modes
//
// ModeStateful keeps session records in the host SessionStore. Session ids are
// opaque and revocable with DeleteSession.
//
// ModeStateless issues HS256-signed tokens carrying sub, exp, iat, nbf and jti.
// Nothing is stored, so tokens cannot be revoked before they expire.
//
// Both modes implement SessionStrategy. Operations a mode cannot perform
// return ErrUnsupportedOperation.
//
// # Basic Usage
//
//	store := memory.New()
//	auth, err := authcore.New(authcore.Config{
//	    Mode:    authcore.ModeStateful,
//	    Storage: store,
//	})
//
//	user, err := auth.Register(ctx, "alice", "s3cret")
//	user, err = auth.Login(ctx, "alice", "s3cret") // nil on bad credentials
//	sid, err := auth.CreateSession(ctx, user.ID, time.Time{})
//	subject, err := auth.VerifySession(ctx, sid) // "" when invalid
//
// # OAuth
//
// Set Config.OAuth to enable the delegate. OAuthURL with an empty challenge
// generates and retains a verifier under the given state; ExchangeOAuthCode
// with the same state uses it:
//
//	u, _ := auth.OAuthURL(ctx, state, "")
//	// ... redirect, provider calls back with code and state ...
//	tok, err := auth.ExchangeOAuthCode(ctx, state, code, "")
//
// The core never persists provider tokens; they are returned to the caller.
//
// # Configuration
//
// ConfigFromEnv reads AUTH_MODE, AUTH_JWT_SECRET and the AUTH_OAUTH_* variables.
// Storage is always supplied in code.
//
// # HTTP and gRPC
//
// Middleware verifies bearer tokens or session cookies and stores the subject
// in the request context. The grpc subpackage offers matching interceptors.
package authcore
