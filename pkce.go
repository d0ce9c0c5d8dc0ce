package authcore

import "golang.org/x/oauth2"

// CodeChallengeMethod is the only PKCE transform this package produces.
const CodeChallengeMethod = "S256"

// GenerateCodeVerifier returns a PKCE code verifier: 32 bytes from crypto/rand,
// base64url encoded without padding (43 characters).
func GenerateCodeVerifier() string {
	return oauth2.GenerateVerifier()
}

// GenerateCodeChallenge returns the S256 challenge for verifier:
// base64url(sha256(verifier)) without padding.
func GenerateCodeChallenge(verifier string) string {
	return oauth2.S256ChallengeFromVerifier(verifier)
}
