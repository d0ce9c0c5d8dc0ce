package authcore

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims is the payload of a stateless session token.
// sub, exp and jti are always set by StatelessSession; iat, nbf, iss and aud
// are optional.
type TokenClaims struct {
	jwt.RegisteredClaims
}

var tokenSigningMethod = jwt.SigningMethodHS256

// SignToken serializes claims as a compact HS256 token:
// base64url(header).base64url(payload).base64url(signature), where the header
// is exactly {"alg":"HS256","typ":"JWT"}. The signature is deterministic for a
// given header, payload and secret.
func SignToken(claims *TokenClaims, secret string) (string, error) {
	if secret == "" {
		return "", errors.New("signing secret is empty")
	}
	if claims == nil {
		claims = &TokenClaims{}
	}
	token := jwt.NewWithClaims(tokenSigningMethod, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// VerifyToken checks the signature of token against secret and returns its
// claims, or nil if the token is malformed, the signature does not match, or the
// payload cannot be parsed.
//
// The signature is compared (in constant time) before any part of the payload
// is decoded. Temporal claims are not checked here.
func VerifyToken(token, secret string) *TokenClaims {
	if secret == "" {
		return nil
	}
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil
	}

	parser := jwt.NewParser()
	sig, err := parser.DecodeSegment(parts[2])
	if err != nil {
		return nil
	}
	signingString := parts[0] + "." + parts[1]
	if err := tokenSigningMethod.Verify(signingString, sig, []byte(secret)); err != nil {
		return nil
	}

	// Authenticated from here on.
	headerBytes, err := parser.DecodeSegment(parts[0])
	if err != nil {
		return nil
	}
	var header map[string]any
	if err := json.Unmarshal(headerBytes, &header); err != nil {
		return nil
	}
	if alg, _ := header["alg"].(string); alg != tokenSigningMethod.Alg() {
		return nil
	}

	payload, err := parser.DecodeSegment(parts[1])
	if err != nil {
		return nil
	}
	var claims TokenClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil
	}
	return &claims
}
