// Package grpc carries authcore sessions across gRPC calls. Clients attach the
// session id or token as "authorization" metadata; server interceptors verify
// it and place the subject in the handler context.
package grpc

import (
	"context"
	"strings"

	"google.golang.org/grpc/metadata"

	"github.com/panyam/authcore"
)

// Default metadata keys.
const (
	// DefaultMetadataKeyAuthorization carries "Bearer <session id or token>".
	DefaultMetadataKeyAuthorization = "authorization"

	// DefaultMetadataKeySubject carries an already verified subject from a
	// trusted gateway (e.g. an HTTP frontend that ran authcore.Middleware).
	DefaultMetadataKeySubject = "x-auth-subject"
)

// Config holds the metadata key configuration.
type Config struct {
	// MetadataKeyAuthorization defaults to "authorization".
	MetadataKeyAuthorization string

	// MetadataKeySubject defaults to "x-auth-subject".
	MetadataKeySubject string

	// TrustForwardedSubject accepts MetadataKeySubject without verification.
	// Enable only when every caller is a trusted gateway.
	TrustForwardedSubject bool
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		MetadataKeyAuthorization: DefaultMetadataKeyAuthorization,
		MetadataKeySubject:       DefaultMetadataKeySubject,
	}
}

// EnsureDefaults fills in default values for any unset fields.
func (c *Config) EnsureDefaults() {
	if c.MetadataKeyAuthorization == "" {
		c.MetadataKeyAuthorization = DefaultMetadataKeyAuthorization
	}
	if c.MetadataKeySubject == "" {
		c.MetadataKeySubject = DefaultMetadataKeySubject
	}
}

// SubjectFromContext returns the subject verified by the server interceptors,
// or "" when the call is unauthenticated.
func SubjectFromContext(ctx context.Context) string {
	return authcore.SubjectFromContext(ctx)
}

// IsAuthenticated reports whether the interceptors verified a subject.
func IsAuthenticated(ctx context.Context) bool {
	return SubjectFromContext(ctx) != ""
}

// TokenToOutgoingContext attaches a session id or token to outgoing metadata.
func TokenToOutgoingContext(ctx context.Context, token string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, DefaultMetadataKeyAuthorization, "Bearer "+token)
}

// SubjectToOutgoingContext forwards a verified subject to a backend that has
// TrustForwardedSubject set.
func SubjectToOutgoingContext(ctx context.Context, subject string) context.Context {
	return SubjectToOutgoingContextWithKey(ctx, subject, DefaultMetadataKeySubject)
}

// SubjectToOutgoingContextWithKey forwards a subject under a custom key.
func SubjectToOutgoingContextWithKey(ctx context.Context, subject string, key string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, key, subject)
}

// tokensFromMetadata returns the candidate tokens on the incoming call.
func tokensFromMetadata(md metadata.MD, key string) []string {
	var out []string
	for _, v := range md.Get(key) {
		v = strings.TrimSpace(v)
		if len(v) > 7 && strings.EqualFold(v[:7], "bearer ") {
			v = strings.TrimSpace(v[7:])
		}
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
