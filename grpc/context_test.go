package grpc

import (
	"context"
	"testing"

	"google.golang.org/grpc/metadata"

	"github.com/panyam/authcore"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()
	if config.MetadataKeyAuthorization != DefaultMetadataKeyAuthorization {
		t.Errorf("expected MetadataKeyAuthorization %q, got %q", DefaultMetadataKeyAuthorization, config.MetadataKeyAuthorization)
	}
	if config.MetadataKeySubject != DefaultMetadataKeySubject {
		t.Errorf("expected MetadataKeySubject %q, got %q", DefaultMetadataKeySubject, config.MetadataKeySubject)
	}
	if config.TrustForwardedSubject {
		t.Error("expected TrustForwardedSubject to be false by default")
	}
}

func TestEnsureDefaults(t *testing.T) {
	config := &Config{}
	config.EnsureDefaults()
	if config.MetadataKeyAuthorization != DefaultMetadataKeyAuthorization {
		t.Errorf("expected MetadataKeyAuthorization %q, got %q", DefaultMetadataKeyAuthorization, config.MetadataKeyAuthorization)
	}
	if config.MetadataKeySubject != DefaultMetadataKeySubject {
		t.Errorf("expected MetadataKeySubject %q, got %q", DefaultMetadataKeySubject, config.MetadataKeySubject)
	}
}

func TestSubjectFromContext(t *testing.T) {
	if got := SubjectFromContext(context.Background()); got != "" {
		t.Errorf("expected empty subject, got %q", got)
	}
	ctx := authcore.ContextWithSubject(context.Background(), "alice")
	if got := SubjectFromContext(ctx); got != "alice" {
		t.Errorf("expected subject %q, got %q", "alice", got)
	}
	if !IsAuthenticated(ctx) {
		t.Error("expected IsAuthenticated to be true")
	}
}

func TestTokenToOutgoingContext(t *testing.T) {
	ctx := TokenToOutgoingContext(context.Background(), "tok-1")
	md, ok := metadata.FromOutgoingContext(ctx)
	if !ok {
		t.Fatal("expected outgoing metadata")
	}
	values := md.Get(DefaultMetadataKeyAuthorization)
	if len(values) != 1 || values[0] != "Bearer tok-1" {
		t.Errorf("expected [Bearer tok-1], got %v", values)
	}
}

func TestSubjectToOutgoingContext(t *testing.T) {
	ctx := SubjectToOutgoingContext(context.Background(), "alice")
	md, ok := metadata.FromOutgoingContext(ctx)
	if !ok {
		t.Fatal("expected outgoing metadata")
	}
	values := md.Get(DefaultMetadataKeySubject)
	if len(values) != 1 || values[0] != "alice" {
		t.Errorf("expected [alice], got %v", values)
	}
}

func TestTokensFromMetadata(t *testing.T) {
	md := metadata.Pairs(
		DefaultMetadataKeyAuthorization, "Bearer tok-1",
		DefaultMetadataKeyAuthorization, "tok-2",
		DefaultMetadataKeyAuthorization, "  ",
	)
	got := tokensFromMetadata(md, DefaultMetadataKeyAuthorization)
	if len(got) != 2 || got[0] != "tok-1" || got[1] != "tok-2" {
		t.Errorf("expected [tok-1 tok-2], got %v", got)
	}
}
