//go:build !wasm
// +build !wasm

// Package gae provides Google Cloud Datastore implementations of
// authcore.UserStore and authcore.SessionStore. It supports multi-tenancy
// through Datastore namespaces.
//
// # Datastore Kinds
//
//   - User: keyed by username, so uniqueness is enforced by the key itself
//   - Session: keyed by session id
//
// # Namespacing
//
// Pass a namespace when creating stores to isolate data between tenants:
//
//	store := gae.NewStore(client, "tenant-123")
//
// # Usage
//
//	client, _ := datastore.NewClient(ctx, projectID)
//	auth, _ := authcore.New(authcore.Config{
//	    Mode:    authcore.ModeStateful,
//	    Storage: gae.NewStore(client, ""),
//	})
package gae
