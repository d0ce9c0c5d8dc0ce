// Package storetest is a conformance suite for authcore.UserStore and
// authcore.SessionStore implementations. Every backend under stores/ runs it.
package storetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panyam/authcore"
)

// UserStoreFactory creates a UserStore for one subtest.
type UserStoreFactory func(t *testing.T) authcore.UserStore

// SessionStoreFactory creates a SessionStore for one subtest.
type SessionStoreFactory func(t *testing.T) authcore.SessionStore

// RunUserStoreTests runs the UserStore suite against stores built by factory.
func RunUserStoreTests(t *testing.T, factory UserStoreFactory) {
	t.Run("Users_FindMissingReturnsNil", func(t *testing.T) { testFindMissingUser(t, factory) })
	t.Run("Users_CreateThenFind", func(t *testing.T) { testCreateThenFind(t, factory) })
	t.Run("Users_DuplicateUsername", func(t *testing.T) { testDuplicateUser(t, factory) })
	t.Run("Users_OAuthOnlyHasNoPassword", func(t *testing.T) { testOAuthOnlyUser(t, factory) })
	t.Run("Users_ConcurrentCreateOneWins", func(t *testing.T) { testConcurrentCreate(t, factory) })
	t.Run("Users_WorksWithLocalAuth", func(t *testing.T) { testLocalAuthRoundTrip(t, factory) })
}

// RunSessionStoreTests runs the SessionStore suite against stores built by
// factory.
func RunSessionStoreTests(t *testing.T, factory SessionStoreFactory) {
	t.Run("Sessions_CreateThenGet", func(t *testing.T) { testCreateThenGet(t, factory) })
	t.Run("Sessions_GetMissingReturnsNil", func(t *testing.T) { testGetMissingSession(t, factory) })
	t.Run("Sessions_IdsAreDistinct", func(t *testing.T) { testDistinctSessionIDs(t, factory) })
	t.Run("Sessions_DeleteIsIdempotent", func(t *testing.T) { testDeleteSession(t, factory) })
	t.Run("Sessions_ExpiredNeverVerifies", func(t *testing.T) { testExpiredSession(t, factory) })
	t.Run("Sessions_StatefulRoundTrip", func(t *testing.T) { testStatefulRoundTrip(t, factory) })
}

func uniqueName(prefix string) string {
	return prefix + "-" + uuid.NewString()
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// --- Users ---

func testFindMissingUser(t *testing.T, factory UserStoreFactory) {
	s := factory(t)
	u, err := s.FindUserByUniqueField(testContext(t), uniqueName("nobody"))
	require.NoError(t, err)
	assert.Nil(t, u)
}

func testCreateThenFind(t *testing.T, factory UserStoreFactory) {
	s := factory(t)
	ctx := testContext(t)
	name := uniqueName("alice")

	created, err := s.CreateUser(ctx, &authcore.User{Username: name, PasswordHash: "aa:bb"})
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, name, created.Username)

	found, err := s.FindUserByUniqueField(ctx, name)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, created.ID, found.ID)
	assert.Equal(t, name, found.Username)
	assert.Equal(t, "aa:bb", found.PasswordHash)
}

func testDuplicateUser(t *testing.T, factory UserStoreFactory) {
	s := factory(t)
	ctx := testContext(t)
	name := uniqueName("dup")

	_, err := s.CreateUser(ctx, &authcore.User{Username: name, PasswordHash: "aa:bb"})
	require.NoError(t, err)

	_, err = s.CreateUser(ctx, &authcore.User{Username: name, PasswordHash: "cc:dd"})
	require.ErrorIs(t, err, authcore.ErrDuplicateUser)

	found, err := s.FindUserByUniqueField(ctx, name)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "aa:bb", found.PasswordHash, "first registration must be kept")
}

func testOAuthOnlyUser(t *testing.T, factory UserStoreFactory) {
	s := factory(t)
	ctx := testContext(t)
	name := uniqueName("oauth")

	_, err := s.CreateUser(ctx, &authcore.User{Username: name})
	require.NoError(t, err)

	found, err := s.FindUserByUniqueField(ctx, name)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.False(t, found.HasPassword())
}

func testConcurrentCreate(t *testing.T, factory UserStoreFactory) {
	s := factory(t)
	ctx := testContext(t)
	name := uniqueName("race")

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = s.CreateUser(ctx, &authcore.User{Username: name, PasswordHash: "aa:bb"})
		}()
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.ErrorIs(t, err, authcore.ErrDuplicateUser)
	}
	assert.Equal(t, 1, wins)
}

func testLocalAuthRoundTrip(t *testing.T, factory UserStoreFactory) {
	local, err := authcore.NewLocalAuth(factory(t), nil)
	require.NoError(t, err)
	ctx := testContext(t)
	name := uniqueName("bob")

	_, err = local.Register(ctx, name, "hunter2")
	require.NoError(t, err)

	u, err := local.Login(ctx, name, "hunter2")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, name, u.Username)

	u, err = local.Login(ctx, name, "hunter3")
	require.NoError(t, err)
	assert.Nil(t, u)
}

// --- Sessions ---

func testCreateThenGet(t *testing.T, factory SessionStoreFactory) {
	s := factory(t)
	ctx := testContext(t)
	subject := uniqueName("user")
	expiresAt := time.Now().Add(time.Hour).Truncate(time.Second)

	id, err := s.CreateSession(ctx, subject, expiresAt)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	sess, err := s.GetSession(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, id, sess.ID)
	assert.Equal(t, subject, sess.Subject)
	assert.Equal(t, expiresAt.Unix(), sess.ExpiresAt.Unix())
}

func testGetMissingSession(t *testing.T, factory SessionStoreFactory) {
	s := factory(t)
	sess, err := s.GetSession(testContext(t), uuid.NewString())
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func testDistinctSessionIDs(t *testing.T, factory SessionStoreFactory) {
	s := factory(t)
	ctx := testContext(t)
	subject := uniqueName("user")
	exp := time.Now().Add(time.Hour)

	seen := map[string]bool{}
	for range 10 {
		id, err := s.CreateSession(ctx, subject, exp)
		require.NoError(t, err)
		require.False(t, seen[id], "duplicate session id %q", id)
		seen[id] = true
	}
}

func testDeleteSession(t *testing.T, factory SessionStoreFactory) {
	s := factory(t)
	ctx := testContext(t)

	id, err := s.CreateSession(ctx, uniqueName("user"), time.Now().Add(time.Hour))
	require.NoError(t, err)

	require.NoError(t, s.DeleteSession(ctx, id))
	sess, err := s.GetSession(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, sess)

	require.NoError(t, s.DeleteSession(ctx, id))
	require.NoError(t, s.DeleteSession(ctx, uuid.NewString()))
}

// Backends with native expiry may drop the record instead of returning it;
// either way it must not verify.
func testExpiredSession(t *testing.T, factory SessionStoreFactory) {
	s := factory(t)
	ctx := testContext(t)

	id, err := s.CreateSession(ctx, uniqueName("user"), time.Now().Add(-time.Minute))
	require.NoError(t, err)

	sess, err := s.GetSession(ctx, id)
	require.NoError(t, err)
	if sess != nil {
		assert.True(t, sess.IsExpired(time.Now()))
	}

	strategy, err := authcore.NewStatefulSession(s)
	require.NoError(t, err)
	subject, err := strategy.Verify(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, subject)
}

func testStatefulRoundTrip(t *testing.T, factory SessionStoreFactory) {
	strategy, err := authcore.NewStatefulSession(factory(t))
	require.NoError(t, err)
	ctx := testContext(t)
	subject := uniqueName("alice")

	id, err := strategy.Create(ctx, subject, time.Time{})
	require.NoError(t, err)

	got, err := strategy.Verify(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, subject, got)

	require.NoError(t, strategy.Delete(ctx, id))
	got, err = strategy.Verify(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, got)
}
