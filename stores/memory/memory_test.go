package memory_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panyam/authcore"
	"github.com/panyam/authcore/stores/memory"
	"github.com/panyam/authcore/stores/storetest"
)

func TestMemoryUserStore(t *testing.T) {
	storetest.RunUserStoreTests(t, func(t *testing.T) authcore.UserStore { return memory.New() })
}

func TestMemorySessionStore(t *testing.T) {
	storetest.RunSessionStoreTests(t, func(t *testing.T) authcore.SessionStore { return memory.New() })
}

func TestSweepDropsExpired(t *testing.T) {
	s := memory.New()
	ctx := t.Context()
	now := time.Now()

	live, err := s.CreateSession(ctx, "alice", now.Add(time.Hour))
	require.NoError(t, err)
	dead, err := s.CreateSession(ctx, "bob", now.Add(-time.Second))
	require.NoError(t, err)

	assert.Equal(t, 1, s.Sweep(now))

	sess, err := s.GetSession(ctx, live)
	require.NoError(t, err)
	assert.NotNil(t, sess)
	sess, err = s.GetSession(ctx, dead)
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestDeterministicIDs(t *testing.T) {
	n := 0
	s := memory.New(memory.WithIDSource(func() (string, error) {
		n++
		return "id-" + string(rune('0'+n)), nil
	}))
	u, err := s.CreateUser(t.Context(), &authcore.User{Username: "alice"})
	require.NoError(t, err)
	assert.Equal(t, "id-1", u.ID)

	sid, err := s.CreateSession(t.Context(), "alice", time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, "id-2", sid)
}
