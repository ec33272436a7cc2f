package sessions_test

import (
	"context"
	"testing"
	"time"

	"github.com/sfbridge/sfbridge/internal/errors"
	"github.com/sfbridge/sfbridge/sessions"
	"github.com/stretchr/testify/require"
)

func TestInMemoryRepo(t *testing.T) {
	ctx := context.Background()

	t.Run("save and get round trip", func(t *testing.T) {
		repo := sessions.NewInMemoryRepo(time.Minute)
		session := sessions.New("abc")
		session.CodeVerifier = "verifier"
		session.DomainType = "production"
		require.NoError(t, repo.Save(ctx, session))

		got, err := repo.Get(ctx, "abc")
		require.NoError(t, err)
		require.Equal(t, "verifier", got.CodeVerifier)
		require.False(t, got.ExpiresAt.IsZero())
	})

	t.Run("missing session", func(t *testing.T) {
		repo := sessions.NewInMemoryRepo(time.Minute)
		_, err := repo.Get(ctx, "nope")
		require.ErrorIs(t, err, errors.ErrSessionNotFound)
	})

	t.Run("expired session is gone", func(t *testing.T) {
		repo := sessions.NewInMemoryRepo(-time.Second)
		require.NoError(t, repo.Save(ctx, sessions.New("old")))

		_, err := repo.Get(ctx, "old")
		require.ErrorIs(t, err, errors.ErrSessionNotFound)
	})

	t.Run("save slides expiry forward", func(t *testing.T) {
		repo := sessions.NewInMemoryRepo(time.Minute)
		session := sessions.New("slide")
		require.NoError(t, repo.Save(ctx, session))
		first := session.ExpiresAt

		time.Sleep(5 * time.Millisecond)
		require.NoError(t, repo.Save(ctx, session))
		require.True(t, session.ExpiresAt.After(first))
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		repo := sessions.NewInMemoryRepo(time.Minute)
		require.NoError(t, repo.Save(ctx, sessions.New("gone")))
		require.NoError(t, repo.Delete(ctx, "gone"))
		require.NoError(t, repo.Delete(ctx, "gone"))

		_, err := repo.Get(ctx, "gone")
		require.ErrorIs(t, err, errors.ErrSessionNotFound)
	})

	t.Run("stored copy is isolated from caller mutation", func(t *testing.T) {
		repo := sessions.NewInMemoryRepo(time.Minute)
		session := sessions.New("iso")
		session.Username = "first"
		require.NoError(t, repo.Save(ctx, session))

		session.Username = "mutated-without-save"
		got, err := repo.Get(ctx, "iso")
		require.NoError(t, err)
		require.Equal(t, "first", got.Username)
	})
}

func TestSession_IsAuthenticated(t *testing.T) {
	t.Run("flag alone is not enough", func(t *testing.T) {
		s := sessions.New("x")
		s.Authenticated = true
		require.False(t, s.IsAuthenticated())
	})

	t.Run("requires token and instance host", func(t *testing.T) {
		s := sessions.New("x")
		s.Authenticated = true
		s.AccessToken = "tok"
		s.InstanceHost = "https://acme.my.salesforce.com"
		require.True(t, s.IsAuthenticated())
	})
}

func TestSession_Reset(t *testing.T) {
	s := sessions.New("x")
	s.CodeVerifier = "v"
	s.DomainType = "sandbox"
	s.CustomDomainHost = "acme.my.salesforce.com"
	s.AccessToken = "tok"
	s.RefreshToken = "ref"
	s.InstanceHost = "host"
	s.Username = "user"
	s.Email = "user@example.com"
	s.UserType = "STANDARD"
	s.Authenticated = true

	s.Reset()
	require.False(t, s.IsAuthenticated())
	require.Empty(t, s.CodeVerifier)
	require.Empty(t, s.CustomDomainHost)
	require.Empty(t, s.DomainType)
	require.Empty(t, s.AccessToken)
	require.Empty(t, s.RefreshToken)
	require.Empty(t, s.InstanceHost)
	require.Empty(t, s.Username)
	require.Empty(t, s.Email)
	require.Empty(t, s.UserType)
	require.Equal(t, "x", s.ID)
}

func TestRetryDelay(t *testing.T) {
	require.Equal(t, 500*time.Millisecond, sessions.RetryDelay(0))
	require.Equal(t, time.Second, sessions.RetryDelay(1))
	require.Equal(t, 2*time.Second, sessions.RetryDelay(2))
	require.Equal(t, 4*time.Second, sessions.RetryDelay(3))
	require.Equal(t, 8*time.Second, sessions.RetryDelay(4))
	// Capped beyond that, including pathological inputs.
	require.Equal(t, 8*time.Second, sessions.RetryDelay(10))
	require.Equal(t, 8*time.Second, sessions.RetryDelay(63))
	require.Equal(t, 500*time.Millisecond, sessions.RetryDelay(-1))
}
