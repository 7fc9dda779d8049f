package sessions_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jrsteele09/syllabus-tracker/clock/clockfake"
	"github.com/jrsteele09/syllabus-tracker/identity"
	apperrors "github.com/jrsteele09/syllabus-tracker/internal/errors"
	"github.com/jrsteele09/syllabus-tracker/kvstore"
	"github.com/jrsteele09/syllabus-tracker/sessions"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

const (
	testTimeout = time.Hour
	testSecret  = "test-session-secret"
)

var testStart = time.Date(2024, 9, 2, 8, 0, 0, 0, time.UTC)

type sessionConfig struct {
	timeout time.Duration
	secret  string
}

func (c sessionConfig) GetSessionTimeout() time.Duration { return c.timeout }
func (c sessionConfig) GetSessionSecret() string         { return c.secret }

var testUser = identity.Identity{
	ID:        "1099",
	Name:      "Ada Lovelace",
	Email:     "ada@example.com",
	Picture:   "https://example.com/ada.png",
	LoginTime: testStart,
}

type fixture struct {
	store   *kvstore.InMemoryRepo
	clock   *clockfake.FakeClock
	manager *sessions.Manager
	logins  []sessions.Session
}

func fakeAuthenticator(user identity.Identity, err error) identity.Authenticator {
	return identity.AuthenticatorFunc(func(ctx context.Context, token *oauth2.Token) (identity.Identity, error) {
		return user, err
	})
}

func newFixture(t *testing.T, store *kvstore.InMemoryRepo, now time.Time, options ...sessions.ManagerOption) *fixture {
	t.Helper()
	f := &fixture{store: store, clock: clockfake.NewFakeClock(now)}
	options = append([]sessions.ManagerOption{
		sessions.WithClock(f.clock),
		sessions.WithLoginHook(func(ctx context.Context, s sessions.Session) {
			f.logins = append(f.logins, s)
		}),
	}, options...)

	m, err := sessions.NewManager(store, fakeAuthenticator(testUser, nil), sessionConfig{timeout: testTimeout, secret: testSecret}, options...)
	require.NoError(t, err)
	f.manager = m
	return f
}

// unreachableRepo fails every read, like a store that is briefly down.
type unreachableRepo struct {
	*kvstore.InMemoryRepo
}

func (unreachableRepo) Get(context.Context, string) (string, error) {
	return "", errors.New("dial tcp 127.0.0.1:6379: connect: connection refused")
}

func validToken() *oauth2.Token {
	return &oauth2.Token{AccessToken: "access-token"}
}

func storedBlob(t *testing.T, store kvstore.Repo) (string, bool) {
	t.Helper()
	blob, err := store.Get(context.Background(), sessions.StudentSessionKey)
	if errors.Is(err, kvstore.ErrNotFound) {
		return "", false
	}
	require.NoError(t, err)
	return blob, true
}

func TestNewManager(t *testing.T) {
	auth := fakeAuthenticator(testUser, nil)
	cfg := sessionConfig{timeout: testTimeout, secret: testSecret}

	_, err := sessions.NewManager(nil, auth, cfg)
	require.Error(t, err)
	_, err = sessions.NewManager(kvstore.NewInMemoryRepo(), nil, cfg)
	require.Error(t, err)
	_, err = sessions.NewManager(kvstore.NewInMemoryRepo(), auth, sessionConfig{secret: testSecret})
	require.Error(t, err)
	_, err = sessions.NewManager(kvstore.NewInMemoryRepo(), auth, sessionConfig{timeout: testTimeout})
	require.Error(t, err)
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("creates and persists a session", func(t *testing.T) {
		f := newFixture(t, kvstore.NewInMemoryRepo(), testStart)

		s, err := f.manager.Login(ctx, validToken())
		require.NoError(t, err)
		require.Equal(t, testUser, s.User)
		require.Equal(t, testStart.Add(testTimeout), s.ExpiresAt)

		_, ok := storedBlob(t, f.store)
		require.True(t, ok)
		require.Equal(t, 1, f.clock.Pending())
		require.Len(t, f.logins, 1)
		require.True(t, f.manager.Authenticated())
	})

	t.Run("second login replaces the expiry timer", func(t *testing.T) {
		f := newFixture(t, kvstore.NewInMemoryRepo(), testStart)

		_, err := f.manager.Login(ctx, validToken())
		require.NoError(t, err)
		_, err = f.manager.Login(ctx, validToken())
		require.NoError(t, err)
		require.Equal(t, 1, f.clock.Pending())
	})

	t.Run("missing access token", func(t *testing.T) {
		f := newFixture(t, kvstore.NewInMemoryRepo(), testStart)

		_, err := f.manager.Login(ctx, nil)
		require.ErrorIs(t, err, apperrors.ErrAuth)
		_, err = f.manager.Login(ctx, &oauth2.Token{})
		require.ErrorIs(t, err, apperrors.ErrAuth)
		require.False(t, f.manager.Authenticated())
		require.Zero(t, f.clock.Pending())
	})

	t.Run("identity fetch failure", func(t *testing.T) {
		m, err := sessions.NewManager(kvstore.NewInMemoryRepo(), fakeAuthenticator(identity.Identity{}, errors.New("userinfo: 401")), sessionConfig{timeout: testTimeout, secret: testSecret})
		require.NoError(t, err)

		_, err = m.Login(ctx, validToken())
		require.ErrorIs(t, err, apperrors.ErrAuth)
		require.Contains(t, err.Error(), "userinfo: 401")
	})

	t.Run("incomplete identity", func(t *testing.T) {
		m, err := sessions.NewManager(kvstore.NewInMemoryRepo(), fakeAuthenticator(identity.Identity{ID: "1099"}, nil), sessionConfig{timeout: testTimeout, secret: testSecret})
		require.NoError(t, err)

		_, err = m.Login(ctx, validToken())
		require.ErrorIs(t, err, apperrors.ErrAuth)
	})
}

func TestRestore(t *testing.T) {
	ctx := context.Background()

	t.Run("expired session is removed", func(t *testing.T) {
		store := kvstore.NewInMemoryRepo()
		first := newFixture(t, store, testStart)
		_, err := first.manager.Login(ctx, validToken())
		require.NoError(t, err)
		first.manager.Stop()

		// expiresAt = now - 1000ms
		later := newFixture(t, store, testStart.Add(testTimeout+time.Second))
		require.Nil(t, later.manager.Restore(ctx))

		_, ok := storedBlob(t, store)
		require.False(t, ok)
		require.False(t, later.manager.Authenticated())
		require.Empty(t, later.logins)
	})

	t.Run("session expiring exactly now is invalid", func(t *testing.T) {
		store := kvstore.NewInMemoryRepo()
		first := newFixture(t, store, testStart)
		_, err := first.manager.Login(ctx, validToken())
		require.NoError(t, err)
		first.manager.Stop()

		later := newFixture(t, store, testStart.Add(testTimeout))
		require.Nil(t, later.manager.Restore(ctx))
	})

	t.Run("valid session is restored and timer rescheduled", func(t *testing.T) {
		store := kvstore.NewInMemoryRepo()
		first := newFixture(t, store, testStart)
		_, err := first.manager.Login(ctx, validToken())
		require.NoError(t, err)
		first.manager.Stop()

		later := newFixture(t, store, testStart.Add(30*time.Minute))
		s := later.manager.Restore(ctx)
		require.NotNil(t, s)
		require.Equal(t, testUser, s.User)
		require.Equal(t, testStart.Add(testTimeout), s.ExpiresAt)
		require.Equal(t, 1, later.clock.Pending())
		require.Len(t, later.logins, 1)

		again := later.manager.Restore(ctx)
		require.Equal(t, s, again)
		require.Equal(t, 1, later.clock.Pending())
		require.Len(t, later.logins, 1)

		later.clock.Advance(30 * time.Minute)
		require.False(t, later.manager.Authenticated())
		_, ok := storedBlob(t, store)
		require.False(t, ok)
	})

	t.Run("tampered blob is discarded", func(t *testing.T) {
		store := kvstore.NewInMemoryRepo()
		require.NoError(t, store.Set(ctx, sessions.StudentSessionKey, "not-a-session"))

		f := newFixture(t, store, testStart)
		require.Nil(t, f.manager.Restore(ctx))
		_, ok := storedBlob(t, store)
		require.False(t, ok)
	})

	t.Run("blob signed with another secret is discarded", func(t *testing.T) {
		store := kvstore.NewInMemoryRepo()
		other, err := sessions.NewManager(store, fakeAuthenticator(testUser, nil), sessionConfig{timeout: testTimeout, secret: "other"}, sessions.WithClock(clockfake.NewFakeClock(testStart)))
		require.NoError(t, err)
		_, err = other.Login(ctx, validToken())
		require.NoError(t, err)

		f := newFixture(t, store, testStart)
		require.Nil(t, f.manager.Restore(ctx))
	})

	t.Run("nothing persisted", func(t *testing.T) {
		f := newFixture(t, kvstore.NewInMemoryRepo(), testStart)
		require.Nil(t, f.manager.Restore(ctx))
	})

	t.Run("sub-second login agrees with the persisted expiry", func(t *testing.T) {
		f := newFixture(t, kvstore.NewInMemoryRepo(), testStart.Add(900*time.Millisecond))
		s, err := f.manager.Login(ctx, validToken())
		require.NoError(t, err)
		require.Equal(t, testStart.Add(testTimeout), s.ExpiresAt)

		f.clock.Advance(testTimeout - time.Second)
		restored := f.manager.Restore(ctx)
		require.NotNil(t, restored)
		require.Equal(t, s.ExpiresAt, restored.ExpiresAt)
		require.True(t, f.manager.Authenticated())
		_, ok := storedBlob(t, f.store)
		require.True(t, ok)

		f.clock.Advance(100 * time.Millisecond)
		require.False(t, f.manager.Authenticated())
		require.Nil(t, f.manager.Restore(ctx))
	})

	t.Run("store read failure keeps the blob", func(t *testing.T) {
		store := kvstore.NewInMemoryRepo()
		first := newFixture(t, store, testStart)
		_, err := first.manager.Login(ctx, validToken())
		require.NoError(t, err)
		first.manager.Stop()

		m, err := sessions.NewManager(unreachableRepo{store}, fakeAuthenticator(testUser, nil), sessionConfig{timeout: testTimeout, secret: testSecret},
			sessions.WithClock(clockfake.NewFakeClock(testStart.Add(time.Minute))))
		require.NoError(t, err)
		require.Nil(t, m.Restore(ctx))
		_, ok := storedBlob(t, store)
		require.True(t, ok)

		later := newFixture(t, store, testStart.Add(time.Minute))
		require.NotNil(t, later.manager.Restore(ctx))
	})
}

func TestExpiryTimer(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, kvstore.NewInMemoryRepo(), testStart)
	_, err := f.manager.Login(ctx, validToken())
	require.NoError(t, err)

	f.clock.Advance(testTimeout - time.Second)
	require.True(t, f.manager.Authenticated())

	f.clock.Advance(time.Second)
	require.False(t, f.manager.Authenticated())
	require.Nil(t, f.manager.Current())
	_, ok := storedBlob(t, f.store)
	require.False(t, ok)
}

func TestForeground(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewInMemoryRepo()
	first := newFixture(t, store, testStart)
	_, err := first.manager.Login(ctx, validToken())
	require.NoError(t, err)
	first.manager.Stop()

	f := newFixture(t, store, testStart.Add(time.Minute))
	require.Nil(t, f.manager.Foreground(ctx), "unauthenticated apps do not restore on foreground")

	require.NotNil(t, f.manager.Restore(ctx))
	s := f.manager.Foreground(ctx)
	require.NotNil(t, s)
	require.Equal(t, testStart.Add(testTimeout), s.ExpiresAt)
	require.Equal(t, 1, f.clock.Pending())
}

func TestLogout(t *testing.T) {
	ctx := context.Background()

	t.Run("declined", func(t *testing.T) {
		var prompts []string
		f := newFixture(t, kvstore.NewInMemoryRepo(), testStart, sessions.WithConfirmer(sessions.ConfirmerFunc(func(ctx context.Context, prompt string) (bool, error) {
			prompts = append(prompts, prompt)
			return false, nil
		})))
		_, err := f.manager.Login(ctx, validToken())
		require.NoError(t, err)

		done, err := f.manager.Logout(ctx)
		require.NoError(t, err)
		require.False(t, done)
		require.Equal(t, []string{sessions.LogoutPrompt}, prompts)
		require.True(t, f.manager.Authenticated())
		require.Equal(t, 1, f.clock.Pending())
	})

	t.Run("confirmed", func(t *testing.T) {
		f := newFixture(t, kvstore.NewInMemoryRepo(), testStart)
		_, err := f.manager.Login(ctx, validToken())
		require.NoError(t, err)

		done, err := f.manager.Logout(ctx)
		require.NoError(t, err)
		require.True(t, done)
		require.False(t, f.manager.Authenticated())
		require.Zero(t, f.clock.Pending())
		_, ok := storedBlob(t, f.store)
		require.False(t, ok)
	})

	t.Run("confirmation error", func(t *testing.T) {
		f := newFixture(t, kvstore.NewInMemoryRepo(), testStart, sessions.WithConfirmer(sessions.ConfirmerFunc(func(ctx context.Context, prompt string) (bool, error) {
			return false, errors.New("stdin closed")
		})))
		_, err := f.manager.Login(ctx, validToken())
		require.NoError(t, err)

		_, err = f.manager.Logout(ctx)
		require.Error(t, err)
		require.True(t, f.manager.Authenticated())
	})
}
