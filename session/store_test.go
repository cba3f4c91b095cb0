package session_test

import (
	"context"
	"sync"
	"testing"
	"time"

	errs "github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/jrsteele09/go-auth-session/refresh"
	"github.com/jrsteele09/go-auth-session/session"
	"github.com/jrsteele09/go-auth-session/session/repofakes"
	"github.com/jrsteele09/go-auth-session/session/sessionfakes"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

var now = time.Unix(1_700_000_000, 0)

func newTestStore(repo session.Repo, refresher session.Refresher) *session.Store {
	return session.New(repo, refresher,
		session.WithNowFunc(func() time.Time { return now }),
		session.WithLogger(zerolog.Nop()),
	)
}

func TestStore_IsValid(t *testing.T) {
	tests := []struct {
		name  string
		token string
		valid bool
	}{
		{"no token", "", false},
		{"expires in future", sessionfakes.AccessToken(now.Add(time.Hour)), true},
		{"expired", sessionfakes.AccessToken(now.Add(-time.Minute)), false},
		{"expires now", sessionfakes.AccessToken(now), false},
		{"no exp claim", sessionfakes.AccessTokenWithoutExp(), false},
		{"not a jwt", "not-a-token", false},
		{"bad payload", "eyJhbGciOiJIUzI1NiJ9.%%%%.sig", false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			store := newTestStore(repofakes.NewFakeSessionRepo("", ""), sessionfakes.NewFakeRefresher(refresh.Pair{}, nil))
			store.SetSession(test.token, "refresh")
			require.Equal(t, test.valid, store.IsValid())
		})
	}
}

func TestStore_SeedFromRepo(t *testing.T) {
	refresher := sessionfakes.NewFakeRefresher(refresh.Pair{}, nil)

	t.Run("persisted session", func(t *testing.T) {
		access := sessionfakes.AccessToken(now.Add(time.Hour))
		store := newTestStore(repofakes.NewFakeSessionRepo(access, "refresh"), refresher)

		require.True(t, store.IsAuthenticated())
		require.True(t, store.IsValid())
		require.True(t, now.Add(time.Hour).Equal(store.ExpiresAt()))
	})

	t.Run("expired access token is still authenticated", func(t *testing.T) {
		store := newTestStore(repofakes.NewFakeSessionRepo(sessionfakes.AccessToken(now.Add(-time.Hour)), "refresh"), refresher)
		require.True(t, store.IsAuthenticated())
		require.False(t, store.IsValid())
	})

	t.Run("storage unavailable", func(t *testing.T) {
		store := newTestStore(repofakes.NewUnavailableSessionRepo(), refresher)
		require.False(t, store.IsAuthenticated())
		_, ok := store.CurrentAccessToken()
		require.False(t, ok)
	})

	t.Run("corrupted storage is cleared", func(t *testing.T) {
		repo := repofakes.NewFakeSessionRepo("a", "r")
		repo.LoadErr = errs.Wrapf(errs.ErrMalformedToken, "bad json")
		store := newTestStore(repo, refresher)

		require.False(t, store.IsAuthenticated())
		require.Equal(t, 1, repo.Clears)
	})

	t.Run("incomplete pair is cleared", func(t *testing.T) {
		repo := repofakes.NewFakeSessionRepo(sessionfakes.AccessToken(now.Add(time.Hour)), "")
		store := newTestStore(repo, refresher)

		require.False(t, store.IsAuthenticated())
		require.Equal(t, session.Session{}, repo.Stored())
	})
}

func TestStore_SetAndClearSession(t *testing.T) {
	repo := repofakes.NewFakeSessionRepo("", "")
	store := newTestStore(repo, sessionfakes.NewFakeRefresher(refresh.Pair{}, nil))

	var seen []bool
	unsubscribe := store.Subscribe(func(s session.Session) {
		seen = append(seen, s.IsAuthenticated())
	})

	access := sessionfakes.AccessToken(now.Add(time.Hour))
	store.SetSession(access, "refresh")

	token, ok := store.CurrentAccessToken()
	require.True(t, ok)
	require.Equal(t, access, token)
	require.Equal(t, "refresh", repo.Stored().RefreshToken)
	require.True(t, now.Add(time.Hour).Equal(store.Snapshot().ExpiresAt))

	store.ClearSession()
	require.False(t, store.IsAuthenticated())
	require.Equal(t, session.Session{}, repo.Stored())
	require.True(t, store.ExpiresAt().IsZero())

	unsubscribe()
	store.SetSession(access, "refresh")

	require.Equal(t, []bool{true, false}, seen)
}

func TestStore_ObserversSeeMutationOrder(t *testing.T) {
	store := newTestStore(repofakes.NewFakeSessionRepo("", ""), sessionfakes.NewFakeRefresher(refresh.Pair{}, nil))

	var mu sync.Mutex
	var tokens []string
	store.Subscribe(func(s session.Session) {
		mu.Lock()
		defer mu.Unlock()
		tokens = append(tokens, s.RefreshToken)
	})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store.SetSession(sessionfakes.AccessToken(now.Add(time.Hour)), "refresh")
			store.ClearSession()
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, tokens, 40)
	// The last notification always matches the final state
	require.Equal(t, store.Snapshot().RefreshToken, tokens[len(tokens)-1])
}

func TestStore_SaveFailureKeepsMemorySession(t *testing.T) {
	store := newTestStore(repofakes.NewUnavailableSessionRepo(), sessionfakes.NewFakeRefresher(refresh.Pair{}, nil))

	store.SetSession(sessionfakes.AccessToken(now.Add(time.Hour)), "refresh")
	require.True(t, store.IsAuthenticated())
	require.True(t, store.IsValid())
}

func TestStore_EnsureValidToken(t *testing.T) {
	expired := sessionfakes.AccessToken(now.Add(-time.Minute))
	fresh := sessionfakes.AccessToken(now.Add(time.Hour))

	t.Run("valid token does not refresh", func(t *testing.T) {
		refresher := sessionfakes.NewFakeRefresher(refresh.Pair{}, nil)
		store := newTestStore(repofakes.NewFakeSessionRepo(fresh, "refresh"), refresher)

		token, err := store.EnsureValidToken(context.Background())
		require.NoError(t, err)
		require.Equal(t, fresh, token)
		require.Equal(t, 0, refresher.Calls())
	})

	t.Run("expired token is refreshed", func(t *testing.T) {
		refresher := sessionfakes.NewFakeRefresher(refresh.Pair{AccessToken: fresh, RefreshToken: "rotated"}, nil)
		repo := repofakes.NewFakeSessionRepo(expired, "refresh")
		store := newTestStore(repo, refresher)

		token, err := store.EnsureValidToken(context.Background())
		require.NoError(t, err)
		require.Equal(t, fresh, token)
		require.Equal(t, []string{"refresh"}, refresher.RefreshTokens())
		require.Equal(t, "rotated", repo.Stored().RefreshToken)
		require.True(t, store.IsValid())
	})

	t.Run("unrotated refresh token is kept", func(t *testing.T) {
		refresher := sessionfakes.NewFakeRefresher(refresh.Pair{AccessToken: fresh}, nil)
		store := newTestStore(repofakes.NewFakeSessionRepo(expired, "refresh"), refresher)

		_, err := store.EnsureValidToken(context.Background())
		require.NoError(t, err)
		require.Equal(t, "refresh", store.Snapshot().RefreshToken)
	})

	t.Run("terminal failure clears session", func(t *testing.T) {
		refresher := sessionfakes.NewFakeRefresher(refresh.Pair{}, sessionfakes.TerminalError())
		repo := repofakes.NewFakeSessionRepo(expired, "refresh")
		store := newTestStore(repo, refresher)

		var notified []bool
		store.Subscribe(func(s session.Session) { notified = append(notified, s.IsAuthenticated()) })

		_, err := store.EnsureValidToken(context.Background())
		require.ErrorIs(t, err, errs.ErrSessionExpired)
		require.True(t, refresh.IsTerminal(err))
		require.False(t, store.IsAuthenticated())
		require.Equal(t, session.Session{}, repo.Stored())
		require.Equal(t, []bool{false}, notified)
	})

	t.Run("transient failure keeps session", func(t *testing.T) {
		refresher := sessionfakes.NewFakeRefresher(refresh.Pair{}, sessionfakes.TransientError())
		store := newTestStore(repofakes.NewFakeSessionRepo(expired, "refresh"), refresher)

		_, err := store.EnsureValidToken(context.Background())
		require.Error(t, err)
		require.True(t, refresh.IsTransient(err))
		require.ErrorIs(t, err, errs.ErrRefreshFailed)
		require.NotErrorIs(t, err, errs.ErrSessionExpired)
		require.True(t, store.IsAuthenticated())

		// Retrying once the backend recovers succeeds
		refresher.Respond(refresh.Pair{AccessToken: fresh, RefreshToken: "rotated"}, nil)
		token, err := store.EnsureValidToken(context.Background())
		require.NoError(t, err)
		require.Equal(t, fresh, token)
	})

	t.Run("missing refresh token expires session without a call", func(t *testing.T) {
		refresher := sessionfakes.NewFakeRefresher(refresh.Pair{}, nil)
		store := newTestStore(repofakes.NewFakeSessionRepo("", ""), refresher)
		store.SetSession(expired, "")

		_, err := store.EnsureValidToken(context.Background())
		require.ErrorIs(t, err, errs.ErrSessionExpired)
		require.ErrorIs(t, err, errs.ErrNoRefreshToken)
		require.Equal(t, 0, refresher.Calls())
		_, ok := store.CurrentAccessToken()
		require.False(t, ok)
	})
}

func TestStore_ConcurrentEnsureValidTokenRefreshesOnce(t *testing.T) {
	fresh := sessionfakes.AccessToken(now.Add(time.Hour))
	refresher := sessionfakes.NewFakeRefresher(refresh.Pair{AccessToken: fresh, RefreshToken: "rotated"}, nil)
	refresher.Gate = make(chan struct{})
	refresher.Entered = make(chan struct{}, 1)
	store := newTestStore(repofakes.NewFakeSessionRepo(sessionfakes.AccessToken(now.Add(-time.Second)), "refresh"), refresher)

	const callers = 25
	tokens := make([]string, callers)
	errResults := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tokens[i], errResults[i] = store.EnsureValidToken(context.Background())
		}(i)
	}

	<-refresher.Entered
	close(refresher.Gate)
	wg.Wait()

	require.Equal(t, 1, refresher.Calls())
	for i := 0; i < callers; i++ {
		require.NoError(t, errResults[i])
		require.Equal(t, fresh, tokens[i])
	}
}

func TestStore_RefreshAfterLogoutIsDiscarded(t *testing.T) {
	refresher := sessionfakes.NewFakeRefresher(refresh.Pair{AccessToken: sessionfakes.AccessToken(now.Add(time.Hour)), RefreshToken: "rotated"}, nil)
	refresher.Gate = make(chan struct{})
	refresher.Entered = make(chan struct{}, 1)
	repo := repofakes.NewFakeSessionRepo(sessionfakes.AccessToken(now.Add(-time.Second)), "refresh")
	store := newTestStore(repo, refresher)

	result := make(chan error, 1)
	go func() {
		_, err := store.EnsureValidToken(context.Background())
		result <- err
	}()

	<-refresher.Entered
	store.ClearSession()
	close(refresher.Gate)

	require.ErrorIs(t, <-result, errs.ErrSessionExpired)
	require.False(t, store.IsAuthenticated())
	require.Equal(t, session.Session{}, repo.Stored())
}

func TestStore_CallerCancellationDoesNotAbortRefresh(t *testing.T) {
	fresh := sessionfakes.AccessToken(now.Add(time.Hour))
	refresher := sessionfakes.NewFakeRefresher(refresh.Pair{AccessToken: fresh, RefreshToken: "rotated"}, nil)
	refresher.Gate = make(chan struct{})
	refresher.Entered = make(chan struct{}, 1)
	store := newTestStore(repofakes.NewFakeSessionRepo(sessionfakes.AccessToken(now.Add(-time.Second)), "refresh"), refresher)

	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)
	go func() {
		_, err := store.EnsureValidToken(ctx)
		result <- err
	}()

	<-refresher.Entered
	cancel()
	require.ErrorIs(t, <-result, context.Canceled)

	close(refresher.Gate)
	require.Eventually(t, store.IsValid, time.Second, 5*time.Millisecond)
	require.Equal(t, 1, refresher.Calls())
}

func TestStore_RefreshForcesExchange(t *testing.T) {
	next := sessionfakes.AccessToken(now.Add(2 * time.Hour))
	refresher := sessionfakes.NewFakeRefresher(refresh.Pair{AccessToken: next, RefreshToken: "rotated"}, nil)
	store := newTestStore(repofakes.NewFakeSessionRepo(sessionfakes.AccessToken(now.Add(time.Hour)), "refresh"), refresher)

	require.NoError(t, store.Refresh(context.Background()))
	require.Equal(t, 1, refresher.Calls())

	token, _ := store.CurrentAccessToken()
	require.Equal(t, next, token)
}
