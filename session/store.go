package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	errs "github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/jrsteele09/go-auth-session/refresh"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// refreshKey is the single singleflight key: there is only ever one session to refresh
const refreshKey = "refresh"

// Refresher exchanges a refresh token for a new token pair
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (refresh.Pair, error)
}

type observer struct {
	id uuid.UUID
	fn func(Session)
}

// Store is the single owner of the Session. Every mutation goes through SetSession or
// ClearSession; readers only ever see complete snapshots.
type Store struct {
	repo           Repo
	refresher      Refresher
	logger         zerolog.Logger
	nowFunc        func() time.Time
	refreshTimeout time.Duration

	// writeMu serializes mutations together with their notifications so observers
	// see changes in the order they were made.
	writeMu    sync.Mutex
	mu         sync.RWMutex
	session    Session
	generation uint64

	flight singleflight.Group

	observersMu sync.RWMutex
	observers   []observer
}

type StoreOption func(*Store)

func WithNowFunc(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.nowFunc = now
	}
}

func WithLogger(logger zerolog.Logger) StoreOption {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithRefreshTimeout bounds a single refresh exchange. The exchange is detached from the
// caller's context so that callers who stop waiting do not abort it for everybody else.
func WithRefreshTimeout(timeout time.Duration) StoreOption {
	return func(s *Store) {
		s.refreshTimeout = timeout
	}
}

// New creates a Store seeded from the persisted repo. A repo that cannot be read leaves the
// store unauthenticated; corrupted data is removed.
func New(repo Repo, refresher Refresher, options ...StoreOption) *Store {
	s := &Store{
		repo:           repo,
		refresher:      refresher,
		logger:         log.Logger,
		nowFunc:        time.Now,
		refreshTimeout: 30 * time.Second,
	}
	for _, opt := range options {
		opt(s)
	}

	persisted, err := repo.Load()
	switch {
	case err != nil && errs.Is(err, errs.ErrMalformedToken):
		s.logger.Warn().Err(err).Msg("Discarding corrupted persisted session")
		if err := repo.Clear(); err != nil {
			s.logger.Err(err).Msg("Failed to clear corrupted persisted session")
		}
	case err != nil:
		s.logger.Warn().Err(err).Msg("Persisted session unavailable, starting unauthenticated")
	case persisted.IsAuthenticated():
		persisted.ExpiresAt = expiryOrZero(persisted.AccessToken)
		s.session = persisted
	case persisted.AccessToken != "" || persisted.RefreshToken != "":
		s.logger.Warn().Msg("Discarding incomplete persisted session")
		if err := repo.Clear(); err != nil {
			s.logger.Err(err).Msg("Failed to clear incomplete persisted session")
		}
	}
	return s
}

// CurrentAccessToken returns the access token without checking its expiry
func (s *Store) CurrentAccessToken() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.AccessToken, s.session.AccessToken != ""
}

// Snapshot returns a copy of the current session
func (s *Store) Snapshot() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

func (s *Store) ExpiresAt() time.Time {
	return s.Snapshot().ExpiresAt
}

func (s *Store) IsAuthenticated() bool {
	return s.Snapshot().IsAuthenticated()
}

// IsValid reports whether the access token is present, decodes, and has not yet expired.
// Malformed tokens are invalid, never an error.
func (s *Store) IsValid() bool {
	token, _ := s.CurrentAccessToken()
	return validAt(token, s.nowFunc())
}

// EnsureValidToken returns a usable access token, refreshing first when the current one is
// expired. Concurrent callers share a single refresh. A terminal failure (or no refresh
// token) clears the session and returns ErrSessionExpired; transient failures keep the
// session and return the *refresh.RefreshError.
func (s *Store) EnsureValidToken(ctx context.Context) (string, error) {
	if token, ok := s.CurrentAccessToken(); ok && validAt(token, s.nowFunc()) {
		return token, nil
	}
	return s.refresh(ctx, false)
}

// Refresh forces a refresh even if the access token is still valid. Used by the
// proactive scheduler; shares in-flight refreshes with EnsureValidToken.
func (s *Store) Refresh(ctx context.Context) error {
	_, err := s.refresh(ctx, true)
	return err
}

func (s *Store) refresh(ctx context.Context, force bool) (string, error) {
	ch := s.flight.DoChan(refreshKey, func() (interface{}, error) {
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.refreshTimeout)
		defer cancel()
		return s.doRefresh(flightCtx, force)
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (s *Store) doRefresh(ctx context.Context, force bool) (string, error) {
	s.mu.RLock()
	current, generation := s.session, s.generation
	s.mu.RUnlock()

	// A refresh that finished just before this flight started already did the work
	if !force && validAt(current.AccessToken, s.nowFunc()) {
		return current.AccessToken, nil
	}

	if current.RefreshToken == "" {
		s.clearIfCurrent(generation)
		return "", fmt.Errorf("[Store refresh] %w: %w", errs.ErrSessionExpired, errs.ErrNoRefreshToken)
	}

	pair, err := s.refresher.Refresh(ctx, current.RefreshToken)
	if err != nil {
		if refresh.IsTerminal(err) {
			s.logger.Warn().Err(err).Msg("Refresh token rejected, clearing session")
			s.clearIfCurrent(generation)
			return "", fmt.Errorf("[Store refresh] %w: %w", errs.ErrSessionExpired, err)
		}
		s.logger.Warn().Err(err).Msg("Transient refresh failure")
		return "", err
	}

	if pair.RefreshToken == "" {
		pair.RefreshToken = current.RefreshToken
	}
	if !s.commitIfCurrent(generation, pair) {
		// The session was replaced or cleared while the exchange was in flight
		if token, ok := s.CurrentAccessToken(); ok && validAt(token, s.nowFunc()) {
			return token, nil
		}
		return "", errs.Wrapf(errs.ErrSessionExpired, "[Store refresh] session changed during refresh")
	}
	return pair.AccessToken, nil
}

// SetSession overwrites both tokens, persists them and notifies observers
func (s *Store) SetSession(accessToken, refreshToken string) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.setLocked(accessToken, refreshToken)
}

// ClearSession empties both tokens, removes them from storage and notifies observers
func (s *Store) ClearSession() {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.clearLocked()
}

func (s *Store) commitIfCurrent(generation uint64, pair refresh.Pair) bool {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.currentGeneration() != generation {
		return false
	}
	s.setLocked(pair.AccessToken, pair.RefreshToken)
	return true
}

func (s *Store) clearIfCurrent(generation uint64) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.currentGeneration() != generation {
		return
	}
	if current := s.Snapshot(); current.AccessToken == "" && current.RefreshToken == "" {
		return
	}
	s.clearLocked()
}

func (s *Store) currentGeneration() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

func (s *Store) setLocked(accessToken, refreshToken string) {
	next := Session{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    expiryOrZero(accessToken),
	}

	s.mu.Lock()
	s.session = next
	s.generation++
	s.mu.Unlock()

	if err := s.repo.Save(next); err != nil {
		// The in-memory session stays authoritative for this process
		s.logger.Err(err).Msg("Failed to persist session")
	}
	s.notify(next)
}

func (s *Store) clearLocked() {
	s.mu.Lock()
	s.session = Session{}
	s.generation++
	s.mu.Unlock()

	if err := s.repo.Clear(); err != nil {
		s.logger.Err(err).Msg("Failed to clear persisted session")
	}
	s.notify(Session{})
}

// Subscribe registers fn to be called after every SetSession and ClearSession, in order.
// fn runs synchronously and must not mutate the store.
func (s *Store) Subscribe(fn func(Session)) (unsubscribe func()) {
	id := uuid.New()

	s.observersMu.Lock()
	s.observers = append(s.observers, observer{id: id, fn: fn})
	s.observersMu.Unlock()

	return func() {
		s.observersMu.Lock()
		defer s.observersMu.Unlock()
		for i, o := range s.observers {
			if o.id == id {
				s.observers = append(s.observers[:i:i], s.observers[i+1:]...)
				return
			}
		}
	}
}

func (s *Store) notify(current Session) {
	s.observersMu.RLock()
	observers := make([]observer, len(s.observers))
	copy(observers, s.observers)
	s.observersMu.RUnlock()

	for _, o := range observers {
		o.fn(current)
	}
}
