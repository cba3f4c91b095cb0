package repofakes

import (
	"sync"

	errs "github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/jrsteele09/go-auth-session/session"
)

// FakeSessionRepo is an in-memory session.Repo with failure injection
type FakeSessionRepo struct {
	mu       sync.Mutex
	stored   session.Session
	LoadErr  error
	SaveErr  error
	ClearErr error
	Saves    int
	Clears   int
}

var _ session.Repo = (*FakeSessionRepo)(nil)

// NewFakeSessionRepo creates a repo pre-populated with the given tokens
func NewFakeSessionRepo(accessToken, refreshToken string) *FakeSessionRepo {
	return &FakeSessionRepo{
		stored: session.Session{AccessToken: accessToken, RefreshToken: refreshToken},
	}
}

// NewUnavailableSessionRepo simulates disabled client storage: every operation fails
func NewUnavailableSessionRepo() *FakeSessionRepo {
	return &FakeSessionRepo{
		LoadErr:  errs.ErrStorageUnavailable,
		SaveErr:  errs.ErrStorageUnavailable,
		ClearErr: errs.ErrStorageUnavailable,
	}
}

func (r *FakeSessionRepo) Load() (session.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.LoadErr != nil {
		return session.Session{}, r.LoadErr
	}
	return r.stored, nil
}

func (r *FakeSessionRepo) Save(s session.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Saves++
	if r.SaveErr != nil {
		return r.SaveErr
	}
	r.stored = session.Session{AccessToken: s.AccessToken, RefreshToken: s.RefreshToken}
	return nil
}

func (r *FakeSessionRepo) Clear() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Clears++
	if r.ClearErr != nil {
		return r.ClearErr
	}
	r.stored = session.Session{}
	return nil
}

// Stored returns what is currently persisted
func (r *FakeSessionRepo) Stored() session.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stored
}
