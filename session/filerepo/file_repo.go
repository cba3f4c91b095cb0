package filerepo

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	errs "github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/jrsteele09/go-auth-session/session"
)

// FileName is the name of the session file inside the data folder
const FileName = "session.json"

// envelope is the on-disk layout. Plain files carry the tokens under their fixed key
// names; sealed files carry only the encrypted form of the same JSON.
type envelope struct {
	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Sealed       string `json:"sealed,omitempty"`
}

// FileSessionRepo persists the token pair as JSON in the data folder
type FileSessionRepo struct {
	mu     sync.Mutex
	path   string
	sealer *sealer
}

var _ session.Repo = (*FileSessionRepo)(nil)

type Option func(*FileSessionRepo) error

// WithPassphrase seals the stored tokens with a key derived from passphrase.
// An empty passphrase leaves the file in the clear.
func WithPassphrase(passphrase string) Option {
	return func(r *FileSessionRepo) error {
		if passphrase == "" {
			return nil
		}
		s, err := newSealer(passphrase)
		if err != nil {
			return err
		}
		r.sealer = s
		return nil
	}
}

// New creates a repo storing its file in folder
func New(folder string, options ...Option) (*FileSessionRepo, error) {
	r := &FileSessionRepo{path: filepath.Join(folder, FileName)}
	for _, opt := range options {
		if err := opt(r); err != nil {
			return nil, fmt.Errorf("[filerepo New] %w", err)
		}
	}
	return r, nil
}

func (r *FileSessionRepo) Path() string {
	return r.path
}

func (r *FileSessionRepo) Load() (session.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := os.ReadFile(r.path)
	if os.IsNotExist(err) {
		return session.Session{}, nil
	}
	if err != nil {
		return session.Session{}, errs.Wrapf(errs.ErrStorageUnavailable, "[filerepo Load] %v", err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return session.Session{}, errs.Wrapf(errs.ErrMalformedToken, "[filerepo Load] %v", err)
	}

	if env.Sealed == "" {
		return session.Session{AccessToken: env.AccessToken, RefreshToken: env.RefreshToken}, nil
	}
	if r.sealer == nil {
		return session.Session{}, errs.Wrapf(errs.ErrStorageUnavailable, "[filerepo Load] session is sealed and no passphrase is configured")
	}

	plain, err := r.sealer.open(env.Sealed)
	if err != nil {
		return session.Session{}, errs.Wrapf(errs.ErrMalformedToken, "[filerepo Load] %v", err)
	}
	var opened envelope
	if err := json.Unmarshal(plain, &opened); err != nil {
		return session.Session{}, errs.Wrapf(errs.ErrMalformedToken, "[filerepo Load] %v", err)
	}
	return session.Session{AccessToken: opened.AccessToken, RefreshToken: opened.RefreshToken}, nil
}

func (r *FileSessionRepo) Save(s session.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	env := envelope{AccessToken: s.AccessToken, RefreshToken: s.RefreshToken}
	if r.sealer != nil {
		plain, err := json.Marshal(env)
		if err != nil {
			return fmt.Errorf("[filerepo Save] marshal: %w", err)
		}
		sealed, err := r.sealer.seal(plain)
		if err != nil {
			return fmt.Errorf("[filerepo Save] seal: %w", err)
		}
		env = envelope{Sealed: sealed}
	}

	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("[filerepo Save] marshal: %w", err)
	}
	if err := writeFileAtomic(r.path, data); err != nil {
		return errs.Wrapf(errs.ErrStorageUnavailable, "[filerepo Save] %v", err)
	}
	return nil
}

func (r *FileSessionRepo) Clear() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.Remove(r.path); err != nil && !os.IsNotExist(err) {
		return errs.Wrapf(errs.ErrStorageUnavailable, "[filerepo Clear] %v", err)
	}
	return nil
}

// writeFileAtomic replaces path so a crash never leaves a half-written session file
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".session-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
