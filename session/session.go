package session

import "time"

// Session is a snapshot of the authenticated identity held by a Store.
// Only the tokens are persisted; ExpiresAt is derived from the access token.
type Session struct {
	AccessToken  string    `json:"access_token,omitempty"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"-"`
}

// IsAuthenticated is true while both tokens are present. An expired access token
// does not end the session; only a failed refresh or an explicit logout does.
func (s Session) IsAuthenticated() bool {
	return s.AccessToken != "" && s.RefreshToken != ""
}

// Repo persists the token pair across restarts
type Repo interface {
	Load() (Session, error)
	Save(session Session) error
	Clear() error
}
