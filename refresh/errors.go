package refresh

import (
	"fmt"

	errs "github.com/jrsteele09/go-auth-session/internal/errors"
)

// Kind tells a caller whether a failed refresh is worth retrying
type Kind int

const (
	// Transient failures (network, 5xx, rate limiting) may succeed on a later attempt
	Transient Kind = iota
	// Terminal failures mean the refresh token was rejected and the user must sign in again
	Terminal
)

func (k Kind) String() string {
	switch k {
	case Transient:
		return "transient"
	case Terminal:
		return "terminal"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// RefreshError is returned for every failed refresh attempt.
// errors.Is(err, errs.ErrRefreshFailed) holds for all of them.
type RefreshError struct {
	Kind Kind
	Err  error
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("refresh failed (%s): %v", e.Kind, e.Err)
}

func (e *RefreshError) Unwrap() []error {
	return []error{errs.ErrRefreshFailed, e.Err}
}

// IsTerminal reports whether err carries a terminal RefreshError
func IsTerminal(err error) bool {
	var re *RefreshError
	return errs.As(err, &re) && re.Kind == Terminal
}

// IsTransient reports whether err carries a transient RefreshError
func IsTransient(err error) bool {
	var re *RefreshError
	return errs.As(err, &re) && re.Kind == Transient
}
