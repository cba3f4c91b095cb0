package session_test

import (
	"testing"
	"time"

	errs "github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/jrsteele09/go-auth-session/session"
	"github.com/jrsteele09/go-auth-session/session/sessionfakes"
	"github.com/stretchr/testify/require"
)

func TestExpiryOf(t *testing.T) {
	exp := time.Unix(1_800_000_000, 0)

	got, err := session.ExpiryOf(sessionfakes.AccessToken(exp))
	require.NoError(t, err)
	require.True(t, exp.Equal(got))

	for _, raw := range []string{"", "   ", "abc", "a.b.c", sessionfakes.AccessTokenWithoutExp()} {
		_, err := session.ExpiryOf(raw)
		require.ErrorIs(t, err, errs.ErrMalformedToken, "token %q", raw)
	}
}

func TestExpiryOf_NonNumericExp(t *testing.T) {
	// {"alg":"none"}.{"exp":"tomorrow"}
	raw := "eyJhbGciOiJub25lIn0.eyJleHAiOiJ0b21vcnJvdyJ9."
	_, err := session.ExpiryOf(raw)
	require.ErrorIs(t, err, errs.ErrMalformedToken)
}
