package refresh

import (
	"errors"
	"fmt"
	"testing"

	errs "github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/stretchr/testify/require"
)

func TestRefreshError(t *testing.T) {
	cause := errors.New("boom")
	err := fmt.Errorf("wrapped: %w", &RefreshError{Kind: Terminal, Err: cause})

	require.True(t, IsTerminal(err))
	require.False(t, IsTransient(err))
	require.ErrorIs(t, err, errs.ErrRefreshFailed)
	require.ErrorIs(t, err, cause)
	require.Contains(t, err.Error(), "terminal")

	require.False(t, IsTerminal(cause))
	require.False(t, IsTransient(nil))
	require.Equal(t, "Kind(7)", Kind(7).String())
}
