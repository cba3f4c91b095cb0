package session

import (
	"errors"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	errs "github.com/jrsteele09/go-auth-session/internal/errors"
)

// ExpiryOf decodes the exp claim of a JWT access token without verifying its signature.
// The backend verifies signatures; the client only needs to know when to refresh.
func ExpiryOf(rawToken string) (time.Time, error) {
	if strings.TrimSpace(rawToken) == "" {
		return time.Time{}, errs.Wrapf(errs.ErrMalformedToken, "empty token")
	}

	claims := jwtlib.MapClaims{}
	_, _, err := jwtlib.NewParser().ParseUnverified(rawToken, claims)
	// An unknown alg only matters when verifying; the claims are already decoded.
	if err != nil && !errors.Is(err, jwtlib.ErrTokenUnverifiable) {
		return time.Time{}, errs.Wrapf(errs.ErrMalformedToken, "%v", err)
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, errs.Wrapf(errs.ErrMalformedToken, "exp claim: %v", err)
	}
	if exp == nil {
		return time.Time{}, errs.Wrapf(errs.ErrMalformedToken, "exp claim missing")
	}
	return exp.Time, nil
}

// validAt reports whether rawToken decodes and expires strictly after now
func validAt(rawToken string, now time.Time) bool {
	exp, err := ExpiryOf(rawToken)
	if err != nil {
		return false
	}
	return exp.After(now)
}

func expiryOrZero(rawToken string) time.Time {
	exp, err := ExpiryOf(rawToken)
	if err != nil {
		return time.Time{}
	}
	return exp
}
