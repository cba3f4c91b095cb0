package sessionfakes

import (
	"errors"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

var (
	errInvalidGrant = errors.New("invalid_grant")
	errUnavailable  = errors.New("service unavailable")
)

var signingKey = []byte("sessionfakes-test-key")

// AccessToken mints an HS256 JWT expiring at exp. Signatures are never checked client side.
func AccessToken(exp time.Time) string {
	return token(jwtlib.MapClaims{"sub": "user-1", "exp": exp.Unix()})
}

// AccessTokenWithoutExp mints a well-formed JWT that has no exp claim
func AccessTokenWithoutExp() string {
	return token(jwtlib.MapClaims{"sub": "user-1"})
}

func token(claims jwtlib.MapClaims) string {
	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(signingKey)
	if err != nil {
		panic(err)
	}
	return signed
}
