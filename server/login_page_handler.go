package server

import (
	"context"
	"net/http"
	"time"

	"github.com/jrsteele09/go-auth-session/guard"
	errs "github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/rs/zerolog"
)

const revokeTimeout = 5 * time.Second

// LoginSubmissionHandler exchanges the login form credentials for a session (POST /auth/login)
func (s *Server) LoginSubmissionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := zerolog.Ctx(r.Context())

		if err := r.ParseForm(); err != nil {
			redirectWithError(w, r, RouteLogin, "Invalid form data")
			return
		}

		email := r.FormValue("email")
		password := r.FormValue("password")
		if email == "" || password == "" {
			redirectWithError(w, r, RouteLogin, "Email and password are required")
			return
		}

		pair, err := s.auth.PasswordLogin(r.Context(), email, password)
		if err != nil {
			if errs.Is(err, errs.ErrInvalidRequest) {
				redirectWithError(w, r, RouteLogin, "Email and password are required")
				return
			}
			logger.Warn().Err(err).Msg("Login failed")
			redirectWithError(w, r, RouteLogin, "Invalid email or password")
			return
		}
		if pair.AccessToken == "" || pair.RefreshToken == "" {
			logger.Error().Msg("Login succeeded but the backend did not issue a refresh token")
			redirectWithError(w, r, RouteLogin, "Sign in is unavailable right now")
			return
		}

		s.store.SetSession(pair.AccessToken, pair.RefreshToken)
		logger.Info().Msg("Signed in")

		target := RouteLanding
		if next, ok := guard.SafeNext(r); ok {
			target = next
		}
		redirectSuccess(w, r, target)
	}
}

// LogoutHandler revokes the refresh token (best effort) and clears the session
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := zerolog.Ctx(r.Context())
		current := s.store.Snapshot()

		if current.RefreshToken != "" {
			ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), revokeTimeout)
			if err := s.auth.Revoke(ctx, current.RefreshToken, "refresh_token"); err != nil {
				logger.Err(err).Msg("Logout: failed to revoke refresh token")
			}
			cancel()
		}

		s.store.ClearSession()
		logger.Info().Msg("Signed out")
		redirectSuccess(w, r, RouteLogin)
	}
}
