package server

import (
	"io"
	"net/http"

	errs "github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/jrsteele09/go-auth-session/refresh"
	"github.com/rs/zerolog"
)

const maxProxyBody = 10 << 20

// forwardedRequestHeaders are passed from the view to the API; the bearer token is
// always the session's own
var forwardedRequestHeaders = []string{"Accept", "Accept-Language", "Content-Type", "If-None-Match", "X-Request-ID"}

var forwardedResponseHeaders = []string{"Cache-Control", "Content-Language", "Content-Type", "ETag", "Location", "Retry-After"}

// APIProxyHandler forwards /api/{path...} to the remote API with a valid access token
func (s *Server) APIProxyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := zerolog.Ctx(r.Context())

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxProxyBody))
		if err != nil {
			writeJSONError(w, "invalid_request", "Request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		if len(body) == 0 {
			body = nil
		}

		header := http.Header{}
		for _, key := range forwardedRequestHeaders {
			if v := r.Header.Get(key); v != "" {
				header.Set(key, v)
			}
		}

		target := "/" + r.PathValue("path")
		if r.URL.RawQuery != "" {
			target += "?" + r.URL.RawQuery
		}

		resp, err := s.api.Forward(r.Context(), r.Method, target, header, body)
		if err != nil {
			switch {
			case errs.Is(err, errs.ErrSessionExpired):
				writeJSONError(w, "session_expired", "Sign in again to continue", http.StatusUnauthorized)
			case refresh.IsTransient(err):
				logger.Warn().Err(err).Msg("Proxy: token refresh unavailable")
				w.Header().Set("Retry-After", "5")
				writeJSONError(w, "temporarily_unavailable", "Please try again shortly", http.StatusServiceUnavailable)
			default:
				logger.Err(err).Str("target", target).Msg("Proxy: upstream request failed")
				writeJSONError(w, "bad_gateway", "The service is unavailable", http.StatusBadGateway)
			}
			return
		}
		defer resp.Body.Close()

		for _, key := range forwardedResponseHeaders {
			if v := resp.Header.Get(key); v != "" {
				w.Header().Set(key, v)
			}
		}
		w.WriteHeader(resp.StatusCode)
		if _, err := io.Copy(w, resp.Body); err != nil {
			logger.Debug().Err(err).Msg("Proxy: client went away")
		}
	}
}
