package server

import (
	"net/http"

	"github.com/jrsteele09/go-auth-session/guard"
)

func (s *Server) initRoutes() error {
	s.RegisterRouteHandler("GET /{$}", ChainMiddleware(s.IndexHandler(), s.HTMLMiddleWare()...))

	// Views
	views := []struct {
		route  string
		access guard.Access
		title  string
	}{
		{RouteLogin, guard.PublicOnly, "Sign in"},
		{RouteSignup, guard.PublicOnly, "Create your account"},
		{RouteOnboarding, guard.Private, "Welcome"},
		{RouteChat, guard.Private, "Chat"},
		{RouteCommunity, guard.Private, "Community"},
		{RouteMood, guard.Private, "Mood"},
		{RoutePricing, guard.Private, "Pricing"},
		{RouteAbout, guard.Public, "About"},
	}
	for _, view := range views {
		handler, err := s.viewHandler(view.route, view.title)
		if err != nil {
			return err
		}
		s.pages[view.route] = view.access
		s.RegisterRouteHandler("GET "+view.route, ChainMiddleware(handler, s.HTMLMiddleWare(s.guard.Middleware(view.access))...))
	}
	s.RegisterRouteHandler("POST "+RouteMood, ChainMiddleware(s.MoodSubmissionHandler(), s.HTMLMiddleWare(s.guard.Middleware(guard.Private))...))

	// LOGIN
	s.RegisterRouteHandler("POST "+RouteAuthLogin, ChainMiddleware(s.LoginSubmissionHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("GET "+RouteAuthLogout, ChainMiddleware(s.LogoutHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("POST "+RouteAuthLogout, ChainMiddleware(s.LogoutHandler(), s.HTMLMiddleWare()...))

	// API routes
	s.RegisterRouteHandler("GET "+RouteAPISession, ChainMiddleware(s.SessionStatusHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteAPISessionEvents, ChainMiddleware(s.SessionEventsHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler(RouteAPIProxy, ChainMiddleware(s.APIProxyHandler(), s.APIMiddleware(s.RequireSession)...))

	s.RegisterRouteFunc("GET "+RouteHealth, s.HealthHandler())
	return nil
}

// RequireSession rejects API calls without a session with 401 rather than a redirect
func (s *Server) RequireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.store.IsAuthenticated() {
			writeJSONError(w, "unauthorized", "Sign in required", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}
