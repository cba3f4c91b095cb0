package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-auth-session/apiclient"
	"github.com/jrsteele09/go-auth-session/guard"
	"github.com/jrsteele09/go-auth-session/internal/config"
	"github.com/jrsteele09/go-auth-session/refresh"
	"github.com/jrsteele09/go-auth-session/session"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Authenticator exchanges credentials at the backend and revokes tokens on logout
type Authenticator interface {
	PasswordLogin(ctx context.Context, username, password string) (refresh.Pair, error)
	Revoke(ctx context.Context, token, tokenTypeHint string) error
}

// API is the remote REST API the views and the proxy talk to
type API interface {
	ListPackages(ctx context.Context) ([]apiclient.Package, error)
	ListMoods(ctx context.Context, limit int) ([]apiclient.MoodEntry, error)
	TrackMood(ctx context.Context, entry apiclient.MoodEntry) (*apiclient.MoodEntry, error)
	Forward(ctx context.Context, method, pathAndQuery string, header http.Header, body []byte) (*http.Response, error)
}

type Server struct {
	env        string
	mux        *http.ServeMux
	routes     []string
	config     config.Config
	store      *session.Store
	auth       Authenticator
	api        API
	guard      *guard.Guard
	redirector *guard.Redirector
	pages      map[string]guard.Access
	logger     zerolog.Logger
}

type Option func(*Server)

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

func New(config config.Config, store *session.Store, auth Authenticator, api API, options ...Option) (*Server, error) {
	s := &Server{
		env:        config.GetEnv(),
		mux:        http.NewServeMux(),
		config:     config,
		store:      store,
		auth:       auth,
		api:        api,
		guard:      guard.New(store, RouteLogin, RouteLanding),
		redirector: guard.NewRedirector(store, RouteLogin, RouteLanding),
		pages:      make(map[string]guard.Access),
		logger:     log.Logger,
	}
	for _, opt := range options {
		opt(s)
	}

	if err := s.initRoutes(); err != nil {
		return nil, fmt.Errorf("[Server New] failed to initialise routes: %w", err)
	}
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

// Access returns how a view route is guarded. Unknown routes are Public.
func (s *Server) Access(route string) guard.Access {
	if access, ok := s.pages[route]; ok {
		return access
	}
	return guard.Public
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)
		if len(parts) > 1 {
			s.logRoute(parts[0], parts[1])
		} else {
			s.logRoute("", parts[0])
		}
	}
}

func (s *Server) logRoute(method, path string) {
	paddedMethod := fmt.Sprintf(" %-7s", method)
	color, ok := methodColors[method]
	if !ok {
		color = Gray
	}
	s.logger.Info().Msg(fmt.Sprintf("[%-19s] %s", color+paddedMethod+ResetColor, path))
}
