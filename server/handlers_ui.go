package server

import (
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-auth-session/apiclient"
	"github.com/jrsteele09/go-auth-session/guard"
	errs "github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/rs/zerolog"
)

const (
	contentTypeHTML = "text/html; charset=utf-8"
	contentTypeJSON = "application/json; charset=utf-8"

	recentMoodsLimit = 14
)

// PageData is what every view template receives
type PageData struct {
	AppName       string
	Title         string
	Route         string
	Authenticated bool
	Error         string
	Next          string
	Packages      []apiclient.Package
	Moods         []apiclient.MoodEntry
}

func (s *Server) viewHandler(route, title string) (http.HandlerFunc, error) {
	name := strings.TrimPrefix(route, "/") + ".html"
	tmpl, err := ParseTemplate(name)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}

	return func(w http.ResponseWriter, r *http.Request) {
		data := PageData{
			AppName:       s.config.GetAppName(),
			Title:         title,
			Route:         route,
			Authenticated: s.store.IsAuthenticated(),
			Error:         r.URL.Query().Get("error"),
		}
		if next, ok := guard.SafeNext(r); ok {
			data.Next = next
		}

		if !s.loadViewData(w, r, &data) {
			return
		}
		s.render(w, r, tmpl, data)
	}, nil
}

// loadViewData fetches what the pricing and mood views show. It returns false when it has
// already answered the request.
func (s *Server) loadViewData(w http.ResponseWriter, r *http.Request, data *PageData) bool {
	var err error
	switch data.Route {
	case RoutePricing:
		data.Packages, err = s.api.ListPackages(r.Context())
	case RouteMood:
		data.Moods, err = s.api.ListMoods(r.Context(), recentMoodsLimit)
	default:
		return true
	}
	if err == nil {
		return true
	}

	if errs.Is(err, errs.ErrSessionExpired) {
		redirectSuccess(w, r, RouteLogin)
		return false
	}
	zerolog.Ctx(r.Context()).Err(err).Str("route", data.Route).Msg("Failed to load view data")
	data.Error = "We couldn't load this page right now. Please try again."
	return true
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, tmpl *template.Template, data PageData) {
	w.Header().Set("Content-Type", contentTypeHTML)
	w.Header().Set("Cache-Control", "no-store")
	if err := tmpl.Execute(w, data); err != nil {
		zerolog.Ctx(r.Context()).Err(err).Str("route", data.Route).Msg("Failed to render template")
	}
}

// MoodSubmissionHandler tracks a mood from the mood form (POST /mood)
func (s *Server) MoodSubmissionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			redirectWithError(w, r, RouteMood, "Invalid form data")
			return
		}
		mood := strings.TrimSpace(r.FormValue("mood"))
		if mood == "" {
			redirectWithError(w, r, RouteMood, "Pick a mood first")
			return
		}

		_, err := s.api.TrackMood(r.Context(), apiclient.MoodEntry{Mood: mood, Note: strings.TrimSpace(r.FormValue("note"))})
		switch {
		case err == nil:
			redirectSuccess(w, r, RouteMood)
		case errs.Is(err, errs.ErrSessionExpired):
			redirectSuccess(w, r, RouteLogin)
		default:
			zerolog.Ctx(r.Context()).Err(err).Msg("Failed to track mood")
			redirectWithError(w, r, RouteMood, "Your mood wasn't saved. Please try again.")
		}
	}
}
