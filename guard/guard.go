package guard

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/jrsteele09/go-auth-session/session"
)

// Access classifies a route by who may see it
type Access int

const (
	// Public routes render for everybody
	Public Access = iota
	// Private routes need an authenticated session
	Private
	// PublicOnly routes (login, signup) are hidden from authenticated users
	PublicOnly
)

func (a Access) String() string {
	switch a {
	case Public:
		return "public"
	case Private:
		return "private"
	case PublicOnly:
		return "public-only"
	default:
		return fmt.Sprintf("Access(%d)", int(a))
	}
}

// NextParam carries the denied path to the login route so the user can be sent back after signing in
const NextParam = "next"

// Decision is the outcome of evaluating a route. Replace means the denied route must not
// stay in navigation history.
type Decision struct {
	Render   bool
	Redirect string
	Replace  bool
}

// State is the read side of the session store
type State interface {
	IsAuthenticated() bool
}

// Observable is a State whose changes can be watched
type Observable interface {
	State
	Subscribe(fn func(session.Session)) (unsubscribe func())
}

// Navigator moves a mounted view to another route, replacing the current history entry
type Navigator interface {
	Replace(path string)
}

type NavigatorFunc func(path string)

func (f NavigatorFunc) Replace(path string) {
	f(path)
}

// Guard decides whether routes render for the current session
type Guard struct {
	state        State
	loginRoute   string
	landingRoute string
}

func New(state State, loginRoute, landingRoute string) *Guard {
	return &Guard{
		state:        state,
		loginRoute:   loginRoute,
		landingRoute: landingRoute,
	}
}

// Evaluate reads the session at call time
func (g *Guard) Evaluate(access Access) Decision {
	return g.decide(access, g.state.IsAuthenticated())
}

func (g *Guard) decide(access Access, authenticated bool) Decision {
	switch {
	case access == Private && !authenticated:
		return Decision{Redirect: g.loginRoute, Replace: true}
	case access == PublicOnly && authenticated:
		return Decision{Redirect: g.landingRoute, Replace: true}
	default:
		return Decision{Render: true}
	}
}

// Middleware guards an HTTP route. Denied requests are answered with 303 See Other so the
// browser does not keep the denied URL; htmx requests get HX-Redirect instead.
func (g *Guard) Middleware(access Access) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			decision := g.Evaluate(access)
			if decision.Render {
				next(w, r)
				return
			}

			target := decision.Redirect
			if access == Private {
				target = withNext(target, r.URL.RequestURI())
			}
			redirect(w, r, target)
		}
	}
}

// Watch keeps a mounted view guarded: the decision is evaluated immediately and again on
// every session change, and navigator is told to replace the view whenever the route stops
// being allowed. The returned stop func unmounts the watch.
func (g *Guard) Watch(source Observable, access Access, navigator Navigator) (stop func()) {
	var mu sync.Mutex
	var last Decision

	mu.Lock()
	defer mu.Unlock()

	unsubscribe := source.Subscribe(func(current session.Session) {
		mu.Lock()
		defer mu.Unlock()
		decision := g.decide(access, current.IsAuthenticated())
		if !decision.Render && decision != last {
			navigator.Replace(decision.Redirect)
		}
		last = decision
	})

	last = g.Evaluate(access)
	if !last.Render {
		navigator.Replace(last.Redirect)
	}
	return unsubscribe
}

// SafeNext returns the value of the next parameter when it is a local path
func SafeNext(r *http.Request) (string, bool) {
	next := r.FormValue(NextParam)
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "", false
	}
	return next, true
}

func withNext(target, next string) string {
	if next == "" || next == "/" {
		return target
	}
	return target + "?" + url.Values{NextParam: {next}}.Encode()
}

func redirect(w http.ResponseWriter, r *http.Request, path string) {
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", path)
		w.Header().Set("HX-Replace-Url", path)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, path, http.StatusSeeOther)
}
