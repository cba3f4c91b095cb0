package guard

import "net/http"

// Redirector resolves the application root to wherever the current session belongs
type Redirector struct {
	state        State
	loginRoute   string
	landingRoute string
}

func NewRedirector(state State, loginRoute, landingRoute string) *Redirector {
	return &Redirector{
		state:        state,
		loginRoute:   loginRoute,
		landingRoute: landingRoute,
	}
}

func (r *Redirector) Resolve() string {
	if r.state.IsAuthenticated() {
		return r.landingRoute
	}
	return r.loginRoute
}

func (r *Redirector) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		redirect(w, req, r.Resolve())
	}
}
