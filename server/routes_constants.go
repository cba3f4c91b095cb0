package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	RouteRoot = "/"

	// Public only views
	RouteLogin  = "/login"
	RouteSignup = "/signup"

	// Private views
	RouteOnboarding = "/onboarding"
	RouteChat       = "/chat"
	RouteCommunity  = "/community"
	RouteMood       = "/mood"
	RoutePricing    = "/pricing"

	// Public views
	RouteAbout = "/about"

	// RouteLanding is where signed in users start
	RouteLanding = RouteChat

	// Auth Routes
	RouteAuthLogin  = "/auth/login"
	RouteAuthLogout = "/auth/logout"

	// API Routes
	RouteAPISession       = "/api/session"
	RouteAPISessionEvents = "/api/session/events"
	RouteAPIProxy         = "/api/{path...}"

	RouteHealth = "/healthz"
)
