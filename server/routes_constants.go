package server

// Route path constants
// All relay routes are defined here to ensure consistency and prevent typos
const (
	// Session routes
	RouteAuthLogin    = "/api/auth/login"
	RouteAuthRegister = "/api/auth/register"
	RouteAuthMe       = "/api/auth/me"
	RouteAuthRefresh  = "/api/auth/refresh"
	RouteAuthLogout   = "/api/auth/logout"

	// Inventory resources proxied to the backend (products, categories, talleres, ...)
	RouteResource        = "/api/{resource}"
	RouteResourceSubtree = "/api/{resource}/{rest...}"

	// Operational routes
	RouteHealth  = "/healthz"
	RouteMetrics = "/metrics"

	// RouteLogin is the storefront page users are sent to once their session is gone
	RouteLogin = "/login"
)
