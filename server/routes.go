package server

func (s *Server) initRoutes() {
	// SESSION
	s.RegisterRouteFunc("POST "+RouteAuthLogin, ChainMiddleware(s.LoginHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("POST "+RouteAuthRegister, ChainMiddleware(s.RegisterHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("GET "+RouteAuthMe, ChainMiddleware(s.MeHandler(), s.APIMiddleware(s.RequireSession())...))
	s.RegisterRouteFunc("POST "+RouteAuthRefresh, ChainMiddleware(s.RefreshHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("POST "+RouteAuthLogout, ChainMiddleware(s.LogoutHandler(), s.APIMiddleware()...))

	// INVENTORY RESOURCES
	s.RegisterRouteFunc(RouteResource, ChainMiddleware(s.ResourceHandler(), s.APIMiddleware(s.RequireSession())...))
	s.RegisterRouteFunc(RouteResourceSubtree, ChainMiddleware(s.ResourceHandler(), s.APIMiddleware(s.RequireSession())...))

	// OPERATIONS
	s.RegisterRouteFunc("GET "+RouteHealth, s.HealthHandler())
	if s.gatherer != nil {
		s.RegisterRouteHandler("GET "+RouteMetrics, s.metricsHandler())
	}
}
