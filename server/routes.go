package server

func (s *Server) initRoutes() {
	s.RegisterRouteFunc("GET "+RouteIndex+"{$}", ChainMiddleware(s.IndexHandler(), s.PageMiddleware()...))

	// SIGN IN / SIGN UP
	s.RegisterRouteFunc("GET "+RouteSignIn, ChainMiddleware(s.SignInPageHandler(), s.PageMiddleware()...))
	s.RegisterRouteFunc("POST "+RouteSignIn, ChainMiddleware(s.SignInSubmissionHandler(), s.ActionMiddleware()...))
	s.RegisterRouteFunc("GET "+RouteSignUp, ChainMiddleware(s.SignUpPageHandler(), s.PageMiddleware()...))
	s.RegisterRouteFunc("POST "+RouteSignUp, ChainMiddleware(s.SignUpSubmissionHandler(), s.ActionMiddleware()...))
	s.RegisterRouteFunc("POST "+RouteAuthLogout, ChainMiddleware(s.LogoutHandler(), s.ActionMiddleware()...))

	// GOOGLE
	s.RegisterRouteFunc("GET "+RouteGoogle, ChainMiddleware(s.GoogleStartHandler(), s.ActionMiddleware()...))
	s.RegisterRouteFunc("GET "+RouteGoogleCallback, ChainMiddleware(s.GoogleCallbackHandler(), s.ActionMiddleware()...))

	// Never guarded: it is how the terms gate is passed
	s.RegisterRouteFunc("POST "+RouteTermsAccept, ChainMiddleware(s.TermsAcceptHandler(), s.ActionMiddleware()...))

	// Views
	s.RegisterRouteFunc("GET "+RouteSpeakers, ChainMiddleware(s.SpeakersHandler(), s.PageMiddleware()...))
	s.RegisterRouteFunc("GET "+RouteDashboard, ChainMiddleware(s.DashboardHandler(), s.PageMiddleware()...))
	s.RegisterRouteFunc("GET "+RouteAdminDashboard, ChainMiddleware(s.AdminDashboardHandler(), s.PageMiddleware()...))

	s.RegisterRouteFunc("POST "+RoutePreferencesLanguage, ChainMiddleware(s.LanguageHandler(), s.ActionMiddleware()...))
	s.RegisterRouteFunc("GET "+RouteHealth, ChainMiddleware(s.HealthHandler(), s.LoggingMiddleware, s.RecoverMiddleware))
}
