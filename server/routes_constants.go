package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	RouteIndex = "/"

	// Auth Routes
	RouteSignIn         = "/signin"
	RouteSignUp         = "/signup"
	RouteAuthLogout     = "/auth/logout"
	RouteGoogle         = "/auth/google"
	RouteGoogleCallback = "/auth/google/callback"

	// Acknowledgement of terms and privacy policy
	RouteTermsAccept = "/terms/accept"

	// Views
	RouteSpeakers       = "/speakers"
	RouteDashboard      = "/dashboard"
	RouteAdminDashboard = "/admin/dashboard"

	RoutePreferencesLanguage = "/preferences/language"
	RouteHealth              = "/healthz"
)
