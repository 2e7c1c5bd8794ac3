package server

import "github.com/andinasec/login-global/roles"

func (s *Server) initRoutes() {
	adminOnly := s.APIMiddleware(s.RequireAuth, s.RequireRoles(roles.SystemAdmin))

	// Login flow (anonymous)
	s.RegisterRouteHandler("POST /auth/login", ChainMiddleware(s.LoginHandler(), s.APIMiddleware(s.RateLimitMiddleware)...))
	s.RegisterRouteHandler("POST /auth/mfa/verify", ChainMiddleware(s.VerifyMFAHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST /auth/refresh", ChainMiddleware(s.RefreshHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET /auth/public-key", ChainMiddleware(s.PublicKeyHandler(), s.APIMiddleware()...))

	// Session management (bearer)
	s.RegisterRouteHandler("POST /auth/logout", ChainMiddleware(s.LogoutHandler(), s.APIMiddleware(s.RequireAuth)...))
	s.RegisterRouteHandler("POST /auth/logout-all", ChainMiddleware(s.LogoutAllHandler(), s.APIMiddleware(s.RequireAuth)...))
	s.RegisterRouteHandler("GET /sessions", ChainMiddleware(s.ActiveSessionsHandler(), s.APIMiddleware(s.RequireAuth)...))

	// Account lifecycle
	s.RegisterRouteHandler("POST /users/activate", ChainMiddleware(s.ActivateUserHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST /users", ChainMiddleware(s.CreateUserHandler(), adminOnly...))
	s.RegisterRouteHandler("GET /users", ChainMiddleware(s.ListUsersHandler(), adminOnly...))
	s.RegisterRouteHandler("GET /users/{id}", ChainMiddleware(s.GetUserHandler(), s.APIMiddleware(s.RequireAuth)...))
	s.RegisterRouteHandler("POST /users/{id}/disable", ChainMiddleware(s.DisableUserHandler(), adminOnly...))

	// Role administration
	s.RegisterRouteHandler("GET /roles", ChainMiddleware(s.ListRolesHandler(), s.APIMiddleware(s.RequireAuth)...))
	s.RegisterRouteHandler("POST /roles/assign", ChainMiddleware(s.AssignRoleHandler(), adminOnly...))
	s.RegisterRouteHandler("POST /roles/remove", ChainMiddleware(s.RemoveRoleHandler(), adminOnly...))

	// Operations
	s.RegisterRouteHandler("POST /maintenance/cleanup", ChainMiddleware(s.CleanupHandler(), adminOnly...))
	s.RegisterRouteHandler("GET /healthz", ChainMiddleware(s.HealthHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET /metrics", s.metrics.Handler())
}
