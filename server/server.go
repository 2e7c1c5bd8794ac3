// Package server is the HTTP boundary of the engine. It wires the domain
// services to a stdlib mux, applies the middleware stack, and owns the JSON
// request/response shapes.
package server

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/andinasec/login-global/auth"
	"github.com/andinasec/login-global/internal/config"
	"github.com/andinasec/login-global/internal/obs"
	"github.com/andinasec/login-global/roles"
	"github.com/andinasec/login-global/token"
	"github.com/andinasec/login-global/token/keys"
	"github.com/andinasec/login-global/users"
)

// Pinger reports backing-store reachability for health checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services bundles the domain collaborators the server exposes.
type Services struct {
	Auth       *auth.Service
	Users      *users.Service
	Roles      *roles.Service
	Issuer     *token.Issuer
	SigningKey *keys.KeyPair
	Cleanup    Cleanup
}

// Cleanup groups the expiry sweeps invoked by POST /maintenance/cleanup.
type Cleanup struct {
	Sessions    func(ctx context.Context) (int64, error)
	MFACodes    func(ctx context.Context) (int64, error)
	Activations func(ctx context.Context) (int64, error)
	Refresh     func(ctx context.Context) (int64, error)
}

type Server struct {
	env      string
	mux      *http.ServeMux
	routes   []string
	config   config.Config
	log      zerolog.Logger
	services Services
	metrics  *obs.Metrics
	health   Pinger
	limiter  *ipRateLimiter
}

func New(cfg config.Config, log zerolog.Logger, services Services, metrics *obs.Metrics, health Pinger) *Server {
	requests, window := cfg.GetLoginRateLimit()
	s := &Server{
		env:      cfg.GetEnv(),
		mux:      http.NewServeMux(),
		config:   cfg,
		log:      log.With().Str("component", "server").Logger(),
		services: services,
		metrics:  metrics,
		health:   health,
		limiter:  newIPRateLimiter(requests, window),
	}
	s.initRoutes()
	s.logRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return
	}
	for _, route := range s.routes {
		s.log.Debug().Str("route", route).Msg("registered")
	}
}
