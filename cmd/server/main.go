package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/andinasec/login-global/activation"
	activationrepofake "github.com/andinasec/login-global/activation/repofake"
	"github.com/andinasec/login-global/audit"
	"github.com/andinasec/login-global/auth"
	"github.com/andinasec/login-global/auth/sessions"
	sessionrepofakes "github.com/andinasec/login-global/auth/sessions/repofakes"
	"github.com/andinasec/login-global/email"
	"github.com/andinasec/login-global/internal/config"
	"github.com/andinasec/login-global/internal/obs"
	"github.com/andinasec/login-global/mfa"
	mfarepofake "github.com/andinasec/login-global/mfa/repofake"
	"github.com/andinasec/login-global/roles"
	rolerepofake "github.com/andinasec/login-global/roles/repofake"
	"github.com/andinasec/login-global/server"
	"github.com/andinasec/login-global/store/postgres"
	"github.com/andinasec/login-global/token"
	"github.com/andinasec/login-global/token/keys"
	"github.com/andinasec/login-global/token/refresh"
	refreshrepofake "github.com/andinasec/login-global/token/refresh/repofake"
	"github.com/andinasec/login-global/users"
	userrepofake "github.com/andinasec/login-global/users/repofake"
)

func main() {
	for {
		if err := run(); err != nil {
			log.Error().Err(err).Msg("server exited with error")
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Info().Msg("server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	cfg := config.New()
	logger := newLogger(cfg)
	displayAppname(cfg.GetAppName())

	keyPair, err := loadKeyPair(cfg, logger)
	if err != nil {
		return err
	}

	repos, revoker, health, closeStore, err := buildStores(cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	auditor := audit.NewZerologRecorder(logger)
	mailer := email.NewService(email.LogTransport{Log: logger}, cfg.GetBaseURL(), logger)

	activationManager := activation.NewManager(repos.activations)
	mfaManager := mfa.NewManager(repos.codes, repos.sessions, mailer)
	issuer := token.NewIssuer(keys.NewKeyPairSigner(keyPair), repos.refresh, repos.users, repos.roles)

	roleService := roles.NewService(repos.roles, repos.users, auditor)
	userService := users.NewService(repos.users, activationManager, mailer, revoker, auditor)
	authService := auth.NewService(repos.users, repos.sessions, mfaManager, issuer, revoker, auditor)

	ctx := context.Background()
	if err := server.Bootstrap(ctx, logger, cfg, server.BootstrapDeps{
		UserRepo:    repos.users,
		UserService: userService,
		RoleService: roleService,
	}); err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}

	srv := server.New(cfg, logger, server.Services{
		Auth:       authService,
		Users:      userService,
		Roles:      roleService,
		Issuer:     issuer,
		SigningKey: keyPair,
		Cleanup: server.Cleanup{
			Sessions:    authService.CleanExpiredSessions,
			MFACodes:    mfaManager.CleanupExpired,
			Activations: activationManager.CleanupExpired,
			Refresh:     issuer.CleanupExpired,
		},
	}, obs.NewMetrics(), health)

	httpServer := &http.Server{Addr: cfg.GetPort(), Handler: srv}
	go listenAndServe(httpServer, logger)
	waitForStopSignal()
	return shutdown(httpServer)
}

type repoSet struct {
	users       users.Repo
	sessions    sessions.Repo
	codes       mfa.Repo
	activations activation.Repo
	refresh     refresh.Repo
	roles       roles.Repo
}

// buildStores wires either the Postgres store or, when DATABASE_URL is
// absent, volatile in-memory repositories (DEV only).
func buildStores(cfg config.Config, logger zerolog.Logger) (repoSet, auth.Revoker, server.Pinger, func(), error) {
	dsn := cfg.GetDatabaseURL()
	if dsn == "" {
		logger.Warn().Msg("DATABASE_URL not set, running on in-memory stores")
		sessionRepo := sessionrepofakes.NewFakeSessionRepo()
		refreshRepo := refreshrepofake.NewFakeRefreshRepo()
		repos := repoSet{
			users:       userrepofake.NewFakeUserRepo(),
			sessions:    sessionRepo,
			codes:       mfarepofake.NewFakeCodeRepo(),
			activations: activationrepofake.NewFakeTokenRepo(),
			refresh:     refreshRepo,
			roles:       rolerepofake.NewFakeRoleRepo(),
		}
		revoker := &auth.MemoryRevoker{Sessions: sessionRepo, Refresh: refreshRepo}
		return repos, revoker, nil, func() {}, nil
	}

	store, err := postgres.Open(context.Background(), dsn)
	if err != nil {
		return repoSet{}, nil, nil, nil, fmt.Errorf("open postgres: %w", err)
	}
	repos := repoSet{
		users:       store.Users,
		sessions:    store.Sessions,
		codes:       store.MFACodes,
		activations: store.Activations,
		refresh:     store.Refresh,
		roles:       store.Roles,
	}
	return repos, store, store, func() { _ = store.Close() }, nil
}

// loadKeyPair reads the signing key from config, generating an ephemeral
// one in DEV when none is configured.
func loadKeyPair(cfg config.Config, logger zerolog.Logger) (*keys.KeyPair, error) {
	if pem := cfg.GetSigningKeyPEM(); pem != "" {
		return keys.LoadKeyPairFromPEM(cfg.GetSigningKeyID(), pem)
	}
	if cfg.GetEnv() != "DEV" {
		return nil, errors.New("SIGNING_KEY_PEM is required outside DEV")
	}
	logger.Warn().Msg("no signing key configured, generating an ephemeral one")
	return keys.GenerateRSAKeyPair(cfg.GetSigningKeyID(), 2048)
}

func newLogger(cfg config.Config) zerolog.Logger {
	if cfg.GetEnv() == "DEV" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}

func listenAndServe(httpServer *http.Server, logger zerolog.Logger) {
	logger.Info().Str("addr", httpServer.Addr).Msg("server listening")
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("server.ListenAndServe")
	}
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(httpServer *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
