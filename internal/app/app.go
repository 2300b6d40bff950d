package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"estate-api/internal/config"
	"estate-api/internal/database"
	"estate-api/internal/handler"
	"estate-api/internal/metrics"
	"estate-api/internal/middleware"
	"estate-api/internal/repository"
	"estate-api/internal/router"
	"estate-api/internal/security"
	"estate-api/internal/service"
)

type App struct {
	cfg          *config.Config
	server       *http.Server
	cleanupFuncs []func()
}

// Option customizes New. Tests use it to capture verification codes.
type Option func(*options)

type options struct {
	mailer service.Mailer
}

func WithMailer(m service.Mailer) Option {
	return func(o *options) { o.mailer = m }
}

type stores struct {
	users    service.UserStore
	sessions service.SessionStore
	preAuth  service.PreAuthStore
	audit    service.AuditStore
	health   func(ctx context.Context) error
}

func New(cfg *config.Config, opts ...Option) (*App, error) {
	o := options{mailer: service.LogMailer{}}
	for _, opt := range opts {
		opt(&o)
	}

	trustedProxies, err := cfg.TrustedProxyPrefixes()
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	a := &App{cfg: cfg}

	st, err := a.openStores(ctx)
	if err != nil {
		return nil, err
	}

	if cfg.JWTSecret == "" {
		slog.Error("JWT_SECRET is not set; authenticated requests will fail with SERVER_MISCONFIGURED")
	}

	m := metrics.New()
	hasher := security.NewHasher(cfg.BcryptCost, cfg.HashWorkers)
	issuer := security.NewTokenIssuer(cfg.JWTSecret, cfg.RefreshSecret(), cfg.JWTAccessTTL, cfg.JWTRefreshTTL)

	auditService := service.NewAuditService(st.audit)
	sessionService := service.NewSessionService(st.users, st.sessions, issuer, hasher, m)
	signupService := service.NewSignupService(st.users, st.preAuth, sessionService, hasher, o.mailer, cfg.PreAuthTTL, m)
	userService := service.NewUserService(st.users, hasher)

	if cfg.AdminEmail != "" {
		if err := userService.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			a.cleanup()
			return nil, fmt.Errorf("failed to bootstrap admin user: %w", err)
		}
	}

	gate := middleware.NewAuthGate(sessionService, m)
	appRouter := router.New(cfg, gate, middleware.NewProxyTrust(trustedProxies), router.Handlers{
		Auth:    handler.NewAuthHandler(sessionService, signupService, userService, auditService),
		Session: handler.NewSessionHandler(sessionService, auditService),
		User:    handler.NewUserHandler(userService, auditService),
		Audit:   handler.NewAuditHandler(auditService),
		Health:  handler.NewHealthHandler(st.health),
		Metrics: m.Handler(),
	})

	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	go service.StartCleanupTicker(cleanupCtx, cfg.SessionCleanupInterval, sessionService, signupService)
	a.cleanupFuncs = append(a.cleanupFuncs, cleanupCancel)

	a.server = &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           appRouter,
		ReadHeaderTimeout: cfg.ServerReadHeaderTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
	}

	return a, nil
}

func (a *App) openStores(ctx context.Context) (stores, error) {
	if a.cfg.StorageDriver == config.StorageDriverMemory {
		slog.Warn("using in-memory storage; data is lost on restart")
		return stores{
			users:    repository.NewMemoryUserRepository(),
			sessions: repository.NewMemorySessionRepository(),
			preAuth:  repository.NewMemoryPreAuthRepository(),
			audit:    repository.NewMemoryAuditRepository(),
		}, nil
	}

	if a.cfg.DBAutoMigrate {
		slog.Info("applying database migrations")
		if err := database.Migrate(a.cfg.DatabaseURL, database.DirectionUp); err != nil {
			return stores{}, fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	slog.Info("connecting to PostgreSQL")
	db, err := database.Open(ctx, a.cfg.DatabaseURL, database.PoolOptions{
		MaxConns: a.cfg.DBMaxConns,
		MinConns: a.cfg.DBMinConns,
	})
	if err != nil {
		return stores{}, fmt.Errorf("failed to connect to database: %w", err)
	}
	a.cleanupFuncs = append(a.cleanupFuncs, db.Close)
	slog.Info("database ready")

	return stores{
		users:    repository.NewUserRepository(db.Pool),
		sessions: repository.NewSessionRepository(db.Pool),
		preAuth:  repository.NewPreAuthRepository(db.Pool),
		audit:    repository.NewAuditRepository(db.Pool),
		health:   db.Health,
	}, nil
}

// Run serves until SIGINT or SIGTERM, then drains in-flight requests.
func (a *App) Run() error {
	serveErr := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case err := <-serveErr:
		a.cleanup()
		return fmt.Errorf("server failed: %w", err)
	case <-stop:
	}

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	shutdownErr := a.server.Shutdown(ctx)
	a.cleanup()
	if shutdownErr != nil {
		return fmt.Errorf("graceful shutdown failed: %w", shutdownErr)
	}

	slog.Info("server stopped")
	return nil
}

func (a *App) cleanup() {
	for i := len(a.cleanupFuncs) - 1; i >= 0; i-- {
		a.cleanupFuncs[i]()
	}
	a.cleanupFuncs = nil
}
