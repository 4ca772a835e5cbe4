package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/vpnpanel/auth-service/internal/audit"
	"github.com/vpnpanel/auth-service/internal/cache"
	"github.com/vpnpanel/auth-service/internal/config"
	"github.com/vpnpanel/auth-service/internal/database"
	"github.com/vpnpanel/auth-service/internal/httpapi"
	"github.com/vpnpanel/auth-service/internal/httpapi/handlers"
	httpmiddleware "github.com/vpnpanel/auth-service/internal/httpapi/middleware"
	"github.com/vpnpanel/auth-service/internal/lockout"
	"github.com/vpnpanel/auth-service/internal/password"
	"github.com/vpnpanel/auth-service/internal/services/auth"
	"github.com/vpnpanel/auth-service/internal/services/operator"
	"github.com/vpnpanel/auth-service/internal/session"
	"github.com/vpnpanel/auth-service/internal/store/postgres"
	"github.com/vpnpanel/auth-service/internal/token"
)

// App wires core dependencies and exposes server lifecycle controls.
type App struct {
	cfg        *config.Config
	logger     *zap.Logger
	pool       *pgxpool.Pool
	redis      *redis.Client
	httpServer *http.Server
	auditor    *audit.Recorder
	sessions   *session.Manager

	workerCancel context.CancelFunc
	sweepDone    chan struct{}
}

// New constructs the application.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	pool, err := database.NewPool(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	if cfg.Database.RunMigrations {
		if err := database.RunMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
	}

	redisClient, err := cache.New(cfg.Redis)
	if err != nil {
		pool.Close()
		return nil, err
	}

	operators := postgres.NewOperators(pool)
	sessionStore := postgres.NewSessions(pool)
	attempts := postgres.NewLoginAttempts(pool)

	tokenSvc := token.NewService(cfg.Token)
	hasher := password.NewHasher(cfg.Security.HashCost)
	auditor := audit.New(attempts, logger, cfg.Security.AuditQueueSize)
	sessionManager := session.NewManager(sessionStore, hasher, cfg.Token.RefreshTokenTTL, logger)

	authService := auth.New(auth.Dependencies{
		Operators: operators,
		Sessions:  sessionManager,
		Tokens:    tokenSvc,
		Hasher:    hasher,
		Policy:    lockout.NewPolicy(cfg.Security.LockoutThreshold, cfg.Security.LockoutWindow),
		Auditor:   auditor,
		Logger:    logger,
	})
	operatorService := operator.New(operators, sessionStore, hasher, logger)

	authHandler := handlers.NewAuthHandler(authService, logger)
	operatorHandler := handlers.NewOperatorHandler(operatorService, logger)
	authMiddleware := httpmiddleware.NewAuth(authService)
	rateLimiter := httpmiddleware.NewRateLimiter(redisClient, cfg.Redis.Namespace, logger)

	byClientIP := func(r *http.Request) string { return httpapi.ClientIP(r) }

	router := httpapi.NewRouter(httpapi.RouterDeps{
		HealthHandler: handlers.NewHealth(cfg.App.ServiceName),
		Auth: httpapi.AuthHandlers{
			Login:         authHandler.Login,
			Refresh:       authHandler.Refresh,
			Logout:        authHandler.Logout,
			LogoutAll:     authHandler.LogoutAll,
			ListSessions:  authHandler.ListSessions,
			RevokeSession: authHandler.RevokeSession,
			Me:            authHandler.Me,
		},
		Operators: httpapi.OperatorHandlers{
			Create:         operatorHandler.Create,
			List:           operatorHandler.List,
			Get:            operatorHandler.Get,
			Update:         operatorHandler.Update,
			ChangePassword: operatorHandler.ChangePassword,
			Unlock:         operatorHandler.Unlock,
			Deactivate:     operatorHandler.Deactivate,
		},
		RequireAuthHandler: authMiddleware.RequireAuth,
		RateLimitLogin:     rateLimiter.Limit("login", cfg.Security.LoginRateLimit, cfg.Security.RateLimitWindow, byClientIP),
		RateLimitRefresh:   rateLimiter.Limit("refresh", cfg.Security.RefreshRateLimit, cfg.Security.RateLimitWindow, byClientIP),
	})

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:           router,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
	}

	return &App{
		cfg:        cfg,
		logger:     logger,
		pool:       pool,
		redis:      redisClient,
		httpServer: server,
		auditor:    auditor,
		sessions:   sessionManager,
		sweepDone:  make(chan struct{}),
	}, nil
}

// Run starts the background workers and the HTTP server.
func (a *App) Run() error {
	workerCtx, cancel := context.WithCancel(context.Background())
	a.workerCancel = cancel

	go a.auditor.Run(workerCtx)
	go a.sweepLoop(workerCtx)

	a.logger.Info("starting HTTP server", zap.String("addr", a.httpServer.Addr))
	return a.httpServer.ListenAndServe()
}

// sweepLoop periodically purges expired session records.
func (a *App) sweepLoop(ctx context.Context) {
	defer close(a.sweepDone)

	ticker := time.NewTicker(a.cfg.Security.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweepCtx, cancel := context.WithTimeout(ctx, time.Minute)
			if _, err := a.sessions.SweepExpired(sweepCtx); err != nil {
				a.logger.Warn("session sweep failed", zap.Error(err))
			}
			cancel()
		}
	}
}

// Shutdown gracefully stops the HTTP server, drains workers and closes
// resources.
func (a *App) Shutdown(ctx context.Context) error {
	shutdownErr := a.httpServer.Shutdown(ctx)

	if a.workerCancel != nil {
		a.workerCancel()
		a.auditor.Wait()
		<-a.sweepDone
	}

	if err := a.redis.Close(); err != nil {
		a.logger.Warn("failed to close redis client", zap.Error(err))
		if shutdownErr == nil {
			shutdownErr = err
		}
	}
	a.pool.Close()
	return shutdownErr
}
