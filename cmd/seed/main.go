// auth-seed bootstraps the first administrative operator. Unlike
// migrations, which run on startup, seeding is optional and typically
// runs once per environment.
package main

import (
	"context"
	"errors"
	"log"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/vpnpanel/auth-service/internal/config"
	"github.com/vpnpanel/auth-service/internal/database"
	"github.com/vpnpanel/auth-service/internal/password"
	"github.com/vpnpanel/auth-service/internal/services/operator"
	"github.com/vpnpanel/auth-service/internal/store/postgres"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: could not load .env file: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx := context.Background()

	pool, err := database.NewPool(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("database connection", zap.Error(err))
	}
	defer pool.Close()

	if err := database.RunMigrations(ctx, pool); err != nil {
		logger.Fatal("migrations", zap.Error(err))
	}
	logger.Info("migrations completed")

	adminEmail := os.Getenv("SEED_ADMIN_EMAIL")
	if adminEmail == "" {
		adminEmail = "admin@example.com"
	}
	adminPassword := os.Getenv("SEED_ADMIN_PASSWORD")
	if adminPassword == "" {
		adminPassword = "ChangeMe123!"
		logger.Warn("using default admin password, set SEED_ADMIN_PASSWORD in production")
	}

	operators := postgres.NewOperators(pool)
	sessions := postgres.NewSessions(pool)
	hasher := password.NewHasher(cfg.Security.HashCost)
	svc := operator.New(operators, sessions, hasher, logger)

	op, err := svc.Create(ctx, operator.CreateInput{
		Email:     adminEmail,
		Password:  adminPassword,
		FirstName: "System",
		LastName:  "Administrator",
		Role:      "superadmin",
	})
	if err != nil {
		if errors.Is(err, operator.ErrEmailTaken) {
			logger.Info("admin operator already present", zap.String("email", adminEmail))
			return
		}
		logger.Fatal("seeding", zap.Error(err))
	}

	logger.Info("seeding completed",
		zap.String("email", op.Email),
		zap.String("id", op.ID.String()),
	)
}
