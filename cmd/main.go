// The authgate binary applies migrations and runs the expired-record
// sweeper. The authentication services themselves are a library consumed
// by an embedding application; see internal/service.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/mkarev/authgate/internal/config"
	"github.com/mkarev/authgate/internal/logger"
	"github.com/mkarev/authgate/internal/repository/postgres"
	"github.com/mkarev/authgate/internal/service"
	"github.com/mkarev/authgate/internal/sweeper"
	"github.com/mkarev/authgate/internal/token"
)

var (
	buildVersion = "N/A" // set by ldflags
	buildDate    = "N/A" // set by ldflags
	buildCommit  = "N/A" // set by ldflags
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, os.Interrupt)
	defer stop()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	logger := logger.New(cfg.LogLevel)

	db, err := postgres.NewConnection(ctx, cfg.Database.DSN)
	if err != nil {
		logger.Fatal("failed to initialize storage", "error", err)
	}
	defer db.Close()

	activeTokenRepo := postgres.NewActiveTokenRepository(db)
	invalidatedTokenRepo := postgres.NewInvalidatedTokenRepository(db)
	totpSecretRepo := postgres.NewTotpSecretRepository(db)
	totpUsedCodeRepo := postgres.NewTotpUsedCodeRepository(db)
	blockListRepo := postgres.NewBlockListRepository(db)

	tokenManager := token.NewJWT(cfg.JWT.Secret, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)
	tokenService := service.NewTokenService(tokenManager, activeTokenRepo, invalidatedTokenRepo, logger)
	totpService := service.NewTotpService(totpSecretRepo, totpUsedCodeRepo, cfg.TOTP.Issuer, cfg.Auth.BcryptCost, logger)

	sw := sweeper.New(tokenService, totpService, blockListRepo, cfg.Sweep.Interval, logger)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.Info("Starting sweeper", "interval", cfg.Sweep.Interval)
		sw.Run(ctx)
	}()

	logAppVersion()

	<-ctx.Done()
	logger.Info("received interruption signal, shutting down")

	wg.Wait()
	logger.Info("shutdown complete")
}

func logAppVersion() {
	tmpl := `
Build version: %s
Build date: %s
Build commit: %s
`

	fmt.Printf(tmpl, buildVersion, buildDate, buildCommit)
}
