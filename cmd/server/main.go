package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"doccrm/backend/internal/config"
	"doccrm/backend/internal/httpserver"
	"doccrm/backend/internal/infrastructure/credstore"
	"doccrm/backend/internal/infrastructure/password"
	"doccrm/backend/internal/infrastructure/token"
	"doccrm/backend/internal/logging"
	"doccrm/backend/internal/telemetry"
	authusecase "doccrm/backend/internal/usecase/auth"

	"github.com/spf13/pflag"
)

const serviceName = "doccrm-gateway"

func main() {
	if err := run(); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var addr, driver, envFile string
	flagSet := pflag.NewFlagSet("server", pflag.ContinueOnError)
	flagSet.StringVar(&addr, "addr", "", "listen address, overrides HTTP_PORT (e.g. :8080)")
	flagSet.StringVar(&driver, "store", "", "credential store driver, overrides STORE_DRIVER (postgres, sqlite, rest, memory)")
	flagSet.StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		return err
	}

	cfg, err := loadConfig(envFile, addr, driver)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stdout)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	rootCtx := context.Background()
	shutdownTracing, err := telemetry.Setup(rootCtx, telemetry.Config{
		Enabled:     cfg.Telemetry.Enabled,
		Endpoint:    cfg.Telemetry.Endpoint,
		ServiceName: serviceName,
	})
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			logger.Warn(ctx, "tracing shutdown failed", "error", err)
		}
	}()

	store, closeStore, err := openStore(rootCtx, cfg.Store, logger)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.Store.Driver, err)
	}
	defer closeStore()

	creds := credstore.New(store, cfg.Store.Timeout)

	tokenManager, err := token.NewJWTManager(cfg.JWT.Secret, cfg.JWT.TTL, cfg.JWT.Issuer)
	if err != nil {
		return fmt.Errorf("init token manager: %w", err)
	}
	hasher, err := password.NewBcrypt(cfg.BcryptCost)
	if err != nil {
		return fmt.Errorf("init password hasher: %w", err)
	}

	tokenService := authusecase.NewTokenService(tokenManager, creds)
	authService := authusecase.NewService(creds, tokenService, hasher)

	server := httpserver.NewServer(cfg, logger, authService, tokenService, creds)
	logger.Info(rootCtx, "HTTP server listening", "addr", server.Addr(), "store", cfg.Store.Driver)

	serveErr := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			return
		}
		logger.Info(rootCtx, "HTTP server stopped accepting new connections")
	}()

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-serveErr:
		return fmt.Errorf("server error: %w", err)
	case <-shutdownCtx.Done():
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error(ctx, "graceful shutdown failed", "error", err)
		return err
	}
	logger.Info(ctx, "graceful shutdown completed")
	return nil
}

// loadConfig reads the environment and applies command-line overrides.
func loadConfig(envFile, addr, driver string) (config.Config, error) {
	for key, value := range map[string]string{"HTTP_PORT": addr, "STORE_DRIVER": driver} {
		if value == "" {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return config.Config{}, err
		}
	}
	return config.LoadFrom(envFile)
}
