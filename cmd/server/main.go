package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/deckmate/deckmate/internal/api"
	"github.com/deckmate/deckmate/internal/config"
	"github.com/deckmate/deckmate/internal/email"
	"github.com/deckmate/deckmate/internal/factory"
	"github.com/deckmate/deckmate/internal/services/refresh"
	redisstorage "github.com/deckmate/deckmate/internal/storage/redis"
)

func main() {
	// Set up logging with JSON output
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Build factory config
	factoryCfg := factory.Config{
		JWTSecret:   cfg.JWTSecret,
		BcryptCost:  cfg.BcryptCost,
		Logger:      logger,
		StorageType: cfg.StorageType,
	}

	if cfg.StorageType == factory.StorageTypeRedis {
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = cfg.RedisURL
		factoryCfg.RedisConfig = &redisCfg
	}

	if cfg.SMTPHost != "" {
		factoryCfg.SMTPConfig = &email.SMTPConfig{
			Host:        cfg.SMTPHost,
			Port:        strconv.Itoa(cfg.SMTPPort),
			User:        cfg.SMTPUser,
			Pass:        cfg.SMTPPass,
			From:        cfg.SMTPFrom,
			FrontendURL: cfg.FrontendURL,
		}
	} else {
		logger.Warn("SMTP not configured, emails will be logged instead")
	}

	if !cfg.RevokeOnReuse {
		factoryCfg.RefreshConfig = &refresh.Config{RevokeOnReuse: false}
	}

	// Create application factory
	app, err := factory.New(factoryCfg)
	if err != nil {
		logger.Error("failed to create application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Create API router
	router := api.NewRouter(api.RouterConfig{
		Logger:        logger,
		Authenticator: app.Authenticator,
		Credentials:   app.Credentials,
		SecureCookies: cfg.SecureCookies,
	})

	// Create server
	serverConfig := api.DefaultServerConfig()
	serverConfig.Host = cfg.Host
	serverConfig.Port = cfg.Port
	server := api.NewServer(router, serverConfig, logger)

	// Handle graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("shutdown signal received")
		cancel()
	}()

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	logger.Info("server started", slog.String("addr", server.Addr()))

	// Wait for shutdown or error
	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	case <-ctx.Done():
		if err := server.Shutdown(context.Background()); err != nil {
			logger.Error("shutdown error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	logger.Info("server stopped")
}
