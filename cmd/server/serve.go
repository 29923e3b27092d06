package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/soaringjerry/FootPulse/internal/api"
	"github.com/soaringjerry/FootPulse/internal/logger"
	"github.com/soaringjerry/FootPulse/internal/middleware"
)

var (
	serveMemory bool
	serveAddr   string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveMemory, "memory", false, "keep data in memory instead of SQLite")
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides FOOTPULSE_ADDR)")
}

func runServe(cmd *cobra.Command, args []string) error {
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}
	if err := cfg.Validate(os.Getenv("FOOTPULSE_ENV") == "production"); err != nil {
		return err
	}
	if cfg.Auth.JWTSecret == "" {
		log.Warn().Msg("FOOTPULSE_JWT_SECRET not set, using development secret")
	}

	store, closeStore, err := openStore(serveMemory)
	if err != nil {
		return err
	}
	defer closeStore()

	if cfg.SeedDemo || serveMemory {
		if err := seedDemo(store); err != nil {
			return err
		}
	}

	accessLogger := log.Logger
	if cfg.Logging.FileEnabled {
		accessLogger = logger.NewAccessLogger(cfg.Logging.FilePath, cfg.Logging.RotationSize, cfg.Logging.RetentionDays)
	}
	router := api.NewRouter(store, api.Options{
		Auth:           middleware.NewAuth(cfg.Auth.JWTSecret),
		TokenTTL:       cfg.Auth.TokenTTL,
		CORSOrigins:    cfg.Server.CORSOrigins,
		StaticDir:      cfg.Server.StaticDir,
		DevFrontendURL: cfg.Server.DevFrontendURL,
		Version:        cfg.Build.Version,
		Commit:         cfg.Build.Commit,
		BuildTime:      cfg.Build.BuildTime,
		AccessLogger:   &accessLogger,
	})

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Bool("memory", serveMemory).
			Str("version", cfg.Build.Version).Msg("FootPulse server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutdown signal received, stopping server")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	log.Info().Msg("server stopped")
	return nil
}
