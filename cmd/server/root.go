package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/soaringjerry/FootPulse/internal/api"
	"github.com/soaringjerry/FootPulse/internal/config"
	dbstore "github.com/soaringjerry/FootPulse/internal/db"
	"github.com/soaringjerry/FootPulse/internal/logger"
)

var (
	envFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:           "footpulse",
	Short:         "FootPulse academy evaluation server",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(envFile)
		if err != nil {
			return err
		}
		if err := logger.Init(logger.Config{
			Level:          c.Logging.Level,
			Format:         c.Logging.Format,
			FileEnabled:    c.Logging.FileEnabled,
			FilePath:       c.Logging.FilePath,
			RotationSize:   c.Logging.RotationSize,
			RetentionDays:  c.Logging.RetentionDays,
			ServiceName:    "footpulse",
			ServiceVersion: c.Build.Version,
		}); err != nil {
			return err
		}
		cfg = c
		return nil
	},
}

func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		return err
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "env file to load (default .env)")
	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd)
}

// openStore returns the SQLite store at cfg.DB.Path with migrations applied,
// or a fresh in-memory store. The returned func releases the store.
func openStore(memory bool) (api.Store, func(), error) {
	if memory {
		return api.NewMemoryStore(), func() {}, nil
	}
	sqlDB, err := dbstore.Open(cfg.DB.Path)
	if err != nil {
		return nil, nil, err
	}
	closeDB := func() {
		if err := sqlDB.Close(); err != nil {
			log.Warn().Err(err).Msg("close sqlite")
		}
	}
	if _, err := dbstore.RunMigrations(sqlDB, cfg.DB.MigrationsDir); err != nil {
		closeDB()
		return nil, nil, fmt.Errorf("run migrations: %w", err)
	}
	store, err := dbstore.NewSQLiteStore(sqlDB)
	if err != nil {
		closeDB()
		return nil, nil, err
	}
	return store, closeDB, nil
}
