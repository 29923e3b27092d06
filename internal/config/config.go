package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"

	"github.com/soaringjerry/FootPulse/internal/utils"
)

// Config is assembled from an optional .env file plus the process environment.
// Values already present in the environment win over the file.
type Config struct {
	Server  ServerConfig
	DB      DBConfig
	Auth    AuthConfig
	Logging LoggingConfig
	Build   BuildInfo
	// SeedDemo loads the demo academy on startup when the store is empty.
	SeedDemo bool
}

type ServerConfig struct {
	Addr            string
	CORSOrigins     []string
	StaticDir       string
	DevFrontendURL  string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type DBConfig struct {
	Path          string
	MigrationsDir string
}

type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

type LoggingConfig struct {
	Level         string
	Format        string
	FileEnabled   bool
	FilePath      string
	RotationSize  int
	RetentionDays int
}

type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// Version is overridden at link time.
var Version = "dev"

// Load reads envFile (".env" when empty). A missing file is not an error.
func Load(envFile string) (*Config, error) {
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Addr:            utils.SafeEnv("FOOTPULSE_ADDR", ":8080"),
			CORSOrigins:     utils.EnvList("FOOTPULSE_CORS_ORIGINS"),
			StaticDir:       utils.SafeEnv("FOOTPULSE_STATIC_DIR", ""),
			DevFrontendURL:  utils.SafeEnv("FOOTPULSE_DEV_FRONTEND_URL", ""),
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		DB: DBConfig{
			Path:          utils.SafeEnv("FOOTPULSE_DB_PATH", "./data/footpulse.db"),
			MigrationsDir: utils.SafeEnv("FOOTPULSE_MIGRATIONS_DIR", ""),
		},
		Auth: AuthConfig{
			JWTSecret: utils.SafeEnv("FOOTPULSE_JWT_SECRET", ""),
			TokenTTL:  utils.EnvDuration("FOOTPULSE_TOKEN_TTL", 24*time.Hour),
		},
		Logging: LoggingConfig{
			Level:         utils.SafeEnv("LOG_LEVEL", "info"),
			Format:        utils.SafeEnv("LOG_FORMAT", "json"),
			FileEnabled:   utils.EnvBool("LOG_FILE_ENABLED", false),
			FilePath:      utils.SafeEnv("LOG_FILE_PATH", "./logs"),
			RotationSize:  100,
			RetentionDays: 14,
		},
		Build: BuildInfo{
			Version:   Version,
			Commit:    utils.SafeEnv("FOOTPULSE_COMMIT", "unknown"),
			BuildTime: utils.SafeEnv("FOOTPULSE_BUILD_TIME", ""),
		},
		SeedDemo: utils.EnvBool("FOOTPULSE_SEED_DEMO", false),
	}
	return cfg, nil
}

// Validate rejects settings that would make the server unsafe to expose.
func (c *Config) Validate(production bool) error {
	if production && (c.Auth.JWTSecret == "" || len(c.Auth.JWTSecret) < 16) {
		return errors.New("FOOTPULSE_JWT_SECRET must be set to at least 16 characters")
	}
	if c.Server.Addr == "" {
		return errors.New("FOOTPULSE_ADDR must not be empty")
	}
	return nil
}
