package main

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/authline/authline/internal/logger"
)

const (
	defaultLoggingLevel  = logger.LevelInfo
	defaultEnvironment   = logger.EnvProduction
	defaultRedisURI      = "redis://localhost:6379/0"
	defaultAppURL        = "http://localhost:8000"
	defaultResetTokenTTL = 30 * time.Minute
)

type Config struct {
	// Default logging level
	LogLevel string

	// Environment
	Environment string

	// Database to connect to
	DatabaseDSN string

	// Redis holding session tokens
	RedisURI string

	// Base URL password reset links point at
	AppURL string

	// Redeem window for password reset tokens
	ResetTokenTTL time.Duration
}

func NewConfig() *Config {
	return &Config{
		LogLevel:      defaultLoggingLevel,
		Environment:   defaultEnvironment,
		RedisURI:      defaultRedisURI,
		AppURL:        defaultAppURL,
		ResetTokenTTL: defaultResetTokenTTL,
	}
}

// Load variable from '.env' file (should be located at working directory)
func (c *Config) LoadDotEnv(getwd func() (string, error)) error {
	wd, err := getwd()
	if err != nil {
		return err
	}

	envMap, err := godotenv.Read(filepath.Join(wd, ".env"))

	switch {
	case err == nil:
		c.LoadEnv(func(key string) string {
			return envMap[key]
		})
		return nil
	case errors.Is(err, os.ErrNotExist):
		return nil
	default:
		return err
	}
}

func (c *Config) LoadEnv(getenv func(string) string) {
	// Set option to value if it not empty
	setString := func(o *string) func(value string) {
		return func(value string) {
			if value != "" {
				*o = value
			}
		}
	}

	setDuration := func(o *time.Duration) func(value string) {
		return func(value string) {
			if value == "" {
				return
			}
			if d, err := time.ParseDuration(value); err == nil {
				*o = d
			}
		}
	}

	envMap := map[string]func(string){
		"DATABASE_URI":    setString(&c.DatabaseDSN),
		"REDIS_URI":       setString(&c.RedisURI),
		"APP_URL":         setString(&c.AppURL),
		"LOG_LEVEL":       setString(&c.LogLevel),
		"ENVIRONMENT":     setString(&c.Environment),
		"RESET_TOKEN_TTL": setDuration(&c.ResetTokenTTL),
	}

	for key, parseFn := range envMap {
		parseFn(getenv(key))
	}
}

func (c *Config) ParseFlags(args []string) error {
	fs := pflag.NewFlagSet("authline", pflag.ContinueOnError)

	fs.StringVarP(&c.DatabaseDSN, "database", "d", c.DatabaseDSN, "Database connection string")
	fs.StringVarP(&c.RedisURI, "redis", "r", c.RedisURI, "Redis connection string")
	fs.StringVarP(&c.AppURL, "app-url", "u", c.AppURL, "Base URL for password reset links")
	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "Logging level (debug, info, warn, error)")
	fs.StringVarP(&c.Environment, "environment", "e", c.Environment, "Environment (dev, prod)")
	fs.DurationVarP(&c.ResetTokenTTL, "reset-ttl", "t", c.ResetTokenTTL, "Password reset token lifetime")

	return fs.Parse(args)
}
