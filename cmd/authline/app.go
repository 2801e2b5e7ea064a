package main

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/authline/authline/internal/db"
	"github.com/authline/authline/internal/email"
	"github.com/authline/authline/internal/logger"
	"github.com/authline/authline/internal/redisdb"
	"github.com/authline/authline/internal/repository/postgres"
	"github.com/authline/authline/internal/repository/redistore"
	"github.com/authline/authline/internal/service/auth"
	"github.com/authline/authline/internal/service/user"
)

// App wires the whole service together.
// Transport is out of scope here: Auth and Users are the product surface,
// embedders put whatever server they want in front of them.
type App struct {
	Auth  *auth.Service
	Users *user.UserService

	logger logger.Logger
	pool   *pgxpool.Pool
	redis  *redis.Client
}

func NewApp(ctx context.Context, c *Config) (*App, error) {
	// Initialize logger
	log, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	// Connect to the database and run migrations
	pool, err := db.ConnectAndMigrate(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("error while connecting to db. Err: %w", err)
	}

	// Connect to redis holding session tokens
	redisClient, err := redisdb.Connect(ctx, c.RedisURI)
	if err != nil {
		return nil, fmt.Errorf("error while connecting to redis. Err: %w", err)
	}

	// Initialize repositories
	hasher := auth.NewArgon2Hasher(auth.DefaultArgon2Params, 0)
	storage := postgres.NewStorage(pool, hasher, c.ResetTokenTTL)
	tokens := redistore.NewTokenStore(redisClient)

	// Initialize services
	authService, err := auth.NewService(auth.Config{
		AppURL:        c.AppURL,
		ResetTokenTTL: c.ResetTokenTTL,
		Hasher:        hasher,
		Logger:        log,
	}, storage, tokens, &email.LogSender{Logger: log})
	if err != nil {
		return nil, fmt.Errorf("error while creating auth service. Err: %w", err)
	}

	userService := user.NewService(storage.User())

	return &App{
		Auth:   authService,
		Users:  userService,
		logger: log,
		pool:   pool,
		redis:  redisClient,
	}, nil
}

// Run blocks until the context is cancelled, then releases connections
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("authline started")

	<-ctx.Done()

	a.logger.Info("shutting down")
	a.pool.Close()
	if err := a.redis.Close(); err != nil {
		return fmt.Errorf("error while closing redis client. Err: %w", err)
	}

	return nil
}
