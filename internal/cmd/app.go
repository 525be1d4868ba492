package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fjod/cats-den/internal/cache"
	"github.com/fjod/cats-den/internal/catalog"
	"github.com/fjod/cats-den/internal/config"
	"github.com/fjod/cats-den/internal/logger"
	"github.com/fjod/cats-den/internal/repository"
	"github.com/fjod/cats-den/internal/repository/sqlstore"
	"github.com/fjod/cats-den/internal/telemetry"
)

func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	log := logger.New(logger.Config{
		Service: "catsden",
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
	})
	slog.SetDefault(log)
	return cfg, log, nil
}

// openStore connects the backend selected by database.driver.
func openStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	switch cfg.Database.Driver {
	case "postgres", "sqlite":
		dialect, dsn := sqlstore.Postgres, cfg.Postgres.DSN
		if cfg.Database.Driver == "sqlite" {
			dialect, dsn = sqlstore.SQLite, cfg.SQLite.Path
		}
		s, err := sqlstore.Open(ctx, dialect, dsn, cfg.Postgres.MaxOpenConns)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		db, err := repository.ConnectMongoDB(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
		if err != nil {
			return nil, err
		}
		return repository.NewMongoStore(db), nil
	}
}

// openRedis returns nil when no address is configured.
func openRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	if cfg.Addr == "" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}
	return client, nil
}

func newCatalog(cfg config.CMSConfig, c cache.Cache, log *slog.Logger, metrics *telemetry.Metrics) (*catalog.Service, error) {
	fallback, err := catalog.LoadFallback()
	if err != nil {
		return nil, fmt.Errorf("failed to load fallback catalog: %w", err)
	}
	var remote catalog.Querier
	if cfg.APIToken != "" {
		remote = catalog.NewClient(catalog.ClientConfig{
			Endpoint:    cfg.Endpoint,
			Token:       cfg.APIToken,
			Environment: cfg.Environment,
			Preview:     cfg.Preview,
			Timeout:     cfg.Timeout,
		})
	} else {
		log.Warn("cms api token not set, serving the fallback catalog only")
	}
	return catalog.NewService(remote, fallback,
		catalog.WithCache(c),
		catalog.WithLogger(log),
		catalog.WithMetrics(metrics),
	), nil
}
