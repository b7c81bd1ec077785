package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/user/nextdoor-crawler/internal/adapter/anthropic"
	"github.com/user/nextdoor-crawler/internal/adapter/memory"
	"github.com/user/nextdoor-crawler/internal/adapter/openai"
	"github.com/user/nextdoor-crawler/internal/adapter/postgres"
	redisadapter "github.com/user/nextdoor-crawler/internal/adapter/redis"
	"github.com/user/nextdoor-crawler/internal/adapter/sqlite"
	"github.com/user/nextdoor-crawler/internal/delivery/http/handler"
	"github.com/user/nextdoor-crawler/internal/repository"
	"github.com/user/nextdoor-crawler/pkg/config"
)

// openStore opens the post store selected by STORE_DRIVER and migrates it.
func openStore(ctx context.Context, cfg *config.Config) (repository.PostRepository, error) {
	switch strings.ToLower(cfg.StoreDriver) {
	case "", "sqlite":
		db, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return sqlite.NewPostRepo(db), nil
	case "postgres":
		if cfg.PostgresURL == "" {
			return nil, fmt.Errorf("POSTGRES_URL is required for the postgres store")
		}
		pool, err := postgres.Connect(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, err
		}
		return postgres.NewPostRepo(pool), nil
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
}

// seenBackend is the seen-set provider plus what the ops API needs to check it.
type seenBackend struct {
	provider repository.SeenSetProvider
	checks   map[string]handler.Pinger
	close    func() error
}

// openSeen uses Redis when REDIS_ADDR is set and an in-process set otherwise.
func openSeen(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*seenBackend, error) {
	if cfg.RedisAddr == "" {
		logger.Info("using in-memory seen set")
		return &seenBackend{
			provider: memory.NewSeenSetProvider(),
			close:    func() error { return nil },
		}, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connect to redis %s: %w", cfg.RedisAddr, err)
	}
	logger.Info("redis connection established", zap.String("addr", cfg.RedisAddr))

	return &seenBackend{
		provider: redisadapter.NewSeenSetProvider(rdb, redisadapter.DefaultSeenTTL),
		checks: map[string]handler.Pinger{
			"redis": handler.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() }),
		},
		close: rdb.Close,
	}, nil
}

// newOracle builds the language-model client selected by ORACLE_PROVIDER.
func newOracle(cfg *config.Config) (repository.Oracle, error) {
	switch strings.ToLower(cfg.OracleProvider) {
	case "openai":
		return openai.NewOracle(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.OpenAIModel), nil
	case "anthropic":
		return anthropic.NewOracle(cfg.AnthropicAPIKey, cfg.AnthropicModel), nil
	default:
		return nil, fmt.Errorf("unknown ORACLE_PROVIDER %q", cfg.OracleProvider)
	}
}
