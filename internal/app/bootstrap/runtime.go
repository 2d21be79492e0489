package bootstrap

import (
	"context"
	"crypto/tls"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/Nanyonga-Rahmah/crm-landing-pages/internal/config"
	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/events"
	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/listing"
	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/session"
	"github.com/Nanyonga-Rahmah/crm-landing-pages/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildPostgresPool connects the journal database, or returns nil when no
// URL is configured or the database cannot be reached.
func BuildPostgresPool(ctx context.Context, databaseURL string, logger *logging.Logger) *pgxpool.Pool {
	if strings.TrimSpace(databaseURL) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		logger.Warn("postgres not available", "error", err)
		return nil
	}
	if err := pool.Ping(ctx); err != nil {
		logger.Warn("postgres not reachable", "error", err)
		pool.Close()
		return nil
	}
	return pool
}

// BuildSessionStore uses Redis when available and process memory otherwise.
func BuildSessionStore(redisClient *redis.Client) session.Store {
	if redisClient == nil {
		return session.NewMemoryStore()
	}
	return session.NewRedisStore(redisClient)
}

// BuildSnapshotStore uses Redis when available and process memory otherwise.
func BuildSnapshotStore(redisClient *redis.Client) listing.SnapshotStore {
	if redisClient == nil {
		return listing.NewMemorySnapshotStore()
	}
	return listing.NewRedisSnapshotStore(redisClient)
}

// BuildJournal returns the Postgres journal when a pool is available.
func BuildJournal(pool *pgxpool.Pool) events.Journal {
	if pool == nil {
		return events.NewMemoryJournal()
	}
	return events.NewPostgresJournal(pool)
}
