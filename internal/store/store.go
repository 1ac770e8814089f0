package store

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/2beens/pushupjourney/internal/config"
	"github.com/2beens/pushupjourney/internal/db"

	"github.com/IBM/pgxpoolprometheus"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
)

var ErrNotFound = errors.New("key not found")

// Store is a key-value blob store holding the serialized progress and settings.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}

type Params struct {
	Backend           string
	SqlitePath        string
	DiskRootPath      string
	MemorySizeMB      int
	RedisHost         string
	RedisPort         string
	RedisPassword     string
	PostgresHost      string
	PostgresPort      string
	PostgresDBName    string
	TracingEnabled    bool
	MetricsRegisterer prometheus.Registerer
}

// ParamsFromConfig maps the persistence part of the config to store params.
func ParamsFromConfig(cfg *config.Config, redisPassword string) Params {
	return Params{
		Backend:        cfg.StoreBackend,
		SqlitePath:     cfg.SqlitePath,
		DiskRootPath:   cfg.DiskStoreRootPath,
		MemorySizeMB:   cfg.MemoryStoreSizeMB,
		RedisHost:      cfg.RedisHost,
		RedisPort:      cfg.RedisPort,
		RedisPassword:  redisPassword,
		PostgresHost:   cfg.PostgresHost,
		PostgresPort:   cfg.PostgresPort,
		PostgresDBName: cfg.PostgresDBName,
	}
}

// New builds the configured backend.
func New(ctx context.Context, params Params) (Store, error) {
	switch params.Backend {
	case config.StoreBackendSqlite, "":
		return NewSqliteStore(ctx, params.SqlitePath)
	case config.StoreBackendDisk:
		return NewDiskStore(params.DiskRootPath)
	case config.StoreBackendMemory:
		return NewMemoryStore(params.MemorySizeMB), nil
	case config.StoreBackendRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     net.JoinHostPort(params.RedisHost, params.RedisPort),
			Password: params.RedisPassword,
			DB:       0, // use default DB
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Errorf("--> failed to ping redis: %s", err)
		}
		return NewRedisStore(rdb), nil
	case config.StoreBackendPostgres:
		pool, err := db.NewDBPool(ctx, db.NewDBPoolParams{
			DBHost:         params.PostgresHost,
			DBPort:         params.PostgresPort,
			DBName:         params.PostgresDBName,
			TracingEnabled: params.TracingEnabled,
		})
		if err != nil {
			return nil, fmt.Errorf("new db pool: %w", err)
		}
		if params.MetricsRegisterer != nil {
			collector := pgxpoolprometheus.NewCollector(pool, map[string]string{"db_name": params.PostgresDBName})
			if err := params.MetricsRegisterer.Register(collector); err != nil {
				log.Warnf("register pgxpool collector: %s", err)
			}
		}
		s := NewPostgresStore(pool)
		if err := s.Migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate postgres store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store backend: %s", params.Backend)
	}
}
