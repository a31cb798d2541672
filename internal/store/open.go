package store

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Drivers aceitos por Open
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// Options escolhe e configura o backend
type Options struct {
	Driver        string
	SQLitePath    string
	Postgres      PostgresConfig
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// Open cria o store indicado em opts.Driver
func Open(ctx context.Context, opts Options, logger *zap.Logger) (Store, error) {
	switch opts.Driver {
	case DriverMemory:
		logger.Warn("using in-memory store, data is lost on exit")
		return NewMemoryStore(), nil
	case DriverSQLite, "":
		logger.Info("opening sqlite store", zap.String("path", opts.SQLitePath))
		return OpenSQLite(ctx, opts.SQLitePath)
	case DriverPostgres:
		return OpenPostgres(ctx, opts.Postgres, logger)
	case DriverRedis:
		s := NewRedisStore(opts.RedisAddr, opts.RedisPassword, opts.RedisDB)
		if err := s.Ping(ctx); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("failed to reach redis at %s: %w", opts.RedisAddr, err)
		}
		logger.Info("connected to redis store", zap.String("addr", opts.RedisAddr))
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", opts.Driver)
	}
}
