package store

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// Backend names accepted by Open.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendAFS      = "afs"
)

// Config selects and configures a backend.
type Config struct {
	Backend     string `mapstructure:"backend"`
	DSN         string `mapstructure:"dsn"`
	RedisAddr   string `mapstructure:"redis_addr"`
	RedisPrefix string `mapstructure:"redis_prefix"`
	BaseURL     string `mapstructure:"base_url"`
}

// Open creates the store described by cfg. dataDir is used for defaults of
// file-based backends.
func Open(ctx context.Context, cfg Config, dataDir string) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case BackendMemory:
		return NewMemory(), nil
	case BackendSQLite, "":
		dsn := cfg.DSN
		if dsn == "" {
			dsn = filepath.Join(dataDir, "documents.db")
		}
		return NewSQLite(dsn)
	case BackendPostgres:
		if cfg.DSN == "" {
			return nil, fmt.Errorf("postgres backend requires store.dsn")
		}
		return NewPostgres(ctx, cfg.DSN)
	case BackendRedis:
		addr := cfg.RedisAddr
		if addr == "" {
			addr = "localhost:6379"
		}
		prefix := cfg.RedisPrefix
		if prefix == "" {
			prefix = "playground:"
		}
		return NewRedis(ctx, addr, prefix)
	case BackendAFS:
		base := cfg.BaseURL
		if base == "" {
			base = "file://" + filepath.Join(dataDir, "documents")
		}
		return NewAFS(base), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}
