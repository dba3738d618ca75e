package overlay

import (
	"context"
	"fmt"
	"strings"
)

// Supported values for StoreConfig.Backend.
const (
	BackendMongo  = "mongo"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// StoreConfig selects and configures a Store backend.
type StoreConfig struct {
	// Backend is one of the Backend* constants. Empty means mongo when
	// MongoURI is set and memory otherwise.
	Backend string

	MongoURI        string
	MongoDatabase   string
	MongoCollection string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	SQLitePath string
}

// ResolvedBackend returns the backend OpenStore will use.
func (c StoreConfig) ResolvedBackend() string {
	b := strings.ToLower(strings.TrimSpace(c.Backend))
	if b != "" {
		return b
	}
	if c.MongoURI != "" {
		return BackendMongo
	}
	return BackendMemory
}

// OpenStore opens the configured backend.
func OpenStore(ctx context.Context, cfg StoreConfig) (Store, error) {
	switch backend := cfg.ResolvedBackend(); backend {
	case BackendMongo:
		if cfg.MongoURI == "" {
			return nil, fmt.Errorf("store backend %q requires MONGO_URI", backend)
		}
		return NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection)
	case BackendRedis:
		return NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	case BackendSQLite:
		return OpenSQLiteStore(ctx, cfg.SQLitePath)
	case BackendMemory:
		return NewInMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", backend)
	}
}
