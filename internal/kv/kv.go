// Package kv provides the small key-value slot storage Clarity persists its
// settings and history in. Each key holds one opaque JSON document that is
// read and replaced whole.
package kv

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Store is a durable slot store. Get reports ok=false for a missing key.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Options selects and configures a backend.
type Options struct {
	Backend string
	// Dir is the FileStore directory.
	Dir         string
	StrictPerms bool
	// SQLitePath is the database file for the sqlite backend.
	SQLitePath string
	// Redis connection settings.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
	DialTimeout   time.Duration
}

// Open builds the configured backend. An empty backend means file.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Backend)) {
	case "", BackendFile:
		return NewFileStore(opts.Dir, opts.StrictPerms)
	case BackendSQLite:
		return NewSQLiteStore(ctx, opts.SQLitePath)
	case BackendRedis:
		return NewRedisStore(ctx, opts.RedisAddr, opts.RedisPassword, opts.RedisDB, opts.RedisPrefix, opts.DialTimeout)
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", opts.Backend)
	}
}

// ValidBackend reports whether name is accepted by Open.
func ValidBackend(name string) bool {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", BackendFile, BackendSQLite, BackendRedis, BackendMemory:
		return true
	}
	return false
}
