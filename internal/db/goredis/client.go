// Package goredis implements db.Store on go-redis/v9.
package goredis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kailas-cloud/solrfacet/internal/db"
)

var _ db.Store = (*Store)(nil)

// Config holds connection parameters. URL, when set, takes precedence.
type Config struct {
	URL      string
	Addr     string
	Username string
	Password string
	DB       int
	PoolSize int
}

// commander is the part of *redis.Client the store uses.
type commander interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	Ping(ctx context.Context) *redis.StatusCmd
	Close() error
}

// Store implements db.Store via go-redis.
type Store struct {
	rdb commander
}

// NewStore creates a go-redis backed store. It does not dial; use
// WaitForReady to verify the connection.
func NewStore(cfg Config) (*Store, error) {
	var opt *redis.Options
	switch {
	case cfg.URL != "":
		var err error
		if opt, err = redis.ParseURL(cfg.URL); err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
	case cfg.Addr != "":
		opt = &redis.Options{
			Addr:     cfg.Addr,
			Username: cfg.Username,
			Password: cfg.Password,
			DB:       cfg.DB,
			PoolSize: cfg.PoolSize,
		}
	default:
		return nil, fmt.Errorf("addr or url is required")
	}
	return &Store{rdb: redis.NewClient(opt)}, nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		return &db.Error{Op: db.OpPing, Err: err}
	}
	return nil
}

// Close closes the connection pool.
func (s *Store) Close() {
	_ = s.rdb.Close()
}

// WaitForReady polls Ping until the store responds or timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	return db.WaitForReady(ctx, s, timeout)
}

// Get retrieves a value by key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, db.ErrKeyNotFound
		}
		return nil, &db.Error{Op: db.OpGet, Err: err}
	}
	return data, nil
}

// SetWithTTL stores a value with an expiration.
func (s *Store) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		return &db.Error{Op: db.OpSet, Err: err}
	}
	return nil
}

// Del removes a key. Returns db.ErrKeyNotFound when nothing was deleted.
func (s *Store) Del(ctx context.Context, key string) error {
	n, err := s.rdb.Del(ctx, key).Result()
	if err != nil {
		return &db.Error{Op: db.OpDel, Err: err}
	}
	if n == 0 {
		return db.ErrKeyNotFound
	}
	return nil
}

// Expire resets the TTL of an existing key.
func (s *Store) Expire(ctx context.Context, key string, ttl time.Duration) error {
	ok, err := s.rdb.Expire(ctx, key, ttl).Result()
	if err != nil {
		return &db.Error{Op: db.OpExpire, Err: err}
	}
	if !ok {
		return db.ErrKeyNotFound
	}
	return nil
}
