// Package redis implements the key-value backend on Redis.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cura/internal/domain"

	goredis "github.com/redis/go-redis/v9"
)

// Client implements domain.Backend with one Redis string per key.
type Client struct {
	rdb    *goredis.Client
	prefix string
}

var _ domain.Backend = (*Client)(nil)

// Open parses url (falling back to a bare host:port address), pings the
// server and returns a backend namespacing keys under prefix.
func Open(ctx context.Context, url, prefix string) (*Client, error) {
	opt, err := goredis.ParseURL(url)
	if err != nil {
		opt = &goredis.Options{Addr: url}
	}
	rdb := goredis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Client{rdb: rdb, prefix: prefix}, nil
}

// Close closes the underlying connection pool.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Load returns the record stored under key.
func (c *Client) Load(ctx context.Context, key string) ([]byte, error) {
	v, err := c.rdb.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, domain.ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	return v, nil
}

// Save replaces the record stored under key. Records never expire.
func (c *Client) Save(ctx context.Context, key string, value []byte) error {
	if err := c.rdb.Set(ctx, c.prefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}
