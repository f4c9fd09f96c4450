// Package redis implements a coldcache Slot stored under a single redis key.
// Useful when the client already runs a local redis (or wants its snapshot
// to follow it across machines). SET/GET are atomic per key, so readers
// never see a torn snapshot.
package redis

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	pr "github.com/unkn0wn-root/coldcache/provider"
)

var ErrNilClient = errors.New("redis slot: nil client")

type Slot struct {
	rdb         goredis.UniversalClient
	key         string
	ttl         time.Duration
	closeClient bool
}

var _ pr.Slot = (*Slot)(nil)

type Config struct {
	Client goredis.UniversalClient
	// Key is the redis key holding the snapshot, e.g. "coldcache:threads".
	Key string
	// TTL expires abandoned snapshots. 0 means no expiry.
	TTL time.Duration
	// CloseClient: set true only if this slot exclusively owns the client.
	CloseClient bool
}

func New(cfg Config) (*Slot, error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	if cfg.Key == "" {
		return nil, errors.New("redis slot: key is required")
	}
	return &Slot{
		rdb:         cfg.Client,
		key:         cfg.Key,
		ttl:         cfg.TTL,
		closeClient: cfg.CloseClient,
	}, nil
}

func (s *Slot) Load(ctx context.Context) ([]byte, bool, error) {
	b, err := s.rdb.Get(ctx, s.key).Bytes()
	if err == goredis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (s *Slot) Save(ctx context.Context, snapshot []byte) error {
	return s.rdb.Set(ctx, s.key, snapshot, s.ttl).Err()
}

func (s *Slot) Wipe(ctx context.Context) error {
	return s.rdb.Del(ctx, s.key).Err()
}

func (s *Slot) Close(_ context.Context) error {
	if s.closeClient {
		return s.rdb.Close()
	}
	return nil
}
