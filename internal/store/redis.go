package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"dewey/internal/catalog"
	"dewey/internal/errkind"
)

const (
	redisDataKey = "dewey:catalog"
	redisLockKey = "dewey:lock"
	lockLease    = 30 * time.Second
)

// redisDB is the client-server multi-process storage backend: host:port
// addresses a network Redis instance, a leading "/" addresses a local
// Unix socket. A single advisory lock key, held with a SETNX-style
// claim and a uuid owner token, substitutes for the file:// backend's
// lock file: the same "another process has this open" signal, enforced
// by a shared server instead of the filesystem.
type redisDB struct {
	client *redis.Client
	owner  string
}

// OpenRedis connects to a Redis-backed store and claims the advisory
// process lock.
func OpenRedis(ctx context.Context, address string) (Database, error) {
	addr := strings.TrimPrefix(address, "redis://")

	opts := &redis.Options{Network: "tcp", Addr: addr}
	if strings.HasPrefix(addr, "/") {
		opts = &redis.Options{Network: "unix", Addr: addr}
	}
	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis at %q: %w", addr, err)
	}

	owner := uuid.NewString()
	ok, err := client.SetNX(ctx, redisLockKey, owner, lockLease).Result()
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("claiming advisory lock: %w", err)
	}
	if !ok {
		client.Close()
		return nil, fmt.Errorf("%w: %s", errkind.ErrLocked, redisLockKey)
	}

	return &redisDB{client: client, owner: owner}, nil
}

func (d *redisDB) Open(ctx context.Context) (Connection, error) {
	return &redisConn{client: d.client, owner: d.owner}, nil
}

// releaseLock is the standard compare-and-delete pattern for an advisory
// lock: only delete the key if it still holds our own owner token, so we
// never clobber a lock some other process has since claimed after ours
// expired.
const releaseLockScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end
`

func (d *redisDB) Close() error {
	ctx := context.Background()
	d.client.Eval(ctx, releaseLockScript, []string{redisLockKey}, d.owner)
	return d.client.Close()
}

// redisConn is a Connection onto a redisDB. Store merely stages the
// snapshot; the write happens inside Commit's WATCH/MULTI/EXEC. Nothing is
// read between WATCH and EXEC, so only a write landing in that short
// window aborts the commit; any earlier write by another client is
// overwritten.
type redisConn struct {
	client  *redis.Client
	owner   string
	pending *catalog.Snapshot
}

func (c *redisConn) Load(ctx context.Context) (catalog.Snapshot, bool, error) {
	blob, err := c.client.Get(ctx, redisDataKey).Bytes()
	if err == redis.Nil {
		return catalog.Snapshot{}, false, nil
	}
	if err != nil {
		return catalog.Snapshot{}, false, fmt.Errorf("loading catalog snapshot: %w", err)
	}
	snap, err := decodeSnapshot(blob)
	if err != nil {
		return catalog.Snapshot{}, false, err
	}
	return snap, true, nil
}

func (c *redisConn) Store(ctx context.Context, snap catalog.Snapshot) error {
	c.pending = &snap
	return nil
}

func (c *redisConn) Commit() error {
	ctx := context.Background()
	if c.pending == nil {
		return nil
	}
	blob, err := encodeSnapshot(*c.pending)
	if err != nil {
		return err
	}

	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, redisDataKey, blob, 0)
			return nil
		})
		return err
	}, redisDataKey)
	if err != nil {
		return fmt.Errorf("committing catalog snapshot: %w", err)
	}
	c.pending = nil
	return nil
}

func (c *redisConn) Abort() error {
	c.pending = nil
	return nil
}

func (c *redisConn) Close() error {
	c.pending = nil
	return nil
}
