// Package store implements the transactional persistence contract a
// Catalog is checkpointed against: open an address to get a Database,
// open the Database to get a per-thread Connection, and load/store the
// root mapping under ambient commit/abort. Two concrete backends are
// provided: a file:// single-process backend (sqlite.go) and a
// client-server multi-process backend (redis.go).
package store

import (
	"context"
	"fmt"
	"strings"

	"dewey/internal/catalog"
	"dewey/internal/errkind"
)

// RootMapping persists a single logical entry: the catalog snapshot keyed
// by "catalog". If absent at Open, the caller's factory builds one and the
// result is committed.
type RootMapping interface {
	// Load returns the persisted snapshot, or ok=false if none exists yet.
	Load(ctx context.Context) (snap catalog.Snapshot, ok bool, err error)

	// Store stages snap to be written on the next Commit.
	Store(ctx context.Context, snap catalog.Snapshot) error
}

// Connection is a single-threaded handle onto the store: exactly the
// ambient ctx/commit/abort binding a crawler or query thread needs,
// implementing catalog.Checkpointer directly.
type Connection interface {
	RootMapping

	Commit() error
	Abort() error
	Close() error
}

// Database opens per-thread Connections onto one underlying store.
type Database interface {
	Open(ctx context.Context) (Connection, error)
	Close() error
}

// Open parses a storage address and opens the corresponding Database.
// Addresses are scheme-prefixed URLs: "file://<path>" for the local
// single-process backend, "redis://host:port" (or "redis:///abs/socket"
// for a Unix socket) for the multi-process backend. Any address with no
// scheme, a bare "host:port" included, is treated as a file:// path.
func Open(ctx context.Context, address string) (Database, error) {
	switch {
	case strings.HasPrefix(address, "file://"):
		return OpenSQLite(strings.TrimPrefix(address, "file://"))
	case strings.HasPrefix(address, "redis://"):
		return OpenRedis(ctx, address)
	case strings.Contains(address, "://"):
		return nil, fmt.Errorf("%w: unsupported scheme in address %q", errkind.ErrBadQuery, address)
	default:
		return OpenSQLite(address)
	}
}
