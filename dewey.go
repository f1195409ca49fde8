// Package dewey is a catalog for the filesystem.
//
// Dewey is designed so that you never actually index or unindex files
// yourself. Instead, the catalog is constantly updating: change the
// modtime of a file and Dewey re-indexes it, remove a file and Dewey
// unindexes it.
//
// Not designed to track an entire filesystem, just a configured subtree.
package dewey

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"dewey/internal/catalog"
	"dewey/internal/errkind"
	"dewey/internal/index"
	"dewey/internal/store"
)

// Options configures Open. Root is only consulted when no catalog has been
// persisted yet; a restored catalog keeps the root it was persisted with.
// The index set and ResourceFactory are applied on every Open: learned
// index state is not persisted, so a restored catalog re-learns each
// persisted path into the indices given here.
type Options struct {
	// Root is the filesystem subtree to catalog.
	Root string

	// ResourceFactory builds a Resource from a path. Defaults to
	// catalog.NewFileResource.
	ResourceFactory catalog.ResourceFactory

	// Indices are installed on the catalog on every Open, keyed by the
	// attribute name each learns from a Resource.
	Indices map[string]index.Index

	// IgnoreExtra supplies additional gitignore-style patterns layered on
	// top of the default dot/underscore-component policy.
	IgnoreExtra []string

	CheckpointEvery int
	CrawlInterval   time.Duration
	Logger          *slog.Logger

	// CreateIfMissing permits Open to bootstrap a new catalog when the
	// store has none yet. If false and the store is empty, Open fails
	// with errkind.ErrMissingCatalog.
	CreateIfMissing bool
}

// Dewey is the explicit, per-process context object: it owns the storage
// Database, one Connection, and the Catalog built or restored from it.
// The CLI binds one of these at startup and threads it through every
// catalog- and collection-facing operation.
type Dewey struct {
	database store.Database
	conn     store.Connection
	cat      *catalog.Catalog

	ctx    context.Context
	cancel context.CancelFunc
}

// Open connects to the storage backend named by address (see
// internal/store.Open for the addressing scheme), restores a previously
// persisted catalog if one exists, or bootstraps a fresh one per opts.
func Open(ctx context.Context, address string, opts Options) (*Dewey, error) {
	db, err := store.Open(ctx, address)
	if err != nil {
		return nil, err
	}

	conn, err := db.Open(ctx)
	if err != nil {
		db.Close()
		return nil, err
	}

	cat, err := bootstrapOrRestore(ctx, conn, opts)
	if err != nil {
		conn.Close()
		db.Close()
		return nil, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	d := &Dewey{database: db, conn: conn, cat: cat, ctx: runCtx, cancel: cancel}
	cat.SetCheckpointer(&checkpointer{ctx: ctx, conn: conn, cat: cat})
	return d, nil
}

func bootstrapOrRestore(ctx context.Context, conn store.Connection, opts Options) (*catalog.Catalog, error) {
	snap, ok, err := conn.Load(ctx)
	if err != nil {
		return nil, err
	}

	factory := opts.ResourceFactory
	if factory == nil {
		factory = catalog.NewFileResource
	}

	if !ok && !opts.CreateIfMissing {
		return nil, errkind.ErrMissingCatalog
	}

	root := opts.Root
	if ok {
		root = snap.Root
	}
	cat := catalog.New(root, factory)
	for name, idx := range opts.Indices {
		cat.AddIndex(name, idx)
	}
	if len(opts.IgnoreExtra) > 0 {
		cat.SetIgnoreExtra(opts.IgnoreExtra)
	}
	if opts.CheckpointEvery > 0 {
		cat.SetCheckpointEvery(opts.CheckpointEvery)
	}
	if opts.CrawlInterval > 0 {
		cat.SetCrawlInterval(opts.CrawlInterval)
	}
	if opts.Logger != nil {
		cat.SetLogger(opts.Logger)
	}

	if ok {
		if err := cat.Restore(snap); err != nil {
			return nil, fmt.Errorf("restoring catalog: %w", err)
		}
		return cat, nil
	}

	if err := conn.Store(ctx, cat.Snapshot()); err != nil {
		return nil, fmt.Errorf("bootstrapping catalog: %w", err)
	}
	if err := conn.Commit(); err != nil {
		return nil, fmt.Errorf("bootstrapping catalog: %w", err)
	}
	return cat, nil
}

// Catalog returns the open catalog.
func (d *Dewey) Catalog() *catalog.Catalog { return d.cat }

// StartCrawling starts the background crawler against this Dewey's
// lifetime context.
func (d *Dewey) StartCrawling() { d.cat.StartCrawling(d.ctx) }

// StopCrawling stops the background crawler, blocking until it exits.
func (d *Dewey) StopCrawling() { d.cat.StopCrawling() }

// Close stops the crawler and releases the storage connection and
// database handle.
func (d *Dewey) Close() error {
	d.cancel()
	d.cat.StopCrawling()

	var errs []error
	if err := d.conn.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := d.database.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// checkpointer adapts a store.Connection and a *catalog.Catalog into the
// catalog.Checkpointer the crawler commits/aborts against: Commit first
// stages the catalog's current snapshot, then commits the underlying
// transaction.
type checkpointer struct {
	ctx  context.Context
	conn store.Connection
	cat  *catalog.Catalog
}

func (c *checkpointer) Commit() error {
	if err := c.conn.Store(c.ctx, c.cat.Snapshot()); err != nil {
		return err
	}
	return c.conn.Commit()
}

func (c *checkpointer) Abort() error {
	return c.conn.Abort()
}
