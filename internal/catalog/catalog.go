// Package catalog owns resource-id allocation, path-to-resource bookkeeping,
// the installed index family, and the crawl loop that keeps them in sync
// with a filesystem subtree.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"dewey/internal/errkind"
	"dewey/internal/index"
	"dewey/internal/ridset"
)

// Checkpointer commits or aborts the ambient transaction the crawler is
// running under. A Catalog with no Checkpointer runs purely in memory
// (useful for tests); production wiring supplies one backed by a
// internal/store Connection.
type Checkpointer interface {
	Commit() error
	Abort() error
}

type ridTime struct {
	rid     int32
	modTime time.Time
}

// Catalog is the persistent root object: it owns rid allocation,
// path<->(rid, modtime), rid->Resource, the live rid-set, and the
// installed indices, and runs the background crawler that keeps all of it
// in sync with the filesystem.
type Catalog struct {
	mu sync.RWMutex

	root    string
	factory ResourceFactory

	indices    map[string]index.Index
	indexOrder []string

	ridtimes  map[string]ridTime
	resources map[int32]Resource
	rids      *ridset.Set

	ignore IgnoreFunc
	store  Checkpointer

	checkpointEvery int
	crawlInterval   time.Duration
	logger          *slog.Logger

	crawling atomic.Bool
	stop     chan struct{}
	stopped  chan struct{}
}

// New constructs a Catalog rooted at root, with factory building a Resource
// for every path encountered. root's trailing separator is stripped.
func New(root string, factory ResourceFactory) *Catalog {
	return &Catalog{
		root:            strings.TrimRight(root, "/"),
		factory:         factory,
		indices:         make(map[string]index.Index),
		ridtimes:        make(map[string]ridTime),
		resources:       make(map[int32]Resource),
		rids:            ridset.New(),
		ignore:          buildIgnore(strings.TrimRight(root, "/"), nil),
		checkpointEvery: 20,
		crawlInterval:   100 * time.Millisecond,
		logger:          slog.Default(),
	}
}

// Root returns the catalog's configured root path.
func (c *Catalog) Root() string { return c.root }

// AddIndex installs idx under name. Install every index before the first
// crawl; indices added after resources already exist will not retroactively
// learn them.
func (c *Catalog) AddIndex(name string, idx index.Index) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.indices[name]; !exists {
		c.indexOrder = append(c.indexOrder, name)
	}
	c.indices[name] = idx
}

// GetIndex looks up an installed index by name.
func (c *Catalog) GetIndex(name string) (index.Index, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	idx, ok := c.indices[name]
	return idx, ok
}

// IndexNames lists installed indices in insertion order.
func (c *Catalog) IndexNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, len(c.indexOrder))
	copy(out, c.indexOrder)
	return out
}

// Rids returns a snapshot of every live rid, the universe set used by
// Collection's OR-without-term seed and NOT complement.
func (c *Catalog) Rids() *ridset.Set {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.rids.Clone()
}

// Lookup returns the rid and last-recorded modification time for a
// cataloged path.
func (c *Catalog) Lookup(path string) (rid int32, modTime time.Time, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rt, ok := c.ridtimes[path]
	return rt.rid, rt.modTime, ok
}

// Resource looks up the resource record for rid.
func (c *Catalog) Resource(rid int32) (Resource, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.resources[rid]
	return r, ok
}

// SetIgnore overrides the default dot/underscore-component ignore policy.
func (c *Catalog) SetIgnore(fn IgnoreFunc) { c.ignore = fn }

// SetIgnoreExtra layers gitignore-style patterns on top of the default
// policy (DEWEY_IGNORE_EXTRA).
func (c *Catalog) SetIgnoreExtra(patterns []string) {
	c.ignore = buildIgnore(c.root, patterns)
}

// Ignore reports whether path should be hidden from the catalog.
func (c *Catalog) Ignore(path string) bool { return c.ignore(path) }

// SetCheckpointer wires the transaction the crawler commits/aborts against.
func (c *Catalog) SetCheckpointer(cp Checkpointer) { c.store = cp }

// SetCheckpointEvery overrides the default 20-entries-per-commit cadence.
func (c *Catalog) SetCheckpointEvery(n int) {
	if n > 0 {
		c.checkpointEvery = n
	}
}

// SetCrawlInterval overrides the default ~100ms inter-pass sleep.
func (c *Catalog) SetCrawlInterval(d time.Duration) {
	if d > 0 {
		c.crawlInterval = d
	}
}

// SetLogger overrides the default slog logger.
func (c *Catalog) SetLogger(l *slog.Logger) {
	if l != nil {
		c.logger = l
	}
}

// Reset drops every learned association: every installed index is reset
// and ridtimes/resources/rids are emptied. Callers running against a
// transactional store should commit immediately after.
func (c *Catalog) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, name := range c.indexOrder {
		c.indices[name].Reset()
	}
	c.ridtimes = make(map[string]ridTime)
	c.resources = make(map[int32]Resource)
	c.rids = ridset.New()
}

// CrawlOnce performs one add/update pass followed by one unindex pass.
// On any error the in-flight checkpoint transaction is aborted; the
// caller should retry on its next loop iteration.
func (c *Catalog) CrawlOnce(ctx context.Context) error {
	if err := c.addUpdatePass(ctx); err != nil {
		c.abort()
		return err
	}
	if err := c.unindexPass(ctx); err != nil {
		c.abort()
		return err
	}
	return nil
}

func (c *Catalog) abort() {
	if c.store == nil {
		return
	}
	if err := c.store.Abort(); err != nil {
		c.logger.Error("abort failed", "error", err)
	}
}

func (c *Catalog) commit() error {
	if c.store == nil {
		return nil
	}
	return c.store.Commit()
}

// addUpdatePass walks the subtree rooted at c.root. For each unignored
// path: if unseen, it is indexed fresh; if seen and its mtime changed, it
// is re-indexed under the same rid; otherwise it is left alone. A
// checkpoint commits every checkpointEvery processed entries.
func (c *Catalog) addUpdatePass(ctx context.Context) error {
	processed := 0
	err := filepath.WalkDir(c.root, func(path string, d fs.DirEntry, walkErr error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if walkErr != nil {
			c.logger.Error("stat failed during crawl", "path", path, "error", walkErr)
			return nil
		}

		if c.ignore(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if err := c.addOrUpdate(path); err != nil {
			if errors.Is(err, errkind.ErrBadValue) {
				return err
			}
			c.logger.Error("failed to index path", "path", path, "error", err)
			return nil
		}

		processed++
		if processed%c.checkpointEvery == 0 {
			if err := c.commit(); err != nil {
				return err
			}
		}
		return nil
	})
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return err
}

func (c *Catalog) addOrUpdate(path string) error {
	info, err := os.Lstat(path)
	if err != nil {
		return fmt.Errorf("%w: %v", errkind.ErrIOError, err)
	}
	mtime := info.ModTime()

	c.mu.Lock()
	defer c.mu.Unlock()

	if rt, exists := c.ridtimes[path]; exists {
		if mtime.Equal(rt.modTime) {
			return nil
		}
		res, err := c.factory(path)
		if err != nil {
			return fmt.Errorf("%w: %v", errkind.ErrIOError, err)
		}
		if err := c.learnAll(rt.rid, res); err != nil {
			return err
		}
		c.resources[rt.rid] = res
		c.ridtimes[path] = ridTime{rid: rt.rid, modTime: mtime}
		return nil
	}

	rid := allocateRid(c.rids)
	res, err := c.factory(path)
	if err != nil {
		return fmt.Errorf("%w: %v", errkind.ErrIOError, err)
	}
	if err := c.learnAll(rid, res); err != nil {
		return err
	}
	c.ridtimes[path] = ridTime{rid: rid, modTime: mtime}
	c.resources[rid] = res
	c.rids.Add(uint32(rid))
	return nil
}

// learnAll reads, for every installed index, the resource attribute of
// the same name and teaches it to that index. A missing attribute is
// logged and that index is skipped for this rid.
func (c *Catalog) learnAll(rid int32, res Resource) error {
	for _, name := range c.indexOrder {
		val, ok := res.Attr(name)
		if !ok {
			c.logger.Warn("resource has no corresponding attribute", "index", name, "rid", rid)
			continue
		}
		if err := c.indices[name].Learn(rid, val); err != nil {
			return err
		}
	}
	return nil
}

// unindexPass removes every catalog entry whose path no longer exists on
// disk, in a single pass committed once at the end. The commit runs with
// the catalog lock released, since the checkpointer re-enters the catalog
// to snapshot it.
func (c *Catalog) unindexPass(ctx context.Context) error {
	if err := c.removeMissing(ctx); err != nil {
		return err
	}

	// A single commit closes out the whole crawl: the removals above plus
	// whatever remainder of the add/update pass fell short of the
	// checkpoint cadence.
	return c.commit()
}

func (c *Catalog) removeMissing(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var gone []string
	for path := range c.ridtimes {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if _, err := os.Lstat(path); errors.Is(err, fs.ErrNotExist) {
			gone = append(gone, path)
		}
	}

	for _, path := range gone {
		rt := c.ridtimes[path]
		for _, name := range c.indexOrder {
			if err := c.indices[name].Forget(rt.rid); err != nil && !errors.Is(err, errkind.ErrUnknownRid) {
				return err
			}
		}
		delete(c.resources, rt.rid)
		c.rids.Remove(uint32(rt.rid))
		delete(c.ridtimes, path)
	}
	return nil
}
