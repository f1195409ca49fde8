package catalog

import (
	"errors"
	"fmt"
	"time"

	"dewey/internal/errkind"
	"dewey/internal/ridset"
)

// SnapshotEntry is one persisted path -> (rid, modtime) association.
type SnapshotEntry struct {
	Path    string
	Rid     int32
	ModTime time.Time
}

// Snapshot is everything about a Catalog that internal/store actually
// persists. resources and every installed index's learned state are
// deliberately NOT part of it: they are rebuilt by replaying each entry's
// path through the ResourceFactory and re-Learn-ing every index at load
// time (Restore). This trades a slower cold start for never needing to
// serialize arbitrary, pluggable Resource and Index implementations;
// only plain data crosses the persistence boundary.
type Snapshot struct {
	Root    string
	Entries []SnapshotEntry
}

// Snapshot captures the catalog's persistent state for a checkpoint.
func (c *Catalog) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap := Snapshot{
		Root:    c.root,
		Entries: make([]SnapshotEntry, 0, len(c.ridtimes)),
	}
	for path, rt := range c.ridtimes {
		snap.Entries = append(snap.Entries, SnapshotEntry{Path: path, Rid: rt.rid, ModTime: rt.modTime})
	}
	return snap
}

// Restore replaces the catalog's state with a previously captured
// snapshot, rebuilding resources and every installed index by re-running
// the ResourceFactory and Learn over each entry. Paths that no longer
// exist on disk are dropped with a logged warning; the next CrawlOnce
// would have unindexed them anyway.
func (c *Catalog) Restore(snap Snapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, name := range c.indexOrder {
		c.indices[name].Reset()
	}
	c.ridtimes = make(map[string]ridTime, len(snap.Entries))
	c.resources = make(map[int32]Resource, len(snap.Entries))
	c.rids = ridset.New()

	for _, entry := range snap.Entries {
		res, err := c.factory(entry.Path)
		if err != nil {
			c.logger.Warn("dropping snapshot entry: resource factory failed", "path", entry.Path, "error", err)
			continue
		}
		if err := c.learnAll(entry.Rid, res); err != nil {
			if !errors.Is(err, errkind.ErrBadValue) {
				return fmt.Errorf("restoring rid %d at %q: %w", entry.Rid, entry.Path, err)
			}
			c.logger.Warn("dropping snapshot entry: learn rejected value", "path", entry.Path, "error", err)
			continue
		}
		c.ridtimes[entry.Path] = ridTime{rid: entry.Rid, modTime: entry.ModTime}
		c.resources[entry.Rid] = res
		c.rids.Add(uint32(entry.Rid))
	}
	return nil
}
