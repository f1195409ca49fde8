// Package config loads dewey's environment-driven configuration: which
// subtree to catalog, where to persist it, the crawl cadence, and the
// default index set.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// StoreConfig holds the storage backend address and crawl cadence a
// dewey.Dewey is opened with.
type StoreConfig struct {
	// Root is the filesystem subtree to catalog.
	Root string

	// Address is the storage backend address: "file://<path>",
	// "redis://host:port" (or a Unix-socket path), or a bare path/host:port
	// (file:// is assumed when no scheme is present).
	Address string

	CheckpointEvery int
	CrawlInterval   time.Duration
	IgnoreExtra     []string
	CreateIfMissing bool
}

// LoadStoreConfigFromEnv loads store configuration from environment
// variables:
//   - DEWEY_ROOT: the subtree to catalog
//   - DEWEY_DB_URL: storage address (default "file://./dewey.db")
//   - DEWEY_CHECKPOINT_EVERY: entries per checkpoint commit (default 20)
//   - DEWEY_CRAWL_INTERVAL_MS: milliseconds between crawl passes (default 100)
//   - DEWEY_IGNORE_EXTRA: comma-separated gitignore-style patterns
//   - DEWEY_CREATE_IF_MISSING: "true" to bootstrap a catalog if the store has none
func LoadStoreConfigFromEnv() StoreConfig {
	cfg := StoreConfig{
		Root:            os.Getenv("DEWEY_ROOT"),
		Address:         "file://./dewey.db",
		CheckpointEvery: 20,
		CrawlInterval:   100 * time.Millisecond,
	}

	if addr := os.Getenv("DEWEY_DB_URL"); addr != "" {
		cfg.Address = addr
	}

	if n := os.Getenv("DEWEY_CHECKPOINT_EVERY"); n != "" {
		if v, err := strconv.Atoi(n); err == nil && v > 0 {
			cfg.CheckpointEvery = v
		} else {
			fmt.Fprintf(os.Stderr, "warning: ignoring invalid DEWEY_CHECKPOINT_EVERY=%q\n", n)
		}
	}

	if ms := os.Getenv("DEWEY_CRAWL_INTERVAL_MS"); ms != "" {
		if v, err := strconv.Atoi(ms); err == nil && v > 0 {
			cfg.CrawlInterval = time.Duration(v) * time.Millisecond
		} else {
			fmt.Fprintf(os.Stderr, "warning: ignoring invalid DEWEY_CRAWL_INTERVAL_MS=%q\n", ms)
		}
	}

	if extra := os.Getenv("DEWEY_IGNORE_EXTRA"); extra != "" {
		for _, pattern := range strings.Split(extra, ",") {
			pattern = strings.TrimSpace(pattern)
			if pattern != "" {
				cfg.IgnoreExtra = append(cfg.IgnoreExtra, pattern)
			}
		}
	}

	if b := os.Getenv("DEWEY_CREATE_IF_MISSING"); b != "" {
		if v, err := strconv.ParseBool(b); err == nil {
			cfg.CreateIfMissing = v
		} else {
			fmt.Fprintf(os.Stderr, "warning: ignoring invalid DEWEY_CREATE_IF_MISSING=%q\n", b)
		}
	}

	return cfg
}

// String returns a human-readable description of the store configuration.
func (c StoreConfig) String() string {
	return fmt.Sprintf("root=%s address=%s checkpoint-every=%d crawl-interval=%s",
		c.Root, c.Address, c.CheckpointEvery, c.CrawlInterval)
}
