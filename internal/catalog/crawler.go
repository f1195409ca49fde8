package catalog

import (
	"context"
	"time"

	"github.com/fsnotify/fsnotify"
)

// StartCrawling launches the background crawl loop, if it isn't already
// running. The loop is cooperative: StopCrawling signals it and waits for
// the in-flight CrawlOnce to finish. ctx additionally bounds every
// individual crawl pass.
func (c *Catalog) StartCrawling(ctx context.Context) {
	if c.crawling.Swap(true) {
		return
	}
	c.stop = make(chan struct{})
	c.stopped = make(chan struct{})
	go c.crawlLoop(ctx)
}

// StopCrawling signals the crawl loop to stop and blocks until it has
// exited. A no-op if the crawler isn't running.
func (c *Catalog) StopCrawling() {
	if !c.crawling.Load() {
		return
	}
	close(c.stop)
	<-c.stopped
	c.crawling.Store(false)
}

func (c *Catalog) crawlLoop(ctx context.Context) {
	defer close(c.stopped)

	wake, closeWatcher := c.startAccelerator()
	if closeWatcher != nil {
		defer closeWatcher()
	}

	for {
		select {
		case <-c.stop:
			return
		case <-ctx.Done():
			return
		default:
		}

		if err := c.CrawlOnce(ctx); err != nil {
			c.logger.Error("crawl pass failed", "error", err)
		}

		select {
		case <-c.stop:
			return
		case <-ctx.Done():
			return
		case <-wake:
		case <-time.After(c.crawlInterval):
		}
	}
}

// startAccelerator optionally wires an fsnotify watcher on the catalog
// root so the crawler can wake early instead of waiting out the full
// poll interval. It is strictly an optimization: polling stays
// authoritative, and a watcher failure just means polling-only operation.
func (c *Catalog) startAccelerator() (<-chan struct{}, func()) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		c.logger.Warn("fsnotify unavailable, crawling on poll interval only", "error", err)
		return nil, nil
	}
	if err := w.Add(c.root); err != nil {
		c.logger.Warn("fsnotify watch failed, crawling on poll interval only", "root", c.root, "error", err)
		w.Close()
		return nil, nil
	}

	wake := make(chan struct{}, 1)
	go func() {
		for {
			select {
			case _, ok := <-w.Events:
				if !ok {
					return
				}
				select {
				case wake <- struct{}{}:
				default:
				}
			case _, ok := <-w.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	return wake, func() { w.Close() }
}
