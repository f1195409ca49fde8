// Command dewey opens a catalog against a storage address, then either
// runs the crawler until interrupted or drops into an interactive shell
// for composing collections against it.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"dewey"
	"dewey/internal/config"
	"dewey/internal/logging"
)

func main() {
	fs := flag.NewFlagSet("dewey", flag.ExitOnError)
	root := fs.String("root", "", "subtree to catalog (overrides DEWEY_ROOT)")
	create := fs.Bool("create", false, "bootstrap a catalog if the store has none yet")
	fs.Usage = printUsage
	fs.Parse(os.Args[1:])

	args := fs.Args()
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Please specify a storage address")
		fmt.Fprintln(os.Stderr, "e.g. file://./dewey.db or redis://localhost:6379")
		printUsage()
		os.Exit(1)
	}

	logger := logging.Default("dewey")

	storeCfg := config.LoadStoreConfigFromEnv()
	storeCfg.Address = args[0]
	if *root != "" {
		storeCfg.Root = *root
	}
	if *create {
		storeCfg.CreateIfMissing = true
	}
	indexCfg := config.LoadIndexSetConfigFromEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d, err := dewey.Open(ctx, storeCfg.Address, dewey.Options{
		Root:            storeCfg.Root,
		Indices:         indexCfg.Default(),
		IgnoreExtra:     storeCfg.IgnoreExtra,
		CheckpointEvery: storeCfg.CheckpointEvery,
		CrawlInterval:   storeCfg.CrawlInterval,
		Logger:          logger,
		CreateIfMissing: storeCfg.CreateIfMissing,
	})
	if err != nil {
		logger.Error("opening catalog failed", "error", err, "address", storeCfg.Address)
		os.Exit(1)
	}
	defer d.Close()

	if command := args[1:]; len(command) > 0 && command[0] == "crawl" {
		runCrawl(ctx, d, logger)
		return
	}

	runShell(ctx, d)
}

// runCrawl runs the crawler until the process is interrupted.
func runCrawl(ctx context.Context, d *dewey.Dewey, logger *slog.Logger) {
	logger.Info("crawling", "root", d.Catalog().Root())
	d.StartCrawling()
	<-ctx.Done()
	d.StopCrawling()
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `dewey - filesystem catalog

Usage:
  dewey [--root path] [--create] <address>          Enter the interactive shell
  dewey [--root path] [--create] <address> crawl     Crawl continuously until interrupted

Address:
  file://<path>      single-process SQLite-backed store (default scheme for a bare path)
  redis://host:port   shared store for multiple cataloging processes

Environment:
  DEWEY_ROOT                  subtree to catalog
  DEWEY_DB_URL                not used here: <address> always sets the storage address
  DEWEY_CHECKPOINT_EVERY      entries per checkpoint commit (default 20)
  DEWEY_CRAWL_INTERVAL_MS     milliseconds between crawl passes (default 100)
  DEWEY_IGNORE_EXTRA          comma-separated gitignore-style patterns
  DEWEY_CREATE_IF_MISSING     "true" to bootstrap a catalog if the store has none
  DEWEY_CASE_SENSITIVE        "false" for case-insensitive name/ext/path indices
  DEWEY_LOG_LEVEL             debug, info, warn, error (default info)
  DEWEY_LOG_FORMAT            text, json (default text)`)
}
