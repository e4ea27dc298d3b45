package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/driftfs/driftfs/internal/logger"
	"github.com/driftfs/driftfs/pkg/config"
	"github.com/driftfs/driftfs/pkg/namespace"
	"github.com/driftfs/driftfs/pkg/namespace/client"
	"github.com/driftfs/driftfs/pkg/transport/memory"
)

// seedNamespace stands up a small tree on the in-process metadata service
// so the walkthrough has something to resolve and list.
func seedNamespace(srv *memory.Server) error {
	files := []struct {
		path string
		size uint64
	}{
		{"docs/readme.md", 512},
		{"docs/design.md", 2048},
		{"src/main.go", 1024},
		{"src/lib/util.go", 768},
	}
	for _, f := range files {
		if _, err := srv.CreateFile(f.path, f.size); err != nil {
			return fmt.Errorf("failed to seed %s: %w", f.path, err)
		}
	}
	// Fragment the docs directory so the listing walks fragments.
	if err := srv.SplitDir("docs", 1); err != nil {
		return fmt.Errorf("failed to split docs: %w", err)
	}
	return nil
}

func listDirectory(ctx context.Context, h *client.ListingHandle, label string) error {
	fmt.Printf("%s:\n", label)
	return h.ReadDir(ctx, func(e namespace.DirEntry, _ namespace.Cursor) bool {
		fmt.Printf("  %-12s %-10s object=%d\n", e.Name, e.Type, e.ID)
		return true
	})
}

func main() {
	configPath := flag.String("config", "", "Path to config file (default: "+config.GetDefaultConfigPath()+")")
	logLevel := flag.String("log-level", "", "Override the configured log level")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	logger.SetLevel(cfg.Logging.Level)
	if err := logger.SetOutput(cfg.Logging.Output); err != nil {
		log.Fatalf("Failed to set log output: %v", err)
	}

	fmt.Println("DriftFS - distributed filesystem namespace client")

	ctx := context.Background()

	attrs, err := config.CreateMetaCache(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to create attribute cache: %v", err)
	}

	srv := memory.New(memory.Config{})
	if err := seedNamespace(srv); err != nil {
		log.Fatalf("Failed to seed namespace: %v", err)
	}

	c := client.New(srv, client.Options{
		NameMax:           cfg.Mount.NameMax,
		PathRetryLimit:    cfg.Mount.PathRetryLimit,
		RequestsPerSecond: cfg.Mount.RequestsPerSecond,
		Burst:             cfg.Mount.Burst,
		AttrCache:         attrs,
	})
	if err := c.Mount(ctx); err != nil {
		log.Fatalf("Failed to mount: %v", err)
	}
	defer func() {
		if err := c.Close(); err != nil {
			logger.Error("Failed to close client: %v", err)
		}
	}()

	root, err := c.Root()
	if err != nil {
		log.Fatalf("Failed to get root: %v", err)
	}

	rootListing, err := c.OpenDir(root)
	if err != nil {
		log.Fatalf("Failed to open root: %v", err)
	}
	if err := listDirectory(ctx, rootListing, "/"); err != nil {
		log.Fatalf("Failed to list root: %v", err)
	}
	rootListing.Close()

	docs, err := c.Lookup(ctx, root, "docs")
	if err != nil {
		log.Fatalf("Failed to resolve docs: %v", err)
	}
	defer c.Release(docs)

	docsListing, err := c.OpenDir(docs)
	if err != nil {
		log.Fatalf("Failed to open docs: %v", err)
	}
	if err := listDirectory(ctx, docsListing, "/docs"); err != nil {
		log.Fatalf("Failed to list docs: %v", err)
	}
	docsListing.Close()

	fmt.Println("/docs statistics:")
	fmt.Print(client.FormatDirStat(c.Meta(docs)))

	// Exercise the mutation protocol end to end.
	notes, err := c.Mkdir(ctx, root, "notes", 0o755)
	if err != nil {
		log.Fatalf("Failed to mkdir notes: %v", err)
	}
	c.Release(notes)
	if err := c.Rename(ctx, root, "notes", root, "journal"); err != nil {
		log.Fatalf("Failed to rename notes: %v", err)
	}
	journal, err := c.Lookup(ctx, root, "journal")
	if err != nil {
		log.Fatalf("Failed to resolve journal: %v", err)
	}
	c.Release(journal)
	logger.Info("Created notes and renamed it to journal")

	stats := c.CacheStats()
	fmt.Printf("name cache: %d hits, %d misses, %d invalidations, %d live nodes\n",
		stats.Hits, stats.Misses, stats.Invalidations, stats.Nodes)

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Mount is live. Press Ctrl+C to stop.")
	<-sigChan
	logger.Info("Shutdown signal received, closing stores...")
}
