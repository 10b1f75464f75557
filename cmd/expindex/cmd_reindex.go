package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/placementarchive/expindex/internal/config"
	"github.com/placementarchive/expindex/internal/retrieval"
)

// handleReindex implements the reindex subcommand
func handleReindex(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("reindex", flag.ExitOnError)
	quiet := fs.Bool("quiet", false, "Disable the progress bar")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `USAGE:
    expindex reindex [options]

DESCRIPTION:
    Rebuild the vector index from every approved experience in the
    database. The previous index stays in service until the rebuild
    completes; records that fail to embed are skipped and reported.

OPTIONS:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		log.Fatalf("Failed to parse arguments: %v", err)
	}

	d, err := openDeps(cfg, true)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer d.close()

	progress := retrieval.NewReindexProgress(!*quiet && retrieval.DefaultProgressEnabled())

	stats, err := d.engine.ReindexAll(context.Background(), progress)
	if err != nil {
		log.Fatalf("Reindex failed: %v", err)
	}

	fmt.Println("✅ Reindex completed")
	fmt.Printf("\n⏱️  Duration: %v\n", stats.Elapsed.Round(10*time.Millisecond))
	fmt.Println("\n📊 Statistics:")
	fmt.Printf("   Records:  %6d\n", stats.Records)
	fmt.Printf("   Indexed:  %6d\n", stats.Indexed)
	fmt.Printf("   Skipped:  %6d\n", stats.Failed)
	fmt.Printf("   Chunks:   %6d\n", stats.Chunks)
}
