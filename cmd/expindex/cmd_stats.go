package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/placementarchive/expindex/internal/config"
	"github.com/placementarchive/expindex/internal/index"
	"github.com/placementarchive/expindex/internal/store"
)

// handleStats implements the stats subcommand. It reads the persisted
// index directly instead of going through the engine, so it never
// triggers a rebuild.
func handleStats(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `USAGE:
    expindex stats

DESCRIPTION:
    Show statistics for the persisted vector index and the database.
`)
	}
	if err := fs.Parse(args); err != nil {
		log.Fatalf("Failed to parse arguments: %v", err)
	}

	fmt.Println("📊 Index:")
	idx, err := index.Load(cfg.Index.Dir, cfg.Embedding.Dimensions)
	switch {
	case err == nil:
		fmt.Printf("   Vectors:    %6d\n", idx.Size())
		fmt.Printf("   Records:    %6d\n", idx.LiveRecords())
		fmt.Printf("   Tombstones: %6d\n", idx.TombstoneCount())
		fmt.Printf("   Dimension:  %6d\n", idx.Dimension())
	case errors.Is(err, index.ErrNoIndex):
		fmt.Println("   No persisted index. Run `expindex reindex` to build one.")
	case index.IsCorrupt(err):
		fmt.Printf("   Index is corrupt (%v). Run `expindex reindex` to rebuild.\n", err)
	default:
		log.Fatalf("Failed to read index: %v", err)
	}

	db, err := store.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	dbStats, err := db.Stats()
	if err != nil {
		log.Fatalf("Failed to read database stats: %v", err)
	}

	fmt.Println("\n📊 Database:")
	fmt.Printf("   Experiences: %6d\n", dbStats.ExperienceCount)
	fmt.Printf("   Approved:    %6d\n", dbStats.ApprovedCount)
	fmt.Printf("   Questions:   %6d\n", dbStats.QuestionCount)
	fmt.Printf("   Size:        %6d bytes\n", dbStats.SizeBytes)
}
