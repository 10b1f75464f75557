package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/placementarchive/expindex/internal/config"
	"github.com/placementarchive/expindex/internal/retrieval"
)

// handleQuery implements the query subcommand
func handleQuery(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	company := fs.String("company", "", "Filter by company name (substring match)")
	year := fs.Int("year", 0, "Filter by interview year")
	topK := fs.Int("top-k", 0, "Number of experiences to retrieve")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `USAGE:
    expindex query [options] <question>

DESCRIPTION:
    Embed the question, search the vector index and print a grounded
    answer with its sources.

OPTIONS:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
EXAMPLES:
    expindex query "what DSA topics come up at Acme?"
    expindex query -company Acme -year 2024 "any preparation tips?"
`)
	}

	if err := fs.Parse(args); err != nil {
		log.Fatalf("Failed to parse arguments: %v", err)
	}

	question := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if question == "" {
		fmt.Fprintf(os.Stderr, "Error: question is required\n\n")
		fs.Usage()
		os.Exit(1)
	}

	d, err := openDeps(cfg, false)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer d.close()

	ctx := context.Background()
	if err := d.engine.Start(ctx); err != nil {
		log.Fatalf("Failed to load index: %v", err)
	}

	resp, err := d.engine.Query(ctx, retrieval.QueryRequest{
		Text:    question,
		Company: *company,
		Year:    *year,
		TopK:    *topK,
	})
	if err != nil {
		log.Fatalf("Query failed: %v", err)
	}

	fmt.Println(resp.Answer)
	if len(resp.Sources) > 0 {
		fmt.Printf("\nConfidence: %.2f\n", resp.Confidence)
		fmt.Println("\nSources:")
		for i, s := range resp.Sources {
			fmt.Printf("  %d. %s", i+1, s.Company)
			if s.Role != "" {
				fmt.Printf(" - %s", s.Role)
			}
			if s.Year != 0 {
				fmt.Printf(" (%d)", s.Year)
			}
			fmt.Printf("  score=%.3f\n", s.Score)
		}
	}
}
