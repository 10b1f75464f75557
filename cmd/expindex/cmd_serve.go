package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/placementarchive/expindex/internal/config"
	"github.com/placementarchive/expindex/internal/httpapi"
)

const shutdownTimeout = 10 * time.Second

// handleServe implements the serve subcommand
func handleServe(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	host := fs.String("host", "", "Override listen host")
	port := fs.Int("port", 0, "Override listen port")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `USAGE:
    expindex serve [options]

DESCRIPTION:
    Start the HTTP API server. On startup the persisted vector index
    is loaded; if it is missing or corrupt it is rebuilt from the
    database before the server accepts traffic.

OPTIONS:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
EXAMPLES:
    # Serve on the configured address
    expindex serve

    # Serve on a specific port
    expindex serve -port 9000
`)
	}

	if err := fs.Parse(args); err != nil {
		log.Fatalf("Failed to parse arguments: %v", err)
	}

	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}

	d, err := openDeps(cfg, true)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer d.close()

	ctx := context.Background()
	if err := d.engine.Start(ctx); err != nil {
		log.Fatalf("Failed to start engine: %v", err)
	}

	srv, err := httpapi.NewServer(d.engine, d.exps, d.text, d.db, log.Default(), &httpapi.Config{
		Host: cfg.Server.Host,
		Port: cfg.Server.Port,
	})
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	case sig := <-sigCh:
		log.Printf("Received %v, shutting down", sig)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Shutdown error: %v", err)
		}
	}
}
